package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"caseboard/pkg/domain"
)

// Row is a loosely-typed field map as produced by an external CSV or JSON
// parser. Keys carry historical aliases that are resolved here, once, at the
// ingestion boundary.
type Row map[string]any

// RowError reports a row that could not be resolved into a domain record.
// Decoding is lenient: bad rows are quarantined as errors while the rest of
// the batch proceeds.
type RowError struct {
	Table  string
	Index  int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.Table, e.Index, e.Reason)
}

// Accepted field-name aliases per entity. Earlier names win. This table is
// part of the contract with ingestion collaborators and changes here break
// historical files.
var (
	actionIDAliases  = []string{"actionId", "id", "item_num"}
	ownerAliases     = []string{"owner", "Owner"}
	ataAliases       = []string{"ata_chapter", "ata", "ATA Chapter"}
	milestoneAliases = []string{"milestone", "Milestone", "theme"}
	textAliases      = []string{"actions", "Actions", "text", "description"}
	answersAliases   = []string{"answers", "updates", "status_updates"}
	startAliases     = []string{"start_date", "startDate", "Start date"}
	dueAliases       = []string{"due_on", "dueOn", "Due on"}
	statusAliasKeys  = []string{"status", "Status"}
	subjectAliases   = []string{"subject", "Subject"}
	programAliases   = []string{"program", "Program"}
	priorityAliases  = []string{"priority", "Priority"}
	sourceAliases    = []string{"source", "Source"}

	actorIDAliases   = []string{"actorId", "id", "email"}
	modelIDAliases   = []string{"modelId", "id"}
	latestIDAliases  = []string{"modelId", "id", "model_key"}
	linkActionAlias  = []string{"actionId", "id_action", "action_id"}
	linkModelAlias   = []string{"modelId", "id_model", "model_id"}
	eventIDAliases   = []string{"eventId", "id"}
	eventModelAlias  = []string{"modelId", "model_id", "modelKey"}
	eventWhenAliases = []string{"when", "timestamp"}
	eventKindAliases = []string{"kind", "event", "type"}
)

// field resolves the first present alias to a trimmed string. Numeric scalars
// stringify so a JSON row carrying `id: 1` resolves to "1".
func (r Row) field(aliases ...string) string {
	for _, key := range aliases {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		case float64:
			if s == float64(int64(s)) {
				return strconv.FormatInt(int64(s), 10)
			}
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		case bool:
			return strconv.FormatBool(s)
		}
	}
	return ""
}

// optional returns a pointer only when a non-empty value is present, so the
// merge layer can distinguish "absent" from "empty".
func (r Row) optional(aliases ...string) *string {
	if s := r.field(aliases...); s != "" {
		return &s
	}
	return nil
}

// ActionFromRow resolves an action row, applying the owner split and the
// status/program/ATA/date normalizers.
func ActionFromRow(r Row) (domain.Action, error) {
	id := r.field(actionIDAliases...)
	if id == "" {
		return domain.Action{}, fmt.Errorf("missing action identifier")
	}
	a := domain.Action{
		ActionID:   id,
		Subject:    r.field(subjectAliases...),
		Owner:      r.field(ownerAliases...),
		Program:    domain.NormalizeProgram(r.field(programAliases...)),
		ATAChapter: NormalizeATA(r.field(ataAliases...)),
		Text:       r.field(textAliases...),
		Status:     NormalizeStatus(r.field(statusAliasKeys...)),
	}
	if org, name := SplitOwner(a.Owner); name != "" {
		a.OwnerName = &name
		if org != "" {
			a.Org = &org
		}
	}
	a.Milestone = r.optional(milestoneAliases...)
	a.Answers = r.optional(answersAliases...)
	a.Source = r.optional(sourceAliases...)
	if s := NormalizeDate(r.field(startAliases...)); s != "" {
		a.StartDate = &s
	}
	if s := NormalizeDate(r.field(dueAliases...)); s != "" {
		a.DueOn = &s
	}
	if s := r.field(priorityAliases...); s != "" {
		p := NormalizePriority(s)
		a.Priority = &p
	}
	return a, nil
}

// ActorFromRow resolves an actor row.
func ActorFromRow(r Row) (domain.Actor, error) {
	id := r.field(actorIDAliases...)
	if id == "" {
		return domain.Actor{}, fmt.Errorf("missing actor identifier")
	}
	a := domain.Actor{
		ActorID:     id,
		DisplayName: r.field("displayName", "name"),
		Org:         r.field("org"),
	}
	a.Email = r.optional("email")
	a.Role = r.optional("role")
	return a, nil
}

// ModelFromRow resolves a model row.
func ModelFromRow(r Row) (domain.Model, error) {
	id := r.field(modelIDAliases...)
	if id == "" {
		return domain.Model{}, fmt.Errorf("missing model identifier")
	}
	m := domain.Model{
		ModelID: id,
		Program: domain.NormalizeProgram(r.field(programAliases...)),
		ATA:     NormalizeATA(r.field(ataAliases...)),
	}
	m.Variant = r.optional("variant")
	m.Title = r.optional("title")
	return m, nil
}

// LatestFromRow resolves a per-model projection row.
func LatestFromRow(r Row) (domain.LatestStatus, error) {
	id := r.field(latestIDAliases...)
	if id == "" {
		return domain.LatestStatus{}, fmt.Errorf("missing model identifier")
	}
	l := domain.LatestStatus{
		ModelID:   id,
		Subject:   r.field(subjectAliases...),
		Milestone: r.field(milestoneAliases...),
		Status:    r.field(statusAliasKeys...),
	}
	if s := r.field(priorityAliases...); s != "" {
		p := NormalizePriority(s)
		l.Priority = &p
	}
	return l, nil
}

// LinkFromRow resolves an action-model link row.
func LinkFromRow(r Row) (domain.Link, error) {
	actionID := r.field(linkActionAlias...)
	modelID := r.field(linkModelAlias...)
	if actionID == "" || modelID == "" {
		return domain.Link{}, fmt.Errorf("missing link endpoint")
	}
	return domain.Link{ActionID: actionID, ModelID: modelID}, nil
}

// EventFromRow resolves an audit event row.
func EventFromRow(r Row) (domain.Event, error) {
	id := r.field(eventIDAliases...)
	if id == "" {
		return domain.Event{}, fmt.Errorf("missing event identifier")
	}
	e := domain.Event{
		EventID: id,
		ModelID: r.field(eventModelAlias...),
		Kind:    r.field(eventKindAliases...),
	}
	if raw := r.field(eventWhenAliases...); raw != "" {
		when, err := parseTimestamp(raw)
		if err != nil {
			return domain.Event{}, fmt.Errorf("bad timestamp %q", raw)
		}
		e.When = when
	}
	e.Note = r.optional("note")
	return e, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized layout")
}

// Batch is the decoded result of a multi-table ingestion payload.
type Batch struct {
	Actors  []domain.Actor
	Models  []domain.Model
	Actions []domain.Action
	Latest  []domain.LatestStatus
	Links   []domain.Link
	Events  []domain.Event
	Errors  []RowError
}

// DecodeTables resolves raw rows grouped by table name into a Batch. Unknown
// table names are quarantined; known tables decode row by row, collecting
// per-row errors without aborting the batch.
func DecodeTables(tables map[string][]Row) Batch {
	var b Batch
	for name, rows := range tables {
		for i, row := range rows {
			var err error
			switch name {
			case "actors":
				var a domain.Actor
				if a, err = ActorFromRow(row); err == nil {
					b.Actors = append(b.Actors, a)
				}
			case "models":
				var m domain.Model
				if m, err = ModelFromRow(row); err == nil {
					b.Models = append(b.Models, m)
				}
			case "actions":
				var a domain.Action
				if a, err = ActionFromRow(row); err == nil {
					b.Actions = append(b.Actions, a)
				}
			case "latestByModel", "latest":
				var l domain.LatestStatus
				if l, err = LatestFromRow(row); err == nil {
					b.Latest = append(b.Latest, l)
				}
			case "links":
				var l domain.Link
				if l, err = LinkFromRow(row); err == nil {
					b.Links = append(b.Links, l)
				}
			case "events":
				var e domain.Event
				if e, err = EventFromRow(row); err == nil {
					b.Events = append(b.Events, e)
				}
			default:
				err = fmt.Errorf("unknown table")
			}
			if err != nil {
				b.Errors = append(b.Errors, RowError{Table: name, Index: i, Reason: err.Error()})
			}
		}
	}
	return b
}

// TableSet returns the successfully decoded rows as a merge payload.
func (b Batch) TableSet() domain.TableSet {
	return domain.TableSet{
		Actors:  b.Actors,
		Models:  b.Models,
		Actions: b.Actions,
		Latest:  b.Latest,
		Links:   b.Links,
		Events:  b.Events,
	}
}
