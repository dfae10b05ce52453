// Package domain defines the normalized case-tracking entities, value types,
// and rule evaluation primitives used by caseboard.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityActor identifies a person/partner dimension record.
	EntityActor EntityType = "actor"
	// EntityModel identifies a tracked model dimension record.
	EntityModel EntityType = "model"
	// EntityAction identifies a tracker work-item record.
	EntityAction EntityType = "action"
	// EntityLatestStatus identifies the per-model current-state projection.
	EntityLatestStatus EntityType = "latest_status"
	// EntityLink identifies an action-to-model association.
	EntityLink EntityType = "link"
	// EntityEvent identifies an audit log record.
	EntityEvent EntityType = "event"
)

// Gate names an approval checkpoint in the validation lifecycle.
type Gate string

// Approval gates accepted by milestone decisions.
const (
	GateQG0 Gate = "QG0"
	GateQG1 Gate = "QG1"
	GateQG2 Gate = "QG2"
)

// Decision is the outcome of a gate review.
type Decision string

// Gate review outcomes.
const (
	DecisionPassed Decision = "Passed"
	DecisionKO     Decision = "KO"
)

// Priority grades work items and risk flags.
type Priority string

// Canonical priorities.
const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Actor is a person or partner organization contact (dimension table).
type Actor struct {
	ActorID     string  `json:"actorId"`
	DisplayName string  `json:"displayName"`
	Org         string  `json:"org"`
	Email       *string `json:"email,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// Key returns the actor primary key.
func (a Actor) Key() string { return a.ActorID }

// Model is a tracked program/ATA-chapter model (dimension table). The ID is a
// canonical composite key such as "A320:ATA21:FFDP".
type Model struct {
	ModelID string  `json:"modelId"`
	Program string  `json:"program"`
	ATA     string  `json:"ata"`
	Variant *string `json:"variant,omitempty"`
	Title   *string `json:"title,omitempty"`
}

// Key returns the model primary key.
func (m Model) Key() string { return m.ModelID }

// Action is a discrete unit of tracked work (the fact table). Optional
// attributes are pointers so an absent incoming field never erases a stored
// value during merge.
type Action struct {
	ActionID   string  `json:"actionId"`
	Subject    string  `json:"subject"`
	Owner      string  `json:"owner"`
	Org        *string `json:"org,omitempty"`
	OwnerName  *string `json:"ownerName,omitempty"`
	Program    string  `json:"program"`
	ATAChapter string  `json:"ataChapter"`
	Milestone  *string `json:"milestone,omitempty"`
	Text       string  `json:"text"`
	Status     string  `json:"status"`
	StartDate  *string `json:"startDate,omitempty"`
	DueOn      *string `json:"dueOn,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	Answers    *string `json:"answers,omitempty"`
	Source     *string `json:"source,omitempty"`
}

// Key returns the action primary key.
func (a Action) Key() string { return a.ActionID }

// LatestStatus is the single current-state projection per model. Subject and
// milestone draw from the gate vocabulary (MPVAL, QG0, QG1, QG1L); status from
// the projection vocabulary (In Mpval, Issue, KO, MPVAL Pushed, Passed,
// Scheduled). Out-of-vocabulary values are tolerated and flagged by the
// vocabulary rule.
type LatestStatus struct {
	ModelID   string  `json:"modelId"`
	Subject   string  `json:"subject"`
	Milestone string  `json:"milestone"`
	Status    string  `json:"status"`
	Priority  *string `json:"priority,omitempty"`
}

// Key returns the projection primary key (one row per model).
func (l LatestStatus) Key() string { return l.ModelID }

// Link associates an action with a model. The pair is the identity; repeated
// ingestion of the same pair is absorbed.
type Link struct {
	ActionID string `json:"actionId"`
	ModelID  string `json:"modelId"`
}

// Key returns the composite link key.
func (l Link) Key() string { return l.ActionID + "::" + l.ModelID }

// Event is an append-mostly audit record. Engine-generated events carry ULID
// identifiers so replayed source-of-truth logs never collide with them.
type Event struct {
	EventID string    `json:"eventId"`
	ModelID string    `json:"modelId"`
	When    time.Time `json:"when"`
	Kind    string    `json:"kind"`
	Note    *string   `json:"note,omitempty"`
}

// Key returns the event primary key.
func (e Event) Key() string { return e.EventID }

// TableSet carries full table contents across the hydrate/import boundary.
// A nil slice leaves the corresponding table untouched; a non-nil (possibly
// empty) slice replaces it.
type TableSet struct {
	Actors  []Actor        `json:"actors"`
	Models  []Model        `json:"models"`
	Actions []Action       `json:"actions"`
	Latest  []LatestStatus `json:"latestByModel"`
	Links   []Link         `json:"links"`
	Events  []Event        `json:"events"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Op     Op
	Before any
	After  any
}

// Op indicates the type of modification performed.
type Op string

// Change operations captured in the transaction audit trail.
const (
	// OpCreate indicates an entity was created.
	OpCreate Op = "create"
	// OpUpdate indicates an entity was updated.
	OpUpdate Op = "update"
	// OpMerge indicates an entity was upserted through the ingestion merge.
	OpMerge Op = "merge"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ErrNotFound reports a missing entity reference.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
