// Package snapshot encodes and decodes full-state board documents and
// archives them in blob storage.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"caseboard/pkg/domain"
)

// Version is the current snapshot document version.
const Version = 1

// Meta identifies a snapshot document.
type Meta struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
	V  int       `json:"v"`
}

// Document is the portable full-state form of a board: every table plus the
// active filters, wrapped with identifying metadata. Filters is nil when the
// payload carries no filter block; importing such a document keeps the
// target's active filters.
type Document struct {
	Meta    Meta                  `json:"meta"`
	Actors  []domain.Actor        `json:"actors"`
	Models  []domain.Model        `json:"models"`
	Actions []domain.Action       `json:"actions"`
	Latest  []domain.LatestStatus `json:"latestByModel"`
	Links   []domain.Link         `json:"links"`
	Events  []domain.Event        `json:"events"`
	Filters *domain.Filters       `json:"filters,omitempty"`
}

// Tables returns the document's table payload as a TableSet.
func (d Document) Tables() domain.TableSet {
	return domain.TableSet{
		Actors:  d.Actors,
		Models:  d.Models,
		Actions: d.Actions,
		Latest:  d.Latest,
		Links:   d.Links,
		Events:  d.Events,
	}
}

// ParseError reports a snapshot payload that could not be accepted. Decoding
// is all or nothing: a ParseError means the target store was left untouched.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot: %s: %v", e.Reason, e.Err)
	}
	return "snapshot: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// New builds a document from tables and filters, stamping metadata. Exported
// documents always carry their filter block.
func New(id string, at time.Time, tables domain.TableSet, filters domain.Filters) Document {
	return Document{
		Meta:    Meta{ID: id, At: at.UTC(), V: Version},
		Actors:  tables.Actors,
		Models:  tables.Models,
		Actions: tables.Actions,
		Latest:  tables.Latest,
		Links:   tables.Links,
		Events:  tables.Events,
		Filters: &filters,
	}
}

// Encode serializes a document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses and validates a snapshot payload. Any structural or version
// problem is surfaced as a *ParseError.
func Decode(payload []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, &ParseError{Reason: "malformed document", Err: err}
	}
	if doc.Meta.V != Version {
		return Document{}, &ParseError{Reason: fmt.Sprintf("unsupported version %d", doc.Meta.V)}
	}
	if err := validateIDs(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func validateIDs(doc Document) error {
	for i, a := range doc.Actors {
		if a.ActorID == "" {
			return &ParseError{Reason: fmt.Sprintf("actor %d missing actorId", i)}
		}
	}
	for i, m := range doc.Models {
		if m.ModelID == "" {
			return &ParseError{Reason: fmt.Sprintf("model %d missing modelId", i)}
		}
	}
	for i, a := range doc.Actions {
		if a.ActionID == "" {
			return &ParseError{Reason: fmt.Sprintf("action %d missing actionId", i)}
		}
	}
	for i, l := range doc.Latest {
		if l.ModelID == "" {
			return &ParseError{Reason: fmt.Sprintf("latest row %d missing modelId", i)}
		}
	}
	for i, l := range doc.Links {
		if l.ActionID == "" || l.ModelID == "" {
			return &ParseError{Reason: fmt.Sprintf("link %d missing endpoint", i)}
		}
	}
	for i, e := range doc.Events {
		if e.EventID == "" {
			return &ParseError{Reason: fmt.Sprintf("event %d missing eventId", i)}
		}
	}
	return nil
}
