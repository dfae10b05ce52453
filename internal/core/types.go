// Package core wires the caseboard domain engine: the transactional service
// facade, the five tracker transactions, KPI queries, and storage selection.
package core

import "caseboard/pkg/domain"

type (
	// Actor aliases domain.Actor.
	Actor = domain.Actor
	// Model aliases domain.Model.
	Model = domain.Model
	// Action aliases domain.Action.
	Action = domain.Action
	// LatestStatus aliases domain.LatestStatus.
	LatestStatus = domain.LatestStatus
	// Link aliases domain.Link.
	Link = domain.Link
	// Event aliases domain.Event.
	Event = domain.Event
	// Filters aliases domain.Filters.
	Filters = domain.Filters
	// TableSet aliases domain.TableSet.
	TableSet = domain.TableSet
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
	// ErrNotFound aliases domain.ErrNotFound, surfaced by update paths when
	// the referenced entity does not exist.
	ErrNotFound = domain.ErrNotFound
)

// Outcome reports what a tracker transaction actually did. Transactions
// tolerate missing entities by skipping dependent side effects; Applied and
// Skipped let callers surface those no-ops without changing the default
// tolerance.
type Outcome struct {
	Applied bool   `json:"applied"`
	Skipped string `json:"skipped,omitempty"`
	EventID string `json:"eventId,omitempty"`
}
