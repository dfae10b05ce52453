package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Merge methods upsert by primary key
// using the entity Merge semantics.
type Transaction interface {
	Snapshot() TransactionView
	MergeActor(Actor) (Actor, error)
	MergeModel(Model) (Model, error)
	MergeAction(Action) (Action, error)
	MergeLatest(LatestStatus) (LatestStatus, error)
	MergeLink(Link) (Link, error)
	AppendEvent(Event) (Event, error)
	UpdateAction(id string, mutator func(*Action) error) (Action, error)
	UpdateLatest(modelID string, mutator func(*LatestStatus) error) (LatestStatus, error)
	SetFilters(Filters)
	ReplaceAll(tables TableSet, filters *Filters) error
	FindAction(id string) (Action, bool)
	FindModel(id string) (Model, bool)
	FindLatest(modelID string) (LatestStatus, bool)
	LinkedModels(actionID string) []string
}

// TransactionView provides read-only access to snapshot data for rules and
// queries.
type TransactionView interface {
	RuleView
	Filters() Filters
	ActionsByModel(modelID string) []Action
	ActionsByOwner(owner string) []Action
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetAction(id string) (Action, bool)
	GetModel(id string) (Model, bool)
	GetLatest(modelID string) (LatestStatus, bool)
	ListActors() []Actor
	ListModels() []Model
	ListActions() []Action
	ListLatest() []LatestStatus
	ListLinks() []Link
	ListEvents() []Event
	Filters() Filters
}
