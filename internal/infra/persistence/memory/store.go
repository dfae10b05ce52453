// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"caseboard/pkg/domain"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Actor aliases domain.Actor for in-memory persistence operations.
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
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	actors  map[string]Actor
	models  map[string]Model
	actions map[string]Action
	latest  map[string]LatestStatus
	links   map[string]Link
	events  map[string]Event
	filters Filters

	// Derived from links and actions; rebuilt on every commit and import,
	// never hand-edited.
	actionsByModel map[string][]string
	actionsByOwner map[string][]string
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Actors  map[string]Actor        `json:"actors"`
	Models  map[string]Model        `json:"models"`
	Actions map[string]Action       `json:"actions"`
	Latest  map[string]LatestStatus `json:"latestByModel"`
	Links   map[string]Link         `json:"links"`
	Events  map[string]Event        `json:"events"`
	Filters Filters                 `json:"filters"`
}

func newMemoryState() memoryState {
	return memoryState{
		actors:  make(map[string]Actor),
		models:  make(map[string]Model),
		actions: make(map[string]Action),
		latest:  make(map[string]LatestStatus),
		links:   make(map[string]Link),
		events:  make(map[string]Event),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Actors:  make(map[string]Actor, len(state.actors)),
		Models:  make(map[string]Model, len(state.models)),
		Actions: make(map[string]Action, len(state.actions)),
		Latest:  make(map[string]LatestStatus, len(state.latest)),
		Links:   make(map[string]Link, len(state.links)),
		Events:  make(map[string]Event, len(state.events)),
		Filters: state.filters.Clone(),
	}
	for k, v := range state.actors {
		s.Actors[k] = cloneActor(v)
	}
	for k, v := range state.models {
		s.Models[k] = cloneModel(v)
	}
	for k, v := range state.actions {
		s.Actions[k] = cloneAction(v)
	}
	for k, v := range state.latest {
		s.Latest[k] = cloneLatest(v)
	}
	for k, v := range state.links {
		s.Links[k] = v
	}
	for k, v := range state.events {
		s.Events[k] = cloneEvent(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Actors {
		state.actors[k] = cloneActor(v)
	}
	for k, v := range s.Models {
		state.models[k] = cloneModel(v)
	}
	for k, v := range s.Actions {
		state.actions[k] = cloneAction(v)
	}
	for k, v := range s.Latest {
		state.latest[k] = cloneLatest(v)
	}
	for k, v := range s.Links {
		state.links[k] = v
	}
	for k, v := range s.Events {
		state.events[k] = cloneEvent(v)
	}
	state.filters = s.Filters.Clone()
	state.rebuildIndexes()
	return state
}

// migrateSnapshot normalizes snapshots hydrated from external storage: nil
// maps become empty, link keys are recomputed from their endpoints, and rows
// keyed inconsistently with their own identifier are re-homed under the key
// the identifier dictates.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Actors == nil {
		snapshot.Actors = map[string]Actor{}
	}
	if snapshot.Models == nil {
		snapshot.Models = map[string]Model{}
	}
	if snapshot.Actions == nil {
		snapshot.Actions = map[string]Action{}
	}
	if snapshot.Latest == nil {
		snapshot.Latest = map[string]LatestStatus{}
	}
	if snapshot.Links == nil {
		snapshot.Links = map[string]Link{}
	}
	if snapshot.Events == nil {
		snapshot.Events = map[string]Event{}
	}

	links := make(map[string]Link, len(snapshot.Links))
	for _, link := range snapshot.Links {
		if link.ActionID == "" || link.ModelID == "" {
			continue
		}
		links[link.Key()] = link
	}
	snapshot.Links = links

	for key, latest := range snapshot.Latest {
		if latest.ModelID != "" && latest.ModelID != key {
			delete(snapshot.Latest, key)
			snapshot.Latest[latest.ModelID] = latest
		}
	}

	return snapshot
}

func (s *memoryState) rebuildIndexes() {
	// Links are indexed unconditionally, including ones whose action has not
	// arrived yet; lookups filter dangling entries.
	byModel := make(map[string][]string)
	for _, link := range s.links {
		byModel[link.ModelID] = append(byModel[link.ModelID], link.ActionID)
	}
	for modelID := range byModel {
		sort.Strings(byModel[modelID])
	}

	byOwner := make(map[string][]string)
	for id, action := range s.actions {
		owner := resolvedOwner(action)
		byOwner[strings.ToLower(owner)] = append(byOwner[strings.ToLower(owner)], id)
	}
	for owner := range byOwner {
		sort.Strings(byOwner[owner])
	}

	s.actionsByModel = byModel
	s.actionsByOwner = byOwner
}

func resolvedOwner(a Action) string {
	if a.OwnerName != nil && *a.OwnerName != "" {
		return *a.OwnerName
	}
	if a.Owner != "" {
		return a.Owner
	}
	return "Unassigned"
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.actors {
		cloned.actors[k] = cloneActor(v)
	}
	for k, v := range s.models {
		cloned.models[k] = cloneModel(v)
	}
	for k, v := range s.actions {
		cloned.actions[k] = cloneAction(v)
	}
	for k, v := range s.latest {
		cloned.latest[k] = cloneLatest(v)
	}
	for k, v := range s.links {
		cloned.links[k] = v
	}
	for k, v := range s.events {
		cloned.events[k] = cloneEvent(v)
	}
	cloned.filters = s.filters.Clone()
	cloned.rebuildIndexes()
	return cloned
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneActor(a Actor) Actor {
	cp := a
	cp.Email = cloneStringPtr(a.Email)
	cp.Role = cloneStringPtr(a.Role)
	return cp
}

func cloneModel(m Model) Model {
	cp := m
	cp.Variant = cloneStringPtr(m.Variant)
	cp.Title = cloneStringPtr(m.Title)
	return cp
}

func cloneAction(a Action) Action {
	cp := a
	cp.Org = cloneStringPtr(a.Org)
	cp.OwnerName = cloneStringPtr(a.OwnerName)
	cp.Milestone = cloneStringPtr(a.Milestone)
	cp.StartDate = cloneStringPtr(a.StartDate)
	cp.DueOn = cloneStringPtr(a.DueOn)
	cp.Priority = cloneStringPtr(a.Priority)
	cp.Answers = cloneStringPtr(a.Answers)
	cp.Source = cloneStringPtr(a.Source)
	return cp
}

func cloneLatest(l LatestStatus) LatestStatus {
	cp := l
	cp.Priority = cloneStringPtr(l.Priority)
	return cp
}

func cloneEvent(e Event) Event {
	cp := e
	cp.Note = cloneStringPtr(e.Note)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	state := newMemoryState()
	state.rebuildIndexes()
	return &Store{
		state:  state,
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider. Test hook.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListActors returns all actors within the transaction snapshot.
func (v transactionView) ListActors() []Actor {
	out := make([]Actor, 0, len(v.state.actors))
	for _, a := range v.state.actors {
		out = append(out, cloneActor(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

// ListModels returns all models in the snapshot.
func (v transactionView) ListModels() []Model {
	out := make([]Model, 0, len(v.state.models))
	for _, m := range v.state.models {
		out = append(out, cloneModel(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// ListActions returns all actions in the snapshot.
func (v transactionView) ListActions() []Action {
	out := make([]Action, 0, len(v.state.actions))
	for _, a := range v.state.actions {
		out = append(out, cloneAction(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionID < out[j].ActionID })
	return out
}

// ListLatest returns all projection rows in the snapshot.
func (v transactionView) ListLatest() []LatestStatus {
	out := make([]LatestStatus, 0, len(v.state.latest))
	for _, l := range v.state.latest {
		out = append(out, cloneLatest(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// ListLinks returns all links in the snapshot.
func (v transactionView) ListLinks() []Link {
	out := make([]Link, 0, len(v.state.links))
	for _, l := range v.state.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ListEvents returns all events in the snapshot, newest first.
func (v transactionView) ListEvents() []Event {
	out := make([]Event, 0, len(v.state.events))
	for _, e := range v.state.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].When.Equal(out[j].When) {
			return out[i].When.After(out[j].When)
		}
		return out[i].EventID > out[j].EventID
	})
	return out
}

// FindActor retrieves an actor by ID from the snapshot.
func (v transactionView) FindActor(id string) (Actor, bool) {
	a, ok := v.state.actors[id]
	if !ok {
		return Actor{}, false
	}
	return cloneActor(a), true
}

// FindModel retrieves a model by ID from the snapshot.
func (v transactionView) FindModel(id string) (Model, bool) {
	m, ok := v.state.models[id]
	if !ok {
		return Model{}, false
	}
	return cloneModel(m), true
}

// FindAction retrieves an action by ID from the snapshot.
func (v transactionView) FindAction(id string) (Action, bool) {
	a, ok := v.state.actions[id]
	if !ok {
		return Action{}, false
	}
	return cloneAction(a), true
}

// FindLatest retrieves the projection row for a model from the snapshot.
func (v transactionView) FindLatest(modelID string) (LatestStatus, bool) {
	l, ok := v.state.latest[modelID]
	if !ok {
		return LatestStatus{}, false
	}
	return cloneLatest(l), true
}

// Filters returns the active board filters.
func (v transactionView) Filters() Filters {
	return v.state.filters.Clone()
}

// ActionsByModel returns the actions linked to a model via the derived index.
func (v transactionView) ActionsByModel(modelID string) []Action {
	ids := v.state.actionsByModel[modelID]
	out := make([]Action, 0, len(ids))
	for _, id := range ids {
		if a, ok := v.state.actions[id]; ok {
			out = append(out, cloneAction(a))
		}
	}
	return out
}

// ActionsByOwner returns the actions bucketed under a lower-cased owner name.
func (v transactionView) ActionsByOwner(owner string) []Action {
	ids := v.state.actionsByOwner[strings.ToLower(owner)]
	out := make([]Action, 0, len(ids))
	for _, id := range ids {
		if a, ok := v.state.actions[id]; ok {
			out = append(out, cloneAction(a))
		}
	}
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The derived indexes are rebuilt before commit so they are never stale.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	tx.state.rebuildIndexes()

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state. The view
// sees index state as of the last rebuild inside this transaction.
func (tx *transaction) Snapshot() TransactionView {
	tx.state.rebuildIndexes()
	return newTransactionView(&tx.state)
}

// MergeActor upserts an actor by ID with field-level merge semantics.
func (tx *transaction) MergeActor(a Actor) (Actor, error) {
	if a.ActorID == "" {
		return Actor{}, fmt.Errorf("actor requires an id")
	}
	next := a
	if current, ok := tx.state.actors[a.ActorID]; ok {
		next = current.Merge(a)
	}
	tx.state.actors[a.ActorID] = cloneActor(next)
	tx.recordChange(Change{Entity: domain.EntityActor, Op: domain.OpMerge, After: cloneActor(next)})
	return cloneActor(next), nil
}

// MergeModel upserts a model by ID.
func (tx *transaction) MergeModel(m Model) (Model, error) {
	if m.ModelID == "" {
		return Model{}, fmt.Errorf("model requires an id")
	}
	next := m
	if current, ok := tx.state.models[m.ModelID]; ok {
		next = current.Merge(m)
	}
	tx.state.models[m.ModelID] = cloneModel(next)
	tx.recordChange(Change{Entity: domain.EntityModel, Op: domain.OpMerge, After: cloneModel(next)})
	return cloneModel(next), nil
}

// MergeAction upserts an action by ID.
func (tx *transaction) MergeAction(a Action) (Action, error) {
	if a.ActionID == "" {
		return Action{}, fmt.Errorf("action requires an id")
	}
	next := a
	if current, ok := tx.state.actions[a.ActionID]; ok {
		next = current.Merge(a)
	}
	tx.state.actions[a.ActionID] = cloneAction(next)
	tx.recordChange(Change{Entity: domain.EntityAction, Op: domain.OpMerge, After: cloneAction(next)})
	return cloneAction(next), nil
}

// MergeLatest upserts the single projection row for a model.
func (tx *transaction) MergeLatest(l LatestStatus) (LatestStatus, error) {
	if l.ModelID == "" {
		return LatestStatus{}, fmt.Errorf("latest status requires a model id")
	}
	next := l
	if current, ok := tx.state.latest[l.ModelID]; ok {
		next = current.Merge(l)
	}
	tx.state.latest[l.ModelID] = cloneLatest(next)
	tx.recordChange(Change{Entity: domain.EntityLatestStatus, Op: domain.OpMerge, After: cloneLatest(next)})
	return cloneLatest(next), nil
}

// MergeLink absorbs a link; the (actionId, modelId) pair is the identity so
// repeated ingestion degenerates to set-union.
func (tx *transaction) MergeLink(l Link) (Link, error) {
	if l.ActionID == "" || l.ModelID == "" {
		return Link{}, fmt.Errorf("link requires both endpoints")
	}
	if _, exists := tx.state.links[l.Key()]; !exists {
		tx.state.links[l.Key()] = l
		tx.recordChange(Change{Entity: domain.EntityLink, Op: domain.OpCreate, After: l})
	}
	return l, nil
}

// AppendEvent upserts an event by its explicit identifier, so replaying a
// source-of-truth log is idempotent while freshly generated IDs always insert.
func (tx *transaction) AppendEvent(e Event) (Event, error) {
	if e.EventID == "" {
		return Event{}, fmt.Errorf("event requires an id")
	}
	if e.When.IsZero() {
		e.When = tx.now
	}
	next := e
	if current, ok := tx.state.events[e.EventID]; ok {
		next = current.Merge(e)
	}
	tx.state.events[e.EventID] = cloneEvent(next)
	tx.recordChange(Change{Entity: domain.EntityEvent, Op: domain.OpMerge, After: cloneEvent(next)})
	return cloneEvent(next), nil
}

// UpdateAction mutates an action using the provided mutator function.
func (tx *transaction) UpdateAction(id string, mutator func(*Action) error) (Action, error) {
	current, ok := tx.state.actions[id]
	if !ok {
		return Action{}, domain.ErrNotFound{Entity: domain.EntityAction, ID: id}
	}
	before := cloneAction(current)
	if err := mutator(&current); err != nil {
		return Action{}, err
	}
	current.ActionID = id
	tx.state.actions[id] = cloneAction(current)
	tx.recordChange(Change{Entity: domain.EntityAction, Op: domain.OpUpdate, Before: before, After: cloneAction(current)})
	return cloneAction(current), nil
}

// UpdateLatest mutates the projection row for a model.
func (tx *transaction) UpdateLatest(modelID string, mutator func(*LatestStatus) error) (LatestStatus, error) {
	current, ok := tx.state.latest[modelID]
	if !ok {
		return LatestStatus{}, domain.ErrNotFound{Entity: domain.EntityLatestStatus, ID: modelID}
	}
	before := cloneLatest(current)
	if err := mutator(&current); err != nil {
		return LatestStatus{}, err
	}
	current.ModelID = modelID
	tx.state.latest[modelID] = cloneLatest(current)
	tx.recordChange(Change{Entity: domain.EntityLatestStatus, Op: domain.OpUpdate, Before: before, After: cloneLatest(current)})
	return cloneLatest(current), nil
}

// SetFilters replaces the active board filters wholesale.
func (tx *transaction) SetFilters(f Filters) {
	tx.state.filters = f.Clone()
}

// ReplaceAll swaps every table for the provided contents. A nil slice leaves
// the corresponding table untouched; a non-nil slice replaces it. Filters are
// replaced only when a filter block is supplied, mirroring the table rule.
func (tx *transaction) ReplaceAll(tables domain.TableSet, filters *Filters) error {
	if tables.Actors != nil {
		tx.state.actors = make(map[string]Actor, len(tables.Actors))
		for _, a := range tables.Actors {
			if a.ActorID == "" {
				return fmt.Errorf("actor requires an id")
			}
			tx.state.actors[a.ActorID] = cloneActor(a)
		}
	}
	if tables.Models != nil {
		tx.state.models = make(map[string]Model, len(tables.Models))
		for _, m := range tables.Models {
			if m.ModelID == "" {
				return fmt.Errorf("model requires an id")
			}
			tx.state.models[m.ModelID] = cloneModel(m)
		}
	}
	if tables.Actions != nil {
		tx.state.actions = make(map[string]Action, len(tables.Actions))
		for _, a := range tables.Actions {
			if a.ActionID == "" {
				return fmt.Errorf("action requires an id")
			}
			tx.state.actions[a.ActionID] = cloneAction(a)
		}
	}
	if tables.Latest != nil {
		tx.state.latest = make(map[string]LatestStatus, len(tables.Latest))
		for _, l := range tables.Latest {
			if l.ModelID == "" {
				return fmt.Errorf("latest status requires a model id")
			}
			tx.state.latest[l.ModelID] = cloneLatest(l)
		}
	}
	if tables.Links != nil {
		tx.state.links = make(map[string]Link, len(tables.Links))
		for _, l := range tables.Links {
			if l.ActionID == "" || l.ModelID == "" {
				return fmt.Errorf("link requires both endpoints")
			}
			tx.state.links[l.Key()] = l
		}
	}
	if tables.Events != nil {
		tx.state.events = make(map[string]Event, len(tables.Events))
		for _, e := range tables.Events {
			if e.EventID == "" {
				return fmt.Errorf("event requires an id")
			}
			tx.state.events[e.EventID] = cloneEvent(e)
		}
	}
	if filters != nil {
		tx.state.filters = filters.Clone()
	}
	return nil
}

// FindAction exposes action lookup within the transaction scope.
func (tx *transaction) FindAction(id string) (Action, bool) {
	a, ok := tx.state.actions[id]
	if !ok {
		return Action{}, false
	}
	return cloneAction(a), true
}

// FindModel exposes model lookup within the transaction scope.
func (tx *transaction) FindModel(id string) (Model, bool) {
	m, ok := tx.state.models[id]
	if !ok {
		return Model{}, false
	}
	return cloneModel(m), true
}

// FindLatest exposes projection lookup within the transaction scope.
func (tx *transaction) FindLatest(modelID string) (LatestStatus, bool) {
	l, ok := tx.state.latest[modelID]
	if !ok {
		return LatestStatus{}, false
	}
	return cloneLatest(l), true
}

// LinkedModels returns the models linked to an action, sorted by model ID so
// "first linked model" is deterministic.
func (tx *transaction) LinkedModels(actionID string) []string {
	var out []string
	for _, link := range tx.state.links {
		if link.ActionID == actionID {
			out = append(out, link.ModelID)
		}
	}
	sort.Strings(out)
	return out
}

// GetAction retrieves an action from the committed state.
func (s *Store) GetAction(id string) (Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.actions[id]
	if !ok {
		return Action{}, false
	}
	return cloneAction(a), true
}

// GetModel retrieves a model from the committed state.
func (s *Store) GetModel(id string) (Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.models[id]
	if !ok {
		return Model{}, false
	}
	return cloneModel(m), true
}

// GetLatest retrieves a projection row from the committed state.
func (s *Store) GetLatest(modelID string) (LatestStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.latest[modelID]
	if !ok {
		return LatestStatus{}, false
	}
	return cloneLatest(l), true
}

// ListActors lists actors from the committed state.
func (s *Store) ListActors() []Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListActors()
}

// ListModels lists models from the committed state.
func (s *Store) ListModels() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListModels()
}

// ListActions lists actions from the committed state.
func (s *Store) ListActions() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListActions()
}

// ListLatest lists projection rows from the committed state.
func (s *Store) ListLatest() []LatestStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListLatest()
}

// ListLinks lists links from the committed state.
func (s *Store) ListLinks() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListLinks()
}

// ListEvents lists events from the committed state, newest first.
func (s *Store) ListEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListEvents()
}

// Filters returns the active board filters from the committed state.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.filters.Clone()
}
