package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"caseboard/internal/infra/persistence/memory"
	"caseboard/pkg/domain"

	"github.com/oklog/ulid/v2"
)

// Service exposes the transactional tracker operations over a persistent
// store: ingestion merges, the five tracker transactions, KPI queries, and
// snapshot export/import.
type Service struct {
	store   PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: noopLogger{},
		tracer: noopTracer{},
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entropy = ulid.Monotonic(rand.New(rand.NewSource(s.nowFn().UnixNano())), 0)
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// newEventID generates a lexicographically sortable unique event identifier.
func (s *Service) newEventID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.nowFn()), s.entropy).String()
}

// instrument wraps an operation with tracing, metrics, and logging.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.nowFn()
	err := fn(ctx)
	duration := s.nowFn().Sub(start)
	span.End(err)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation, "duration_ms", duration.Milliseconds())
	}
	return err
}

// logWarnings surfaces non-blocking rule violations.
func (s *Service) logWarnings(res Result) {
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule violation", "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
		}
	}
}

// MergeTables upserts every row of the provided tables in one transaction,
// applying field-level merge semantics per entity. Running the same batch
// twice produces no drift.
func (s *Service) MergeTables(ctx context.Context, tables TableSet) (Result, error) {
	var res Result
	err := s.instrument(ctx, "merge_tables", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, a := range tables.Actors {
				if _, err := tx.MergeActor(a); err != nil {
					return err
				}
			}
			for _, m := range tables.Models {
				if _, err := tx.MergeModel(m); err != nil {
					return err
				}
			}
			for _, a := range tables.Actions {
				if _, err := tx.MergeAction(a); err != nil {
					return err
				}
			}
			for _, l := range tables.Latest {
				if _, err := tx.MergeLatest(l); err != nil {
					return err
				}
			}
			for _, l := range tables.Links {
				if _, err := tx.MergeLink(l); err != nil {
					return err
				}
			}
			for _, e := range tables.Events {
				if _, err := tx.AppendEvent(e); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return res, err
}

// SetFilters replaces the active board filters wholesale.
func (s *Service) SetFilters(ctx context.Context, filters Filters) (Result, error) {
	var res Result
	err := s.instrument(ctx, "set_filters", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tx.SetFilters(filters)
			return nil
		})
		return err
	})
	return res, err
}

// Filters returns the active board filters, defaulting to the start of the
// current month when never set.
func (s *Service) Filters() Filters {
	f := s.store.Filters()
	if f.IsZero() {
		return domain.DefaultFilters(s.nowFn())
	}
	return f
}

// ExportTables clones the full table contents and filters for snapshotting.
func (s *Service) ExportTables(ctx context.Context) (TableSet, Filters, error) {
	var tables TableSet
	var filters Filters
	err := s.instrument(ctx, "export_tables", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			tables = TableSet{
				Actors:  view.ListActors(),
				Models:  view.ListModels(),
				Actions: view.ListActions(),
				Latest:  view.ListLatest(),
				Links:   view.ListLinks(),
				Events:  view.ListEvents(),
			}
			filters = view.Filters()
			return nil
		})
	})
	return tables, filters, err
}

// ReplaceTables swaps the full store contents atomically, used by snapshot
// import. A nil filters pointer keeps the active filters; a document that
// carries a filter block replaces them. The store is left untouched when the
// transaction fails.
func (s *Service) ReplaceTables(ctx context.Context, tables TableSet, filters *Filters) (Result, error) {
	var res Result
	err := s.instrument(ctx, "replace_tables", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.ReplaceAll(tables, filters)
		})
		return err
	})
	s.logWarnings(res)
	return res, err
}

// Events lists the audit log, newest first.
func (s *Service) Events() []Event {
	return s.store.ListEvents()
}

// Actions lists all tracker items.
func (s *Service) Actions() []Action {
	return s.store.ListActions()
}

// Models lists all tracked models.
func (s *Service) Models() []Model {
	return s.store.ListModels()
}

// Latest lists all per-model projection rows.
func (s *Service) Latest() []LatestStatus {
	return s.store.ListLatest()
}

// Actors lists all actors.
func (s *Service) Actors() []Actor {
	return s.store.ListActors()
}

// Links lists all action-model associations.
func (s *Service) Links() []Link {
	return s.store.ListLinks()
}
