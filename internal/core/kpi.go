package core

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"caseboard/pkg/domain"
)

// PortfolioKPIs summarizes the open work portfolio.
type PortfolioKPIs struct {
	OpenActions   int `json:"openActions"`
	Owners        int `json:"owners"`
	Programs      int `json:"programs"`
	Partners      int `json:"partners"`
	TrackedModels int `json:"trackedModels"`
}

// ValidationKPIs summarizes gate decisions across tracked models.
type ValidationKPIs struct {
	Decided            int `json:"decided"`
	Pending            int `json:"pending"`
	PassRate           int `json:"passRate"`
	MpvalInProgress    int `json:"mpvalInProgress"`
	ScheduledThisMonth int `json:"scheduledThisMonth"`
}

// RiskKPIs summarizes schedule and priority exposure. AvgCycleDays is absent
// when no action carries both dates.
type RiskKPIs struct {
	HighPriorityOpen int  `json:"highPriorityOpen"`
	OverdueActions   int  `json:"overdueActions"`
	AvgCycleDays     *int `json:"avgCycleDays,omitempty"`
}

// OwnerLoadEntry reports per-owner open and overdue counts.
type OwnerLoadEntry struct {
	Owner   string `json:"owner"`
	Open    int    `json:"open"`
	Overdue int    `json:"overdue"`
}

// ownerKey resolves an action's owner identity, empty when unassigned.
func ownerKey(a Action) string {
	if a.OwnerName != nil && *a.OwnerName != "" {
		return *a.OwnerName
	}
	return a.Owner
}

func ownerDisplayName(a Action) string {
	if key := ownerKey(a); key != "" {
		return key
	}
	return "Unassigned"
}

// overdue compares ISO dates lexicographically, which orders the same as
// chronologically for the "2006-01-02" layout.
func overdue(a Action, today string) bool {
	return a.DueOn != nil && *a.DueOn != "" && *a.DueOn < today
}

// KPIPortfolio computes the portfolio aggregates from the current snapshot.
func (s *Service) KPIPortfolio(ctx context.Context) (PortfolioKPIs, error) {
	var out PortfolioKPIs
	err := s.store.View(ctx, func(view TransactionView) error {
		owners := map[string]struct{}{}
		programs := map[string]struct{}{}
		partners := map[string]struct{}{}
		for _, a := range view.ListActions() {
			if !domain.IsClosedForPortfolio(a.Status) {
				out.OpenActions++
			}
			// Ownerless actions do not contribute a distinct owner.
			if key := ownerKey(a); key != "" {
				owners[strings.ToLower(key)] = struct{}{}
			}
			if a.Program != "" {
				programs[a.Program] = struct{}{}
			}
			if a.Org != nil && *a.Org != "" {
				partners[*a.Org] = struct{}{}
			} else if a.Source != nil && *a.Source != "" {
				partners[*a.Source] = struct{}{}
			}
		}
		out.Owners = len(owners)
		out.Programs = len(programs)
		out.Partners = len(partners)
		out.TrackedModels = len(view.ListLatest())
		return nil
	})
	return out, err
}

// KPIValidation computes the gate-decision aggregates. PassRate is 0, not an
// error, when no model is tracked.
func (s *Service) KPIValidation(ctx context.Context) (ValidationKPIs, error) {
	var out ValidationKPIs
	err := s.store.View(ctx, func(view TransactionView) error {
		latest := view.ListLatest()
		total := len(latest)
		passed := 0
		for _, l := range latest {
			if domain.IsDecidedStatus(l.Status) {
				out.Decided++
			}
			if domain.IsPassedStatus(l.Status) {
				passed++
			}
			if domain.IsMpvalStatus(l.Status) {
				out.MpvalInProgress++
			}
		}
		out.Pending = total - out.Decided
		if total > 0 {
			out.PassRate = int(math.Round(100 * float64(passed) / float64(total)))
		}

		now := s.nowFn()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		for _, e := range view.ListEvents() {
			if e.When.After(monthStart) {
				out.ScheduledThisMonth++
			}
		}
		return nil
	})
	return out, err
}

// KPIRisk computes priority and schedule exposure.
func (s *Service) KPIRisk(ctx context.Context) (RiskKPIs, error) {
	var out RiskKPIs
	err := s.store.View(ctx, func(view TransactionView) error {
		today := s.nowFn().Format("2006-01-02")
		var cycleTotal, cycleCount int
		for _, a := range view.ListActions() {
			openAction := !domain.IsTerminalStatus(a.Status)
			if openAction && a.Priority != nil && *a.Priority == string(domain.PriorityHigh) {
				out.HighPriorityOpen++
			}
			if openAction && overdue(a, today) {
				out.OverdueActions++
			}
			if a.StartDate != nil && a.DueOn != nil {
				start, err1 := time.Parse("2006-01-02", *a.StartDate)
				due, err2 := time.Parse("2006-01-02", *a.DueOn)
				if err1 == nil && err2 == nil {
					cycleTotal += int(due.Sub(start).Hours() / 24)
					cycleCount++
				}
			}
		}
		if cycleCount > 0 {
			avg := int(math.Round(float64(cycleTotal) / float64(cycleCount)))
			out.AvgCycleDays = &avg
		}
		return nil
	})
	return out, err
}

// KPIOwnerLoad buckets non-terminal actions by resolved owner display name,
// sorted descending by open count with name as the tiebreaker.
func (s *Service) KPIOwnerLoad(ctx context.Context) ([]OwnerLoadEntry, error) {
	var out []OwnerLoadEntry
	err := s.store.View(ctx, func(view TransactionView) error {
		today := s.nowFn().Format("2006-01-02")
		buckets := map[string]*OwnerLoadEntry{}
		for _, a := range view.ListActions() {
			if domain.IsTerminalStatus(a.Status) {
				continue
			}
			name := ownerDisplayName(a)
			entry, ok := buckets[name]
			if !ok {
				entry = &OwnerLoadEntry{Owner: name}
				buckets[name] = entry
			}
			entry.Open++
			if overdue(a, today) {
				entry.Overdue++
			}
		}
		out = make([]OwnerLoadEntry, 0, len(buckets))
		for _, entry := range buckets {
			out = append(out, *entry)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Open != out[j].Open {
				return out[i].Open > out[j].Open
			}
			return out[i].Owner < out[j].Owner
		})
		return nil
	})
	return out, err
}
