package domain

import (
	"regexp"
	"strings"
	"time"
)

// Canonical vocabularies. These are soft: out-of-vocabulary values are stored
// as-is and surfaced by the vocabulary rule rather than rejected.
var (
	// Programs lists canonical program identifiers.
	Programs = []string{"A320", "A330", "A350", "A380", "A400M", "BelugaXL"}

	// LatestSubjects lists the gate vocabulary for projection rows.
	LatestSubjects = []string{"MPVAL", "QG0", "QG1", "QG1L"}

	// LatestStatuses lists the projection status vocabulary.
	LatestStatuses = []string{"In Mpval", "Issue", "KO", "MPVAL Pushed", "Passed", "Scheduled"}

	// ActionStatuses lists the canonical work-item statuses.
	ActionStatuses = []string{"Open", "In Progress", "Done", "Skipped", "Blocked"}
)

// NormalizeProgram maps free-text program spellings onto the canonical set.
// Unknown spellings pass through trimmed.
func NormalizeProgram(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(strings.ReplaceAll(s, " ", "")) {
	case "A320", "A320FAM", "A320FAMILY", "SA", "SINGLEAISLE":
		return "A320"
	case "A330", "A330NEO", "A330CEO":
		return "A330"
	case "A350", "A350XWB":
		return "A350"
	case "A380":
		return "A380"
	case "A400M":
		return "A400M"
	case "BELUGAXL", "BLXL", "BELUGA":
		return "BelugaXL"
	}
	return s
}

// Substring status matchers. These intentionally test containment
// case-insensitively, not equality, so composite statuses such as
// "Done (verified)" or "passed w/ remarks" still count.
var (
	terminalStatusRe  = regexp.MustCompile(`(?i)done|skipped|completed`)
	closedPortfolioRe = regexp.MustCompile(`(?i)done|skipped|completed|canceled`)
	decidedStatusRe   = regexp.MustCompile(`(?i)Passed|KO|Issue|MPVAL Pushed`)
	mpvalStatusRe     = regexp.MustCompile(`(?i)In Mpval|MPVAL Pushed`)
	passedStatusRe    = regexp.MustCompile(`(?i)passed`)
)

// IsTerminalStatus reports whether an action status counts as finished.
func IsTerminalStatus(status string) bool { return terminalStatusRe.MatchString(status) }

// IsClosedForPortfolio reports whether an action is out of the open portfolio.
func IsClosedForPortfolio(status string) bool { return closedPortfolioRe.MatchString(status) }

// IsDecidedStatus reports whether a projection status represents a gate decision.
func IsDecidedStatus(status string) bool { return decidedStatusRe.MatchString(status) }

// IsMpvalStatus reports whether a projection status is in the MPVAL pipeline.
func IsMpvalStatus(status string) bool { return mpvalStatusRe.MatchString(status) }

// IsPassedStatus reports whether a projection status counts as a pass.
func IsPassedStatus(status string) bool { return passedStatusRe.MatchString(status) }

// Filters scope board queries. Each dimension accepts a list of values; an
// empty list means "no constraint". DateFrom defaults to the start of the
// current month when no filter state has ever been set.
type Filters struct {
	Program   []string `json:"program,omitempty"`
	ATA       []string `json:"ata,omitempty"`
	Org       []string `json:"org,omitempty"`
	Milestone []string `json:"milestone,omitempty"`
	Status    []string `json:"status,omitempty"`
	Owner     []string `json:"owner,omitempty"`
	Priority  []string `json:"priority,omitempty"`
	DateFrom  string   `json:"dateFrom,omitempty"`
	DateTo    string   `json:"dateTo,omitempty"`
}

// DefaultFilters returns the filter state used when none has been set:
// everything visible from the first day of the current month.
func DefaultFilters(now time.Time) Filters {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Filters{DateFrom: first.Format("2006-01-02")}
}

// IsZero reports whether no dimension or date bound is set.
func (f Filters) IsZero() bool {
	return len(f.Program) == 0 && len(f.ATA) == 0 && len(f.Org) == 0 &&
		len(f.Milestone) == 0 && len(f.Status) == 0 && len(f.Owner) == 0 &&
		len(f.Priority) == 0 && f.DateFrom == "" && f.DateTo == ""
}

// Clone deep-copies the dimension lists so callers never share backing arrays.
func (f Filters) Clone() Filters {
	out := f
	out.Program = cloneStrings(f.Program)
	out.ATA = cloneStrings(f.ATA)
	out.Org = cloneStrings(f.Org)
	out.Milestone = cloneStrings(f.Milestone)
	out.Status = cloneStrings(f.Status)
	out.Owner = cloneStrings(f.Owner)
	out.Priority = cloneStrings(f.Priority)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Merge overlays incoming dimensions onto f. A non-nil incoming list replaces
// the stored one, so an explicit empty list clears that dimension; nil leaves
// it untouched. Non-empty date bounds replace the stored ones.
func (f Filters) Merge(in Filters) Filters {
	out := f.Clone()
	if in.Program != nil {
		out.Program = cloneStrings(in.Program)
	}
	if in.ATA != nil {
		out.ATA = cloneStrings(in.ATA)
	}
	if in.Org != nil {
		out.Org = cloneStrings(in.Org)
	}
	if in.Milestone != nil {
		out.Milestone = cloneStrings(in.Milestone)
	}
	if in.Status != nil {
		out.Status = cloneStrings(in.Status)
	}
	if in.Owner != nil {
		out.Owner = cloneStrings(in.Owner)
	}
	if in.Priority != nil {
		out.Priority = cloneStrings(in.Priority)
	}
	if in.DateFrom != "" {
		out.DateFrom = in.DateFrom
	}
	if in.DateTo != "" {
		out.DateTo = in.DateTo
	}
	return out
}
