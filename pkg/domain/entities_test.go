package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestActionMergeIsIdempotent(t *testing.T) {
	base := Action{ActionID: "A-1", Subject: "FFDP review", Owner: "d.fernandez", Status: "Open"}
	in := Action{ActionID: "A-1", Status: "In Progress", DueOn: StringPtr("2025-05-02")}

	once := base.Merge(in)
	twice := once.Merge(in)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("merge not idempotent (-once +twice):\n%s", diff)
	}
	if once.Status != "In Progress" {
		t.Fatalf("expected status overlay, got %q", once.Status)
	}
	if once.Subject != "FFDP review" {
		t.Fatalf("empty incoming field erased stored value: %q", once.Subject)
	}
}

func TestActionMergeDisjointFieldsOrderTolerant(t *testing.T) {
	base := Action{ActionID: "A-2", Subject: "QG1 prep", Owner: "a.martin", Status: "Open"}
	left := Action{ActionID: "A-2", DueOn: StringPtr("2025-06-01")}
	right := Action{ActionID: "A-2", Priority: StringPtr("HIGH")}

	lr := base.Merge(left).Merge(right)
	rl := base.Merge(right).Merge(left)
	if diff := cmp.Diff(lr, rl); diff != "" {
		t.Fatalf("disjoint merges not order tolerant (-lr +rl):\n%s", diff)
	}
}

func TestLatestStatusMergeKeepsPriority(t *testing.T) {
	base := LatestStatus{ModelID: "A320:ATA21:FFDP", Subject: "QG1", Milestone: "QG1", Status: "Scheduled", Priority: StringPtr("HIGH")}
	got := base.Merge(LatestStatus{ModelID: "A320:ATA21:FFDP", Status: "Passed"})
	if got.Status != "Passed" {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Priority == nil || *got.Priority != "HIGH" {
		t.Fatalf("priority lost during merge: %+v", got.Priority)
	}
}

func TestLinkKey(t *testing.T) {
	l := Link{ActionID: "A-1", ModelID: "A350:ATA30:WIPS"}
	if got := l.Key(); got != "A-1::A350:ATA30:WIPS" {
		t.Fatalf("key = %q", got)
	}
}

func TestStatusMatchers(t *testing.T) {
	cases := []struct {
		status   string
		terminal bool
		closed   bool
	}{
		{"Done", true, true},
		{"done (verified)", true, true},
		{"Skipped", true, true},
		{"Completed early", true, true},
		{"Canceled", false, true},
		{"In Progress", false, false},
		{"Open", false, false},
	}
	for _, tc := range cases {
		if got := IsTerminalStatus(tc.status); got != tc.terminal {
			t.Errorf("IsTerminalStatus(%q) = %v, want %v", tc.status, got, tc.terminal)
		}
		if got := IsClosedForPortfolio(tc.status); got != tc.closed {
			t.Errorf("IsClosedForPortfolio(%q) = %v, want %v", tc.status, got, tc.closed)
		}
	}
	if !IsDecidedStatus("MPVAL Pushed") || IsDecidedStatus("Scheduled") {
		t.Fatal("decided matcher mismatch")
	}
	if !IsMpvalStatus("In Mpval") || IsMpvalStatus("Passed") {
		t.Fatal("mpval matcher mismatch")
	}
}

func TestStatusMatchersIgnoreCase(t *testing.T) {
	for _, status := range []string{"passed", "PASSED", "ko", "issue raised", "mpval pushed"} {
		if !IsDecidedStatus(status) {
			t.Errorf("IsDecidedStatus(%q) = false, want true", status)
		}
	}
	for _, status := range []string{"in mpval", "MPVAL PUSHED"} {
		if !IsMpvalStatus(status) {
			t.Errorf("IsMpvalStatus(%q) = false, want true", status)
		}
	}
	if !IsPassedStatus("passed w/ remarks") || IsPassedStatus("MPVAL Pushed") {
		t.Fatal("passed matcher mismatch")
	}
}

func TestNormalizeProgram(t *testing.T) {
	cases := map[string]string{
		"a320":         "A320",
		"A320 FAM":     "A320",
		"Single Aisle": "A320",
		"a350 xwb":     "A350",
		"BLXL":         "BelugaXL",
		" A400M ":      "A400M",
		"Falcon9":      "Falcon9",
	}
	for in, want := range cases {
		if got := NormalizeProgram(in); got != want {
			t.Errorf("NormalizeProgram(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultFilters(t *testing.T) {
	now := time.Date(2025, time.May, 17, 12, 30, 0, 0, time.UTC)
	f := DefaultFilters(now)
	if f.DateFrom != "2025-05-01" {
		t.Fatalf("DateFrom = %q", f.DateFrom)
	}
}

func TestFiltersMergeOverlaysPresentDimensions(t *testing.T) {
	base := Filters{Program: []string{"A320"}, DateFrom: "2025-05-01"}
	got := base.Merge(Filters{Owner: []string{"d.fernandez", "a.martin"}})
	want := Filters{Program: []string{"A320"}, Owner: []string{"d.fernandez", "a.martin"}, DateFrom: "2025-05-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	// An explicit empty list clears the dimension; nil leaves it alone.
	cleared := got.Merge(Filters{Program: []string{}})
	if len(cleared.Program) != 0 {
		t.Fatalf("program not cleared: %+v", cleared.Program)
	}
	if diff := cmp.Diff(want.Owner, cleared.Owner); diff != "" {
		t.Fatalf("owner disturbed by unrelated merge (-want +got):\n%s", diff)
	}
}

func TestFiltersIsZeroAndClone(t *testing.T) {
	if !(Filters{}).IsZero() {
		t.Fatal("empty filters should be zero")
	}
	f := Filters{Milestone: []string{"QG1"}}
	if f.IsZero() {
		t.Fatal("filters with a milestone list should not be zero")
	}
	cp := f.Clone()
	cp.Milestone[0] = "QG2"
	if f.Milestone[0] != "QG1" {
		t.Fatal("clone shares backing array with original")
	}
}

func TestResultHasBlocking(t *testing.T) {
	var r Result
	r.Merge(Result{Violations: []Violation{{Rule: "vocab", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Fatal("warn severity should not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "strict", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Fatal("block severity should block")
	}
}
