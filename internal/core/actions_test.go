package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"caseboard/pkg/domain"
)

var testNow = time.Date(2025, time.May, 17, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService(DefaultRulesEngine(), WithClock(func() time.Time { return testNow }))
}

func eventsOfKind(svc *Service, kind string) []Event {
	var out []Event
	for _, e := range svc.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestRequestValidationCreatesProjectionAndEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	outcome, _, err := svc.RequestValidation(ctx, RequestValidationInput{ModelID: "M1"})
	if err != nil {
		t.Fatalf("RequestValidation: %v", err)
	}
	if !outcome.Applied || outcome.EventID == "" {
		t.Fatalf("outcome = %+v", outcome)
	}

	latest, ok := svc.Store().GetLatest("M1")
	if !ok {
		t.Fatal("projection row not created")
	}
	if latest.Subject != "QG1" || latest.Milestone != "QG1" || latest.Status != "Scheduled" {
		t.Fatalf("projection = %+v", latest)
	}
	if latest.Priority == nil || *latest.Priority != "HIGH" {
		t.Fatalf("priority = %v", latest.Priority)
	}
	if got := eventsOfKind(svc, "Validation Requested"); len(got) != 1 {
		t.Fatalf("events = %d", len(got))
	}
}

func TestRequestValidationKeepsExistingPriority(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.MergeTables(ctx, TableSet{Latest: []LatestStatus{{
		ModelID: "M1", Subject: "MPVAL", Milestone: "MPVAL", Status: "In Mpval", Priority: domain.StringPtr("LOW"),
	}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := svc.RequestValidation(ctx, RequestValidationInput{ModelID: "M1"}); err != nil {
		t.Fatalf("RequestValidation: %v", err)
	}
	latest, _ := svc.Store().GetLatest("M1")
	if latest.Status != "Scheduled" || latest.Subject != "QG1" {
		t.Fatalf("projection = %+v", latest)
	}
	if latest.Priority == nil || *latest.Priority != "LOW" {
		t.Fatalf("existing priority overwritten: %v", latest.Priority)
	}
}

func TestRequestValidationScheduledAndNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	outcome, _, err := svc.RequestValidation(ctx, RequestValidationInput{
		ModelID:        "M1",
		ModelVersionID: "v42",
		Scheduled:      "2025-06-01",
		Note:           "dry run first",
	})
	if err != nil {
		t.Fatalf("RequestValidation: %v", err)
	}
	events := eventsOfKind(svc, "Validation Requested")
	if len(events) != 1 || events[0].EventID != outcome.EventID {
		t.Fatalf("events = %+v", events)
	}
	want := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	if !events[0].When.Equal(want) {
		t.Fatalf("When = %v, want %v", events[0].When, want)
	}
	if events[0].Note == nil || *events[0].Note != "mv=v42 • dry run first" {
		t.Fatalf("Note = %v", events[0].Note)
	}
}

func TestApproveMilestoneAfterRequest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RequestValidation(ctx, RequestValidationInput{ModelID: "M1"}); err != nil {
		t.Fatalf("RequestValidation: %v", err)
	}
	outcome, _, err := svc.ApproveMilestone(ctx, ApproveMilestoneInput{ModelID: "M1", Gate: domain.GateQG1, Decision: domain.DecisionPassed})
	if err != nil {
		t.Fatalf("ApproveMilestone: %v", err)
	}
	if !outcome.Applied {
		t.Fatalf("outcome = %+v", outcome)
	}

	latest, _ := svc.Store().GetLatest("M1")
	if latest.Status != "Passed" || latest.Subject != "QG1" {
		t.Fatalf("projection = %+v", latest)
	}
	if len(eventsOfKind(svc, "QG1 Passed")) != 1 {
		t.Fatal("gate event missing")
	}

	kpis, err := svc.KPIValidation(ctx)
	if err != nil {
		t.Fatalf("KPIValidation: %v", err)
	}
	if kpis.PassRate != 100 || kpis.Decided != 1 || kpis.Pending != 0 {
		t.Fatalf("kpis = %+v", kpis)
	}
}

func TestApproveMilestoneCreatesRowWithMediumPriority(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.ApproveMilestone(ctx, ApproveMilestoneInput{ModelID: "M9", Gate: domain.GateQG0, Decision: domain.DecisionKO}); err != nil {
		t.Fatalf("ApproveMilestone: %v", err)
	}
	latest, ok := svc.Store().GetLatest("M9")
	if !ok {
		t.Fatal("projection row not created")
	}
	if latest.Status != "KO" || latest.Subject != "QG0" || latest.Milestone != "QG0" {
		t.Fatalf("projection = %+v", latest)
	}
	if latest.Priority == nil || *latest.Priority != "MEDIUM" {
		t.Fatalf("priority = %v", latest.Priority)
	}
}

func TestApproveMilestoneRejectsUnknownGate(t *testing.T) {
	svc := newTestService(t)
	if _, _, err := svc.ApproveMilestone(context.Background(), ApproveMilestoneInput{ModelID: "M1", Gate: "QG7", Decision: domain.DecisionPassed}); err == nil {
		t.Fatal("expected gate validation error")
	}
}

func TestCloseCaseTransitionsOpenLinkedActions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.MergeTables(ctx, TableSet{
		Actions: []Action{
			{ActionID: "A-1", Status: "In Progress", Owner: "a"},
			{ActionID: "A-2", Status: "Done", Owner: "b"},
			{ActionID: "A-3", Status: "Open", Owner: "c"},
		},
		Latest: []LatestStatus{{ModelID: "M1", Subject: "MPVAL", Milestone: "MPVAL", Status: "In Mpval"}},
		Links: []Link{
			{ActionID: "A-1", ModelID: "M1"},
			{ActionID: "A-2", ModelID: "M1"},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	outcome, _, err := svc.CloseCase(ctx, CloseCaseInput{ModelID: "M1", Note: "wrap up"})
	if err != nil {
		t.Fatalf("CloseCase: %v", err)
	}
	if !outcome.Applied {
		t.Fatalf("outcome = %+v", outcome)
	}

	a1, _ := svc.Store().GetAction("A-1")
	a2, _ := svc.Store().GetAction("A-2")
	a3, _ := svc.Store().GetAction("A-3")
	if a1.Status != "Done" {
		t.Fatalf("A-1 status = %q", a1.Status)
	}
	if a2.Status != "Done" {
		t.Fatalf("A-2 status = %q", a2.Status)
	}
	if a3.Status != "Open" {
		t.Fatalf("unlinked A-3 touched: %q", a3.Status)
	}
	latest, _ := svc.Store().GetLatest("M1")
	if latest.Status != "MPVAL Pushed" {
		t.Fatalf("projection = %+v", latest)
	}
	if len(eventsOfKind(svc, "Case Closed")) != 1 {
		t.Fatal("expected exactly one Case Closed event")
	}
}

func TestFlagRiskMissingActionIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	outcome, _, err := svc.FlagRisk(ctx, FlagRiskInput{ActionID: "A-unknown", Severity: domain.PriorityHigh, Description: "late"})
	if err != nil {
		t.Fatalf("FlagRisk: %v", err)
	}
	if outcome.Applied || outcome.Skipped == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(svc.Events()) != 0 {
		t.Fatalf("events appended on no-op: %d", len(svc.Events()))
	}
	if len(svc.Actions()) != 0 {
		t.Fatal("store mutated on no-op")
	}
}

func TestFlagRiskWithLinkedModel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.MergeTables(ctx, TableSet{
		Actions: []Action{{ActionID: "A-1", Status: "Open", Answers: domain.StringPtr("prior note")}},
		Latest:  []LatestStatus{{ModelID: "M1", Subject: "QG1", Milestone: "QG1", Status: "Scheduled"}},
		Links:   []Link{{ActionID: "A-1", ModelID: "M1"}, {ActionID: "A-1", ModelID: "M2"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	outcome, _, err := svc.FlagRisk(ctx, FlagRiskInput{ActionID: "A-1", Severity: domain.PriorityHigh, Description: "supplier slip"})
	if err != nil {
		t.Fatalf("FlagRisk: %v", err)
	}
	if !outcome.Applied || outcome.EventID == "" {
		t.Fatalf("outcome = %+v", outcome)
	}

	action, _ := svc.Store().GetAction("A-1")
	if action.Priority == nil || *action.Priority != "HIGH" {
		t.Fatalf("priority = %v", action.Priority)
	}
	if action.Answers == nil || !strings.HasPrefix(*action.Answers, "[RISK HIGH] supplier slip\n") {
		t.Fatalf("answers = %v", action.Answers)
	}
	if !strings.HasSuffix(*action.Answers, "prior note") {
		t.Fatalf("prior answers lost: %v", *action.Answers)
	}

	// First linked model in sorted order is M1.
	latest, _ := svc.Store().GetLatest("M1")
	if latest.Status != "Issue" {
		t.Fatalf("projection = %+v", latest)
	}
	events := eventsOfKind(svc, "Risk Flagged")
	if len(events) != 1 || events[0].ModelID != "M1" {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Note == nil || *events[0].Note != "HIGH: supplier slip" {
		t.Fatalf("note = %v", events[0].Note)
	}
}

func TestFlagRiskWithoutLinkSkipsEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.MergeTables(ctx, TableSet{Actions: []Action{{ActionID: "A-1", Status: "Open"}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	outcome, _, err := svc.FlagRisk(ctx, FlagRiskInput{ActionID: "A-1", Severity: domain.PriorityLow, Description: "minor"})
	if err != nil {
		t.Fatalf("FlagRisk: %v", err)
	}
	if !outcome.Applied || outcome.EventID != "" || outcome.Skipped == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(svc.Events()) != 0 {
		t.Fatal("event recorded without a linked model")
	}
	action, _ := svc.Store().GetAction("A-1")
	if action.Priority == nil || *action.Priority != "LOW" {
		t.Fatalf("priority = %v", action.Priority)
	}
}

func TestUploadEvidenceResolvesModelViaLink(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.MergeTables(ctx, TableSet{
		Actions: []Action{{ActionID: "A-1", Status: "Open"}},
		Links:   []Link{{ActionID: "A-1", ModelID: "M1"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	outcome, _, err := svc.UploadEvidence(ctx, UploadEvidenceInput{
		ActionID: "A-1",
		URI:      "s3://evidence/report.pdf",
		Type:     "report",
		Note:     "final",
	})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}
	if !outcome.Applied {
		t.Fatalf("outcome = %+v", outcome)
	}

	events := eventsOfKind(svc, "Evidence Uploaded")
	if len(events) != 1 || events[0].ModelID != "M1" {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Note == nil || *events[0].Note != "report • s3://evidence/report.pdf • final" {
		t.Fatalf("note = %v", events[0].Note)
	}
	action, _ := svc.Store().GetAction("A-1")
	if action.Answers == nil || !strings.HasPrefix(*action.Answers, "Evidence: s3://evidence/report.pdf") {
		t.Fatalf("answers = %v", action.Answers)
	}
}

func TestUploadEvidenceFallsBackToSentinel(t *testing.T) {
	svc := newTestService(t)

	outcome, _, err := svc.UploadEvidence(context.Background(), UploadEvidenceInput{URI: "file:///tmp/x"})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}
	if !outcome.Applied {
		t.Fatalf("outcome = %+v", outcome)
	}
	events := svc.Events()
	if len(events) != 1 || events[0].ModelID != "N/A" {
		t.Fatalf("events = %+v", events)
	}
}

func TestEventIDsAreSortableAndUnique(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var ids []string
	for range 5 {
		outcome, _, err := svc.UploadEvidence(ctx, UploadEvidenceInput{URI: "file:///x"})
		if err != nil {
			t.Fatalf("UploadEvidence: %v", err)
		}
		ids = append(ids, outcome.EventID)
	}
	seen := map[string]bool{}
	for i, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate event id %q", id)
		}
		seen[id] = true
		if i > 0 && !(ids[i-1] < id) {
			t.Fatalf("ids not monotonically sortable: %v", ids)
		}
	}
}
