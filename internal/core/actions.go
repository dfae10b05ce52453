package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caseboard/pkg/domain"
)

// parseScheduledDate interprets an ISO date as 09:00 UTC that day.
func parseScheduledDate(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad scheduled date %q", date)
	}
	return t.Add(9 * time.Hour), nil
}

// noteSeparator joins the optional fragments of an event note.
const noteSeparator = " • "

func joinNote(parts ...string) *string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	joined := strings.Join(kept, noteSeparator)
	return &joined
}

// prependLine places line above the existing free-text body, preserving the
// prior content below it.
func prependLine(line string, existing *string) *string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &line
	}
	combined := line + "\n" + *existing
	return &combined
}

// RequestValidationInput schedules a QG1 validation for a model.
type RequestValidationInput struct {
	ModelID        string `json:"modelId"`
	ModelVersionID string `json:"modelVersionId,omitempty"`
	Scheduled      string `json:"scheduled,omitempty"` // ISO date, interpreted as 09:00 UTC
	Note           string `json:"note,omitempty"`
}

// RequestValidation sets the model's projection to a scheduled QG1 review,
// creating the row with priority HIGH when absent, and appends a
// "Validation Requested" event.
func (s *Service) RequestValidation(ctx context.Context, in RequestValidationInput) (Outcome, Result, error) {
	if in.ModelID == "" {
		return Outcome{}, Result{}, fmt.Errorf("request validation: model id is required")
	}
	var outcome Outcome
	var res Result
	err := s.instrument(ctx, "request_validation", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			next := LatestStatus{ModelID: in.ModelID, Subject: "QG1", Milestone: "QG1", Status: "Scheduled"}
			if _, ok := tx.FindLatest(in.ModelID); !ok {
				next.Priority = domain.StringPtr(string(domain.PriorityHigh))
			}
			if _, err := tx.MergeLatest(next); err != nil {
				return err
			}

			when := s.nowFn()
			if in.Scheduled != "" {
				t, err := parseScheduledDate(in.Scheduled)
				if err != nil {
					return fmt.Errorf("request validation: %w", err)
				}
				when = t
			}
			var versionTag string
			if in.ModelVersionID != "" {
				versionTag = "mv=" + in.ModelVersionID
			}
			event := Event{
				EventID: s.newEventID(),
				ModelID: in.ModelID,
				When:    when,
				Kind:    "Validation Requested",
				Note:    joinNote(versionTag, in.Note),
			}
			if _, err := tx.AppendEvent(event); err != nil {
				return err
			}
			outcome = Outcome{Applied: true, EventID: event.EventID}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return outcome, res, err
}

// ApproveMilestoneInput records a gate decision for a model.
type ApproveMilestoneInput struct {
	ModelID  string          `json:"modelId"`
	Gate     domain.Gate     `json:"gate"`
	Decision domain.Decision `json:"decision"`
	Note     string          `json:"note,omitempty"`
}

// ApproveMilestone sets the model's projection subject and milestone to the
// gate and its status to the decision, creating the row first when absent
// (default priority MEDIUM), and appends a "{gate} {decision}" event.
func (s *Service) ApproveMilestone(ctx context.Context, in ApproveMilestoneInput) (Outcome, Result, error) {
	if in.ModelID == "" {
		return Outcome{}, Result{}, fmt.Errorf("approve milestone: model id is required")
	}
	switch in.Gate {
	case domain.GateQG0, domain.GateQG1, domain.GateQG2:
	default:
		return Outcome{}, Result{}, fmt.Errorf("approve milestone: unknown gate %q", in.Gate)
	}
	switch in.Decision {
	case domain.DecisionPassed, domain.DecisionKO:
	default:
		return Outcome{}, Result{}, fmt.Errorf("approve milestone: unknown decision %q", in.Decision)
	}

	var outcome Outcome
	var res Result
	err := s.instrument(ctx, "approve_milestone", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindLatest(in.ModelID); !ok {
				seed := LatestStatus{
					ModelID:   in.ModelID,
					Subject:   string(in.Gate),
					Milestone: string(in.Gate),
					Status:    "Scheduled",
					Priority:  domain.StringPtr(string(domain.PriorityMedium)),
				}
				if _, err := tx.MergeLatest(seed); err != nil {
					return err
				}
			}
			status := "Passed"
			if in.Decision == domain.DecisionKO {
				status = "KO"
			}
			_, err := tx.UpdateLatest(in.ModelID, func(l *LatestStatus) error {
				l.Subject = string(in.Gate)
				l.Milestone = string(in.Gate)
				l.Status = status
				return nil
			})
			if err != nil {
				return err
			}

			event := Event{
				EventID: s.newEventID(),
				ModelID: in.ModelID,
				When:    s.nowFn(),
				Kind:    fmt.Sprintf("%s %s", in.Gate, in.Decision),
				Note:    joinNote(in.Note),
			}
			if _, err := tx.AppendEvent(event); err != nil {
				return err
			}
			outcome = Outcome{Applied: true, EventID: event.EventID}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return outcome, res, err
}

// FlagRiskInput raises the priority of a tracker item and marks its linked
// model as at risk.
type FlagRiskInput struct {
	ActionID    string          `json:"actionId"`
	Severity    domain.Priority `json:"severity"`
	Description string          `json:"description"`
}

// FlagRisk sets the action's priority to the severity and prepends a tagged
// risk line to its answers. When the action links to a model, the first
// linked model's existing projection row is set to "Issue" and a
// "Risk Flagged" event is appended; without a link no event is recorded.
// A missing action is a no-op reported through the outcome.
func (s *Service) FlagRisk(ctx context.Context, in FlagRiskInput) (Outcome, Result, error) {
	if in.ActionID == "" {
		return Outcome{}, Result{}, fmt.Errorf("flag risk: action id is required")
	}
	switch in.Severity {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return Outcome{}, Result{}, fmt.Errorf("flag risk: unknown severity %q", in.Severity)
	}

	var outcome Outcome
	var res Result
	err := s.instrument(ctx, "flag_risk", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.FindAction(in.ActionID); !ok {
				outcome = Outcome{Applied: false, Skipped: fmt.Sprintf("action %q not found", in.ActionID)}
				return nil
			}
			riskLine := fmt.Sprintf("[RISK %s] %s", in.Severity, in.Description)
			_, err := tx.UpdateAction(in.ActionID, func(a *Action) error {
				a.Priority = domain.StringPtr(string(in.Severity))
				a.Answers = prependLine(riskLine, a.Answers)
				return nil
			})
			if err != nil {
				return err
			}

			linked := tx.LinkedModels(in.ActionID)
			if len(linked) == 0 {
				outcome = Outcome{Applied: true, Skipped: "no linked model; no event recorded"}
				return nil
			}
			modelID := linked[0]
			if _, ok := tx.FindLatest(modelID); ok {
				if _, err := tx.UpdateLatest(modelID, func(l *LatestStatus) error {
					l.Status = "Issue"
					return nil
				}); err != nil {
					return err
				}
			}
			event := Event{
				EventID: s.newEventID(),
				ModelID: modelID,
				When:    s.nowFn(),
				Kind:    "Risk Flagged",
				Note:    joinNote(fmt.Sprintf("%s: %s", in.Severity, in.Description)),
			}
			if _, err := tx.AppendEvent(event); err != nil {
				return err
			}
			outcome = Outcome{Applied: true, EventID: event.EventID}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return outcome, res, err
}

// UploadEvidenceInput attaches an evidence reference to an action or model.
type UploadEvidenceInput struct {
	ActionID string `json:"actionId,omitempty"`
	ModelID  string `json:"modelId,omitempty"`
	URI      string `json:"uri"`
	Type     string `json:"type,omitempty"`
	Note     string `json:"note,omitempty"`
}

// UploadEvidence appends an "Evidence Uploaded" event against the explicit
// model, else the model linked to the action, else the "N/A" sentinel. When
// the action exists, an "Evidence: {uri}" line is prepended to its answers.
func (s *Service) UploadEvidence(ctx context.Context, in UploadEvidenceInput) (Outcome, Result, error) {
	if in.URI == "" {
		return Outcome{}, Result{}, fmt.Errorf("upload evidence: uri is required")
	}

	var outcome Outcome
	var res Result
	err := s.instrument(ctx, "upload_evidence", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			modelID := in.ModelID
			if modelID == "" && in.ActionID != "" {
				if linked := tx.LinkedModels(in.ActionID); len(linked) > 0 {
					modelID = linked[0]
				}
			}
			if modelID == "" {
				modelID = "N/A"
			}

			var skipped string
			if in.ActionID != "" {
				if _, ok := tx.FindAction(in.ActionID); ok {
					evidenceLine := "Evidence: " + in.URI
					if _, err := tx.UpdateAction(in.ActionID, func(a *Action) error {
						a.Answers = prependLine(evidenceLine, a.Answers)
						return nil
					}); err != nil {
						return err
					}
				} else {
					skipped = fmt.Sprintf("action %q not found; evidence recorded as event only", in.ActionID)
				}
			}

			event := Event{
				EventID: s.newEventID(),
				ModelID: modelID,
				When:    s.nowFn(),
				Kind:    "Evidence Uploaded",
				Note:    joinNote(in.Type, in.URI, in.Note),
			}
			if _, err := tx.AppendEvent(event); err != nil {
				return err
			}
			outcome = Outcome{Applied: true, Skipped: skipped, EventID: event.EventID}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return outcome, res, err
}

// CloseCaseInput closes out every open action linked to a model.
type CloseCaseInput struct {
	ModelID string `json:"modelId"`
	Note    string `json:"note,omitempty"`
}

// CloseCase transitions every non-terminal linked action to "Done", pushes an
// MPVAL projection to "MPVAL Pushed", and appends a "Case Closed" event.
func (s *Service) CloseCase(ctx context.Context, in CloseCaseInput) (Outcome, Result, error) {
	if in.ModelID == "" {
		return Outcome{}, Result{}, fmt.Errorf("close case: model id is required")
	}

	var outcome Outcome
	var res Result
	err := s.instrument(ctx, "close_case", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			closed := 0
			for _, linked := range tx.Snapshot().ActionsByModel(in.ModelID) {
				if domain.IsTerminalStatus(linked.Status) {
					continue
				}
				if _, err := tx.UpdateAction(linked.ActionID, func(a *Action) error {
					a.Status = "Done"
					return nil
				}); err != nil {
					return err
				}
				closed++
			}

			if latest, ok := tx.FindLatest(in.ModelID); ok && latest.Subject == "MPVAL" {
				if _, err := tx.UpdateLatest(in.ModelID, func(l *LatestStatus) error {
					l.Status = "MPVAL Pushed"
					return nil
				}); err != nil {
					return err
				}
			}

			event := Event{
				EventID: s.newEventID(),
				ModelID: in.ModelID,
				When:    s.nowFn(),
				Kind:    "Case Closed",
				Note:    joinNote(in.Note),
			}
			if _, err := tx.AppendEvent(event); err != nil {
				return err
			}
			outcome = Outcome{Applied: true, EventID: event.EventID}
			if closed == 0 {
				outcome.Skipped = "no open linked actions"
			}
			return nil
		})
		return err
	})
	s.logWarnings(res)
	return outcome, res, err
}
