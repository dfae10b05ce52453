package core

import (
	"context"
	"fmt"

	"caseboard/pkg/domain"
)

// VocabularyRule warns when a projection row carries a subject or status
// outside the gate vocabulary. Out-of-vocabulary values are tolerated — the
// normalizers never reject — so the rule surfaces drift without blocking.
type VocabularyRule struct{}

// Name identifies the rule.
func (VocabularyRule) Name() string { return "latest-status-vocabulary" }

// Evaluate inspects changed projection rows against the closed enums.
func (VocabularyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityLatestStatus {
			continue
		}
		latest, ok := change.After.(domain.LatestStatus)
		if !ok {
			continue
		}
		if !contains(domain.LatestSubjects, latest.Subject) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "latest-status-vocabulary",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("subject %q outside gate vocabulary", latest.Subject),
				Entity:   domain.EntityLatestStatus,
				EntityID: latest.ModelID,
			})
		}
		if !contains(domain.LatestStatuses, latest.Status) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "latest-status-vocabulary",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("status %q outside projection vocabulary", latest.Status),
				Entity:   domain.EntityLatestStatus,
				EntityID: latest.ModelID,
			})
		}
	}
	return res, nil
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

// DefaultRulesEngine returns an engine preloaded with the standard rules.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(VocabularyRule{})
	return engine
}
