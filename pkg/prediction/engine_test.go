package prediction

import (
	"testing"
	"time"

	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/ml/linear"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestScoreFallsBackWithoutModel(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityCritical,
			DueDate:  ptrTime(reference.Add(2 * time.Hour)),
			SLAHours: ptrFloat(8),
		},
		AssigneeWorkload: 9,
		CompletionRate:   0.2,
		Reference:        reference,
	}

	result := Score(ctx, nil)
	if !result.PredictedDelayed {
		t.Fatalf("expected a delay prediction for a saturated assignee on a tight deadline, got %+v", result)
	}
	if result.ConfidenceScore < 0 || result.ConfidenceScore > 1 {
		t.Fatalf("confidence out of range: %v", result.ConfidenceScore)
	}
	if result.RiskLevel != models.RiskCritical {
		t.Fatalf("expected critical risk, got %s", result.RiskLevel)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations for a predicted delay")
	}
}

func TestScoreRuleBasedLowRisk(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityLow,
			DueDate:  ptrTime(reference.Add(400 * time.Hour)),
			SLAHours: ptrFloat(8),
		},
		AssigneeWorkload: 0,
		CompletionRate:   0.95,
		Reference:        reference,
	}

	result := Score(ctx, nil)
	if result.PredictedDelayed {
		t.Fatalf("expected an on-track prediction, got %+v", result)
	}
	if result.RiskLevel != models.RiskLow {
		t.Fatalf("expected low risk, got %s", result.RiskLevel)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "Task is on track for on-time completion" {
		t.Fatalf("expected the on-track message, got %v", result.Recommendations)
	}
}

func TestScoreUsesModelWhenPresent(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityLow,
			DueDate:  ptrTime(reference.Add(400 * time.Hour)),
		},
		AssigneeWorkload: 0,
		CompletionRate:   0.95,
		Reference:        reference,
	}

	// A model with a huge positive intercept predicts delay no matter what
	// the rule-based path would say.
	alarmist := &linear.Weights{
		Coefficients: make([]float64, 8),
		Intercept:    50,
	}
	result := Score(ctx, alarmist)
	if !result.PredictedDelayed {
		t.Fatalf("expected the model to drive the prediction, got %+v", result)
	}
	if result.RiskLevel != models.RiskCritical {
		t.Fatalf("expected critical risk at probability ~1, got %s", result.RiskLevel)
	}
}

func TestScoreFactorsAreRuleBasedOnBothPaths(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityHigh,
			DueDate:  ptrTime(reference.Add(30 * time.Hour)),
			SLAHours: ptrFloat(20),
		},
		AssigneeWorkload: 5,
		CompletionRate:   0.6,
		Reference:        reference,
	}

	model := &linear.Weights{Coefficients: make([]float64, 8), Intercept: -50}
	withModel := Score(ctx, model)
	withoutModel := Score(ctx, nil)

	if withModel.Factors != withoutModel.Factors {
		t.Fatalf("factors must not depend on the scoring path: %+v vs %+v",
			withModel.Factors, withoutModel.Factors)
	}
}

func TestScoreFactorValues(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityHigh,
			DueDate:  ptrTime(reference.Add(30 * time.Hour)),
			SLAHours: ptrFloat(40),
		},
		AssigneeWorkload: 5,
		CompletionRate:   0.8,
		Reference:        reference,
	}

	result := Score(ctx, nil)
	f := result.Factors
	if f.PriorityScore != 0.6 {
		t.Fatalf("expected priority score 0.6, got %v", f.PriorityScore)
	}
	if f.DueDateGapScore != 0.5 {
		t.Fatalf("expected due-date score 0.5 for a 30h window, got %v", f.DueDateGapScore)
	}
	if f.WorkloadScore != 0.6 {
		t.Fatalf("expected workload score 0.6 for 5 active tasks, got %v", f.WorkloadScore)
	}
	if f.SLARiskScore != 0.8 {
		t.Fatalf("expected sla score 0.8 when estimate exceeds remaining time, got %v", f.SLARiskScore)
	}
	if f.HistoricalScore != 0.3 {
		t.Fatalf("expected historical score 0.3 at 80%% on-time, got %v", f.HistoricalScore)
	}
}

func TestScoreOverdueTaskIsMaximalDeadlineRisk(t *testing.T) {
	reference := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := Context{
		Task: models.Task{
			Priority: models.PriorityMedium,
			DueDate:  ptrTime(reference.Add(-time.Hour)),
		},
		Reference: reference,
	}

	result := Score(ctx, nil)
	if result.Factors.DueDateGapScore != 1.0 {
		t.Fatalf("expected due-date score 1.0 for an overdue task, got %v", result.Factors.DueDateGapScore)
	}
	if result.Factors.SLARiskScore != 1.0 {
		t.Fatalf("expected sla score 1.0 for an overdue task, got %v", result.Factors.SLARiskScore)
	}
}

func TestScoreNoDueDateUsesNeutralFactors(t *testing.T) {
	ctx := Context{
		Task: models.Task{Priority: models.PriorityMedium},
	}

	result := Score(ctx, nil)
	if result.Factors.DueDateGapScore != 0.3 {
		t.Fatalf("expected neutral due-date score without a deadline, got %v", result.Factors.DueDateGapScore)
	}
	if result.Factors.SLARiskScore != 0.3 {
		t.Fatalf("expected neutral sla score without a deadline, got %v", result.Factors.SLARiskScore)
	}
}
