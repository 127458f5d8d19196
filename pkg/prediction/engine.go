// Package prediction scores open tasks for delay risk. A tenant with a
// trained model is scored through its logistic weights; a cold-start tenant
// falls back to a fixed rule-based score, so prediction requests never fail
// for lack of a model.
package prediction

import (
	"math"
	"time"

	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/features"
	"github.com/taskmesh/platform/pkg/ml/linear"
)

// Context bundles the task with the assignee signals needed for scoring.
// Reference defaults to time.Now when zero; tests pin it for determinism.
type Context struct {
	Task               models.Task
	AssigneeWorkload   int
	CompletionRate     float64
	AvgCompletionHours float64
	Reference          time.Time
}

const delayThreshold = 0.5

// Rule-based factor weights. Deadline pressure and SLA fit dominate;
// priority and track record temper the score.
const (
	weightPriority   = 0.15
	weightDueDate    = 0.25
	weightWorkload   = 0.20
	weightSLA        = 0.25
	weightHistorical = 0.15
)

var priorityRisk = map[models.TaskPriority]float64{
	models.PriorityLow:      0.1,
	models.PriorityMedium:   0.3,
	models.PriorityHigh:     0.6,
	models.PriorityCritical: 0.9,
}

// Score produces a prediction for one task. When model is nil the rule-based
// path supplies the probability; otherwise the feature vector is scored
// through the model. The five factors are computed from the same rule-based
// sub-scores on both paths, so a factor always means the same thing to a
// consumer regardless of which path produced the probability.
func Score(ctx Context, model *linear.Weights) models.PredictionResult {
	if ctx.Reference.IsZero() {
		ctx.Reference = time.Now()
	}
	if ctx.AvgCompletionHours <= 0 {
		ctx.AvgCompletionHours = 24
	}

	factors := ruleFactors(ctx)

	var probability float64
	if model != nil {
		vector := features.Extract(ctx.Task, ctx.AssigneeWorkload, ctx.CompletionRate, ctx.Reference)
		probability = linear.Predict(*model, vector)
	} else {
		probability = clamp01(factors.PriorityScore*weightPriority +
			factors.DueDateGapScore*weightDueDate +
			factors.WorkloadScore*weightWorkload +
			factors.SLARiskScore*weightSLA +
			factors.HistoricalScore*weightHistorical)
	}

	predicted := probability >= delayThreshold

	return models.PredictionResult{
		PredictedDelayed: predicted,
		ConfidenceScore:  math.Round(probability*100) / 100,
		RiskLevel:        riskLevel(probability, predicted),
		Factors:          factors,
		Recommendations:  recommendations(factors, probability, predicted),
	}
}

func ruleFactors(ctx Context) models.PredictionFactors {
	return models.PredictionFactors{
		PriorityScore:   priorityRisk[ctx.Task.Priority],
		DueDateGapScore: dueDateGapScore(ctx.Task.DueDate, ctx.Reference),
		WorkloadScore:   workloadScore(ctx.AssigneeWorkload),
		SLARiskScore:    slaRiskScore(ctx.Task.SLAHours, ctx.Task.DueDate, ctx.AvgCompletionHours, ctx.Reference),
		HistoricalScore: historicalScore(ctx.CompletionRate),
	}
}

// dueDateGapScore: less time remaining means more risk.
func dueDateGapScore(dueDate *time.Time, reference time.Time) float64 {
	if dueDate == nil {
		return 0.3
	}
	hoursRemaining := dueDate.Sub(reference).Hours()
	switch {
	case hoursRemaining < 0:
		return 1.0
	case hoursRemaining < 4:
		return 0.9
	case hoursRemaining < 24:
		return 0.7
	case hoursRemaining < 48:
		return 0.5
	case hoursRemaining < 72:
		return 0.3
	case hoursRemaining < 168:
		return 0.2
	default:
		return 0.1
	}
}

func workloadScore(activeTasks int) float64 {
	switch {
	case activeTasks == 0:
		return 0.1
	case activeTasks <= 2:
		return 0.2
	case activeTasks <= 4:
		return 0.4
	case activeTasks <= 6:
		return 0.6
	case activeTasks <= 8:
		return 0.8
	default:
		return 0.95
	}
}

// slaRiskScore compares the estimated effort (SLA hours, or the tenant's
// average completion time) against the time actually remaining.
func slaRiskScore(slaHours *float64, dueDate *time.Time, avgCompletionHours float64, reference time.Time) float64 {
	if dueDate == nil {
		return 0.3
	}
	hoursRemaining := dueDate.Sub(reference).Hours()
	if hoursRemaining <= 0 {
		return 1.0
	}

	estimated := avgCompletionHours
	if slaHours != nil && *slaHours > 0 {
		estimated = *slaHours
	}
	if estimated <= 0 {
		estimated = 8
	}

	ratio := estimated / hoursRemaining
	switch {
	case ratio > 1.5:
		return 0.95
	case ratio > 1.0:
		return 0.8
	case ratio > 0.75:
		return 0.6
	case ratio > 0.5:
		return 0.4
	default:
		return 0.2
	}
}

func historicalScore(completionRate float64) float64 {
	switch {
	case completionRate >= 0.9:
		return 0.1
	case completionRate >= 0.75:
		return 0.3
	case completionRate >= 0.5:
		return 0.5
	case completionRate >= 0.25:
		return 0.7
	default:
		return 0.9
	}
}

func riskLevel(probability float64, predicted bool) models.DelayRiskLevel {
	if !predicted {
		if probability > 0.3 {
			return models.RiskMedium
		}
		return models.RiskLow
	}
	switch {
	case probability >= 0.8:
		return models.RiskCritical
	case probability >= 0.6:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

func recommendations(factors models.PredictionFactors, probability float64, predicted bool) []string {
	if !predicted {
		return []string{"Task is on track for on-time completion"}
	}

	var recs []string
	if factors.WorkloadScore > 0.6 {
		recs = append(recs, "Consider reassigning to reduce workload imbalance")
	}
	if factors.DueDateGapScore > 0.7 {
		recs = append(recs, "Deadline is approaching - prioritize this task")
	}
	if factors.SLARiskScore > 0.7 {
		recs = append(recs, "SLA timeline is at risk - consider extending deadline")
	}
	if factors.HistoricalScore > 0.6 {
		recs = append(recs, "Assignee may benefit from additional support")
	}
	if factors.PriorityScore > 0.7 && probability > 0.7 {
		recs = append(recs, "High priority task requires immediate attention")
	}
	if len(recs) == 0 {
		recs = append(recs, "Monitor task progress closely")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
