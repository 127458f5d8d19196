// Package features converts task records into the fixed-order numeric vectors
// consumed by training and scoring. Extraction is a pure function: the same
// task, context and reference time always yield the same vector, which is the
// property the whole subsystem's correctness rests on.
package features

import (
	"time"

	"github.com/taskmesh/platform/pkg/common/models"
)

// VectorSize is the length of every feature vector and weight vector.
const VectorSize = 8

const (
	hoursPerWeek   = 168.0
	hoursPerMonth  = 720.0 // the ±30 day clamp window for due-date gaps
	defaultSLA     = 24.0  // assumed effort when a task carries no SLA
	workloadCap    = 10.0  // 10+ concurrent tasks counts as saturated
	defaultDueGap  = hoursPerWeek / hoursPerMonth
	highPriorityAt = 0.5
)

var priorityEncoding = map[models.TaskPriority]float64{
	models.PriorityLow:      0,
	models.PriorityMedium:   1,
	models.PriorityHigh:     2,
	models.PriorityCritical: 3,
}

// Names returns the canonical ordered feature names. The list is persisted
// with every model version so stored weight vectors stay interpretable.
func Names() []string {
	return []string{
		"priority_encoded",
		"due_date_gap_normalized",
		"sla_hours_normalized",
		"assignee_workload_normalized",
		"assignee_historical_completion_rate",
		"task_complexity",
		"is_high_priority",
		"has_sla",
	}
}

// Extract builds the 8-feature vector for a task. Workload is the assignee's
// count of currently open tasks, completionRate their historical on-time rate
// in [0,1]. The reference time is the task creation time on the training path
// and "now" at inference, so features only ever reflect information available
// at prediction time.
//
// Every component lies in [0,1] except the due-date gap, which lies in [-1,1]
// (negative = overdue at the reference time).
func Extract(task models.Task, workload int, completionRate float64, reference time.Time) []float64 {
	priority := priorityEncoding[task.Priority] / 3

	dueGap := defaultDueGap
	if task.DueDate != nil {
		gapHours := task.DueDate.Sub(reference).Hours()
		dueGap = clamp(gapHours/hoursPerMonth, -1, 1)
	}

	sla := defaultSLA
	if task.SLAHours != nil {
		sla = *task.SLAHours
	}

	normalizedWorkload := clamp(float64(workload)/workloadCap, 0, 1)

	hasSLA := 0.0
	if task.SLAHours != nil {
		hasSLA = 1
	}
	isHighPriority := 0.0
	if priority > highPriorityAt {
		isHighPriority = 1
	}

	return []float64{
		priority,
		dueGap,
		clamp(sla/hoursPerWeek, 0, 1),
		normalizedWorkload,
		clamp(completionRate, 0, 1),
		complexity(task),
		isHighPriority,
		hasSLA,
	}
}

// complexity is a crude heuristic: moderate by default, nudged up by long
// descriptions and by elevated priority, capped at 1.
func complexity(task models.Task) float64 {
	score := 0.5

	if length := len(task.Description); length > 500 {
		score += 0.2
	} else if length > 200 {
		score += 0.1
	}

	switch task.Priority {
	case models.PriorityCritical:
		score += 0.2
	case models.PriorityHigh:
		score += 0.1
	}

	return clamp(score, 0, 1)
}

// WasDelayed returns the ground-truth label for a task. The second return is
// false when no label can be derived: the task is not completed, has no
// completion timestamp, or has no due date. Tasks without due dates are
// excluded from training rather than defaulted to "not delayed".
func WasDelayed(task models.Task) (bool, bool) {
	if task.Status != models.StatusCompleted || task.CompletedAt == nil {
		return false, false
	}
	if task.DueDate == nil {
		return false, false
	}
	return task.CompletedAt.After(*task.DueDate), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
