package tasks

import (
	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/features"
)

// AssigneeStats derives per-assignee historical on-time rates from a tenant's
// completed task history. Completed tasks without a due date count as on time.
// Workloads are not reconstructible retroactively, so the training path leaves
// them to the dataset builder's moderate default.
func AssigneeStats(tasks []models.Task) features.AssigneeContext {
	type tally struct {
		total  int
		onTime int
	}
	tallies := make(map[uuid.UUID]*tally)

	for _, task := range tasks {
		if task.AssigneeID == nil || task.CompletedAt == nil {
			continue
		}
		t := tallies[*task.AssigneeID]
		if t == nil {
			t = &tally{}
			tallies[*task.AssigneeID] = t
		}
		t.total++
		if task.DueDate == nil || !task.CompletedAt.After(*task.DueDate) {
			t.onTime++
		}
	}

	rates := make(map[uuid.UUID]float64, len(tallies))
	for id, t := range tallies {
		rates[id] = float64(t.onTime) / float64(t.total)
	}

	return features.AssigneeContext{CompletionRates: rates}
}
