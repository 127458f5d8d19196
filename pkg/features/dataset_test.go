package features

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
)

func completedTask(created time.Time, dueOffset, completionOffset time.Duration, assignee *uuid.UUID) models.Task {
	due := created.Add(dueOffset)
	completed := created.Add(completionOffset)
	return models.Task{
		ID:          uuid.New(),
		Priority:    models.PriorityMedium,
		Status:      models.StatusCompleted,
		AssigneeID:  assignee,
		DueDate:     &due,
		CreatedAt:   created,
		CompletedAt: &completed,
	}
}

func TestBuildSkipsUnlabelableTasks(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	due := created.Add(48 * time.Hour)

	tasks := []models.Task{
		completedTask(created, 48*time.Hour, 24*time.Hour, nil),
		{Status: models.StatusInProgress, DueDate: &due, CreatedAt: created},
		{Status: models.StatusCompleted, CreatedAt: created}, // no due date
	}

	ds := Build(tasks, AssigneeContext{})
	if len(ds.Examples) != 1 {
		t.Fatalf("expected exactly one labelable task, got %d", len(ds.Examples))
	}
	if ds.Positive != 0 || ds.Negative != 1 {
		t.Fatalf("expected one on-time example, got %d positive %d negative", ds.Positive, ds.Negative)
	}
	if len(ds.FeatureNames) != VectorSize {
		t.Fatalf("expected %d feature names, got %d", VectorSize, len(ds.FeatureNames))
	}
}

func TestBuildLabelsDelayedTasks(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		completedTask(created, 24*time.Hour, 48*time.Hour, nil), // late
		completedTask(created, 48*time.Hour, 24*time.Hour, nil), // on time
	}

	ds := Build(tasks, AssigneeContext{})
	if ds.Positive != 1 || ds.Negative != 1 {
		t.Fatalf("expected one delayed and one on-time example, got %d/%d", ds.Positive, ds.Negative)
	}
	for _, ex := range ds.Examples {
		if len(ex.Features) != VectorSize {
			t.Fatalf("expected %d features per example, got %d", VectorSize, len(ex.Features))
		}
	}
}

func TestBuildUsesAssigneeContext(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	assignee := uuid.New()

	ctx := AssigneeContext{
		Workloads:       map[uuid.UUID]int{assignee: 8},
		CompletionRates: map[uuid.UUID]float64{assignee: 0.9},
	}
	ds := Build([]models.Task{completedTask(created, 48*time.Hour, 24*time.Hour, &assignee)}, ctx)
	if len(ds.Examples) != 1 {
		t.Fatalf("expected one example, got %d", len(ds.Examples))
	}
	if ds.Examples[0].Features[3] != 0.8 {
		t.Fatalf("expected workload 0.8 from context, got %v", ds.Examples[0].Features[3])
	}
	if ds.Examples[0].Features[4] != 0.9 {
		t.Fatalf("expected completion rate 0.9 from context, got %v", ds.Examples[0].Features[4])
	}

	unknown := uuid.New()
	ds = Build([]models.Task{completedTask(created, 48*time.Hour, 24*time.Hour, &unknown)}, ctx)
	if ds.Examples[0].Features[3] != 0.3 {
		t.Fatalf("expected fallback workload 0.3 for unknown assignee, got %v", ds.Examples[0].Features[3])
	}
	if ds.Examples[0].Features[4] != 0.5 {
		t.Fatalf("expected neutral completion rate for unknown assignee, got %v", ds.Examples[0].Features[4])
	}
}

func TestBalanceEqualizesClasses(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	var tasks []models.Task
	for i := 0; i < 9; i++ {
		tasks = append(tasks, completedTask(created, 48*time.Hour, 24*time.Hour, nil))
	}
	tasks = append(tasks, completedTask(created, 24*time.Hour, 48*time.Hour, nil))

	ds := Build(tasks, AssigneeContext{})
	if ds.Positive != 1 || ds.Negative != 9 {
		t.Fatalf("unexpected raw class counts: %d/%d", ds.Positive, ds.Negative)
	}

	balanced := Balance(ds, rand.New(rand.NewSource(1)))
	if balanced.Positive != balanced.Negative {
		t.Fatalf("expected balanced classes, got %d/%d", balanced.Positive, balanced.Negative)
	}
	if balanced.Negative != 9 {
		t.Fatalf("majority class must be untouched, got %d", balanced.Negative)
	}
	if len(balanced.Examples) != 18 {
		t.Fatalf("expected 18 examples after balancing, got %d", len(balanced.Examples))
	}
}

func TestBalanceLeavesSingleClassUnchanged(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	ds := Build([]models.Task{
		completedTask(created, 48*time.Hour, 24*time.Hour, nil),
		completedTask(created, 48*time.Hour, 24*time.Hour, nil),
	}, AssigneeContext{})

	balanced := Balance(ds, rand.New(rand.NewSource(1)))
	if len(balanced.Examples) != len(ds.Examples) {
		t.Fatalf("single-class dataset must pass through unchanged, got %d examples", len(balanced.Examples))
	}
}
