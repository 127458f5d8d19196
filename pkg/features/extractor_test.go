package features

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func sampleTask(reference time.Time) models.Task {
	return models.Task{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Title:    "Migrate billing exports",
		Priority: models.PriorityHigh,
		Status:   models.StatusInProgress,
		DueDate:  ptrTime(reference.Add(72 * time.Hour)),
		SLAHours: ptrFloat(40),
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	reference := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := sampleTask(reference)

	first := Extract(task, 4, 0.8, reference)
	second := Extract(task, 4, 0.8, reference)

	if len(first) != VectorSize {
		t.Fatalf("expected %d features, got %d", VectorSize, len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("feature %d differs between identical calls: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestExtractComponentRanges(t *testing.T) {
	reference := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := sampleTask(reference)

	vector := Extract(task, 25, 1.7, reference)
	for i, v := range vector {
		lo := 0.0
		if Names()[i] == "due_date_gap_normalized" {
			lo = -1
		}
		if v < lo || v > 1 {
			t.Fatalf("feature %s = %v outside [%v, 1]", Names()[i], v, lo)
		}
	}
}

func TestExtractKnownValues(t *testing.T) {
	reference := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := sampleTask(reference)

	vector := Extract(task, 4, 0.8, reference)

	if vector[0] != 2.0/3.0 {
		t.Fatalf("expected high priority encoded as 2/3, got %v", vector[0])
	}
	if vector[1] != 72.0/720.0 {
		t.Fatalf("expected due gap 0.1, got %v", vector[1])
	}
	if vector[2] != 40.0/168.0 {
		t.Fatalf("expected sla 40/168, got %v", vector[2])
	}
	if vector[3] != 0.4 {
		t.Fatalf("expected workload 0.4, got %v", vector[3])
	}
	if vector[4] != 0.8 {
		t.Fatalf("expected completion rate 0.8, got %v", vector[4])
	}
	if vector[6] != 1 {
		t.Fatalf("expected high priority flag set, got %v", vector[6])
	}
	if vector[7] != 1 {
		t.Fatalf("expected sla flag set, got %v", vector[7])
	}
}

func TestExtractDefaultsWithoutDueDateOrSLA(t *testing.T) {
	reference := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := models.Task{Priority: models.PriorityLow, Status: models.StatusCreated}

	vector := Extract(task, 0, 0.5, reference)

	if vector[1] != 168.0/720.0 {
		t.Fatalf("expected default due gap of one week, got %v", vector[1])
	}
	if vector[2] != 24.0/168.0 {
		t.Fatalf("expected default sla of one day, got %v", vector[2])
	}
	if vector[6] != 0 {
		t.Fatalf("low priority should not set the high-priority flag, got %v", vector[6])
	}
	if vector[7] != 0 {
		t.Fatalf("missing sla should clear the sla flag, got %v", vector[7])
	}
}

func TestExtractClampsOverdueTasks(t *testing.T) {
	reference := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := models.Task{
		Priority: models.PriorityMedium,
		DueDate:  ptrTime(reference.Add(-2000 * time.Hour)),
	}

	vector := Extract(task, 0, 0.5, reference)
	if vector[1] != -1 {
		t.Fatalf("expected overdue gap clamped to -1, got %v", vector[1])
	}
}

func TestComplexityScoring(t *testing.T) {
	reference := time.Now()
	task := models.Task{
		Priority:    models.PriorityCritical,
		Description: strings.Repeat("x", 600),
	}

	vector := Extract(task, 0, 0.5, reference)
	if math.Abs(vector[5]-0.9) > 1e-9 {
		t.Fatalf("expected complexity 0.9 for long critical task, got %v", vector[5])
	}

	plain := Extract(models.Task{Priority: models.PriorityLow}, 0, 0.5, reference)
	if plain[5] != 0.5 {
		t.Fatalf("expected baseline complexity 0.5, got %v", plain[5])
	}
}

func TestWasDelayedLabels(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	late := models.Task{
		Status:      models.StatusCompleted,
		DueDate:     &due,
		CompletedAt: ptrTime(due.Add(time.Hour)),
	}
	if delayed, ok := WasDelayed(late); !ok || !delayed {
		t.Fatalf("expected late completion to label delayed, got %v/%v", delayed, ok)
	}

	onTime := models.Task{
		Status:      models.StatusCompleted,
		DueDate:     &due,
		CompletedAt: ptrTime(due.Add(-time.Hour)),
	}
	if delayed, ok := WasDelayed(onTime); !ok || delayed {
		t.Fatalf("expected early completion to label on-time, got %v/%v", delayed, ok)
	}

	open := models.Task{Status: models.StatusInProgress, DueDate: &due}
	if _, ok := WasDelayed(open); ok {
		t.Fatal("open task must not be labelable")
	}

	noDue := models.Task{
		Status:      models.StatusCompleted,
		CompletedAt: ptrTime(due),
	}
	if _, ok := WasDelayed(noDue); ok {
		t.Fatal("task without a due date must not be labelable")
	}

	noTimestamp := models.Task{Status: models.StatusCompleted, DueDate: &due}
	if _, ok := WasDelayed(noTimestamp); ok {
		t.Fatal("completed task without a completion timestamp must not be labelable")
	}
}
