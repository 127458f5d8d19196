package features

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/ml/linear"
)

// Dataset is a labeled example set for one tenant, together with the class
// counts needed for balancing.
type Dataset struct {
	Examples     []linear.Example
	FeatureNames []string
	Positive     int
	Negative     int
}

// AssigneeContext supplies the per-assignee signals used during extraction.
// Unknown assignees fall back to a moderate workload and a neutral on-time
// rate; unassigned tasks get zero workload.
type AssigneeContext struct {
	Workloads       map[uuid.UUID]int
	CompletionRates map[uuid.UUID]float64
}

const (
	fallbackWorkload       = 3
	fallbackCompletionRate = 0.5
)

// Build converts completed tasks into training examples. Tasks that cannot be
// labeled (open, missing completion timestamp, or missing due date) are
// skipped. Features are extracted at each task's creation time so training
// never sees hindsight.
func Build(tasks []models.Task, ctx AssigneeContext) Dataset {
	ds := Dataset{FeatureNames: Names()}

	for _, task := range tasks {
		delayed, ok := WasDelayed(task)
		if !ok {
			continue
		}

		workload := 0
		rate := fallbackCompletionRate
		if task.AssigneeID != nil {
			workload = fallbackWorkload
			if w, found := ctx.Workloads[*task.AssigneeID]; found {
				workload = w
			}
			if r, found := ctx.CompletionRates[*task.AssigneeID]; found {
				rate = r
			}
		}

		label := 0.0
		if delayed {
			label = 1
			ds.Positive++
		} else {
			ds.Negative++
		}

		ds.Examples = append(ds.Examples, linear.Example{
			Features: Extract(task, workload, rate, task.CreatedAt),
			Label:    label,
		})
	}

	return ds
}

// Balance oversamples the minority class by random-with-replacement
// duplication until the class counts match. A dataset where either class is
// empty is returned unchanged; the trainer will produce a trivial classifier
// and the caller is expected to flag it.
func Balance(ds Dataset, rng *rand.Rand) Dataset {
	if ds.Positive == 0 || ds.Negative == 0 {
		return ds
	}

	var minority, majority []linear.Example
	for _, ex := range ds.Examples {
		if ex.Label == 1 {
			minority = append(minority, ex)
		} else {
			majority = append(majority, ex)
		}
	}
	if len(minority) > len(majority) {
		minority, majority = majority, minority
	}
	if len(minority) == len(majority) {
		return ds
	}

	balanced := make([]linear.Example, 0, 2*len(majority))
	balanced = append(balanced, majority...)
	balanced = append(balanced, minority...)
	for i := len(minority); i < len(majority); i++ {
		balanced = append(balanced, minority[rng.Intn(len(minority))])
	}

	out := Dataset{Examples: balanced, FeatureNames: ds.FeatureNames}
	for _, ex := range balanced {
		if ex.Label == 1 {
			out.Positive++
		} else {
			out.Negative++
		}
	}
	return out
}
