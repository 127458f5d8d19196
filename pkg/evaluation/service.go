// Package evaluation measures stored model versions against a tenant's
// current labeled task history. Unlike the metrics captured at training time,
// these results use the full unbalanced dataset, so they reflect the class
// distribution the model actually faces in production.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/features"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/tasks"
)

var (
	ErrNoModel   = errors.New("no model to evaluate")
	ErrNoExample = errors.New("no labeled tasks to evaluate against")
)

// Summary is the API-facing shape of one evaluation run.
type Summary struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	EvaluationType string     `json:"evaluation_type"`
	RoundID        *uuid.UUID `json:"round_id,omitempty"`
	ModelVersion   int        `json:"model_version"`
	TestSamples    int        `json:"test_samples"`
	Accuracy       float64    `json:"accuracy"`
	Precision      float64    `json:"precision"`
	Recall         float64    `json:"recall"`
	F1             float64    `json:"f1_score"`
	TruePositives  int        `json:"true_positives"`
	TrueNegatives  int        `json:"true_negatives"`
	FalsePositives int        `json:"false_positives"`
	FalseNegatives int        `json:"false_negatives"`
	EvaluatedAt    time.Time  `json:"evaluated_at"`
}

type Service struct {
	tasks   *tasks.Repository
	models  *modelstore.Repository
	results *Repository
}

func NewService(taskRepo *tasks.Repository, modelRepo *modelstore.Repository, resultRepo *Repository) *Service {
	return &Service{tasks: taskRepo, models: modelRepo, results: resultRepo}
}

// Evaluate scores the tenant's latest model version against every labeled
// completed task and persists the result. evalType distinguishes models that
// came out of a federated round from purely local ones; roundID may be nil
// for local evaluations.
func (s *Service) Evaluate(ctx context.Context, tenantID uuid.UUID, evalType string, roundID *uuid.UUID) (*Summary, error) {
	if evalType != TypeLocal && evalType != TypeFederated {
		return nil, fmt.Errorf("unknown evaluation type %q", evalType)
	}

	latest, err := s.models.Latest(ctx, tenantID)
	if err != nil {
		if errors.Is(err, modelstore.ErrModelNotFound) {
			return nil, ErrNoModel
		}
		return nil, fmt.Errorf("loading model: %w", err)
	}
	weights, err := latest.DecodeWeights()
	if err != nil {
		return nil, fmt.Errorf("decoding model weights: %w", err)
	}

	completed, err := s.tasks.CompletedTasks(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading completed tasks: %w", err)
	}
	dataset := features.Build(completed, tasks.AssigneeStats(completed))
	if len(dataset.Examples) == 0 {
		return nil, ErrNoExample
	}

	metrics := linear.Evaluate(weights, dataset.Examples, 0.5)
	cm := linear.Confusion(weights, dataset.Examples, 0.5)

	result := &ResultModel{
		ID:             uuid.New(),
		TenantID:       tenantID,
		EvaluationType: evalType,
		RoundID:        roundID,
		ModelVersion:   latest.Version,
		TestSamples:    len(dataset.Examples),
		Accuracy:       metrics.Accuracy,
		PrecisionScore: metrics.Precision,
		RecallScore:    metrics.Recall,
		F1Score:        metrics.F1,
		TruePositives:  cm.TruePositives,
		TrueNegatives:  cm.TrueNegatives,
		FalsePositives: cm.FalsePositives,
		FalseNegatives: cm.FalseNegatives,
		EvaluatedAt:    time.Now().UTC(),
		Metadata: datatypes.JSONMap{
			"positive_examples": dataset.Positive,
			"negative_examples": dataset.Negative,
			"loss":              metrics.Loss,
		},
	}
	if err := s.results.Insert(ctx, result); err != nil {
		return nil, fmt.Errorf("storing evaluation result: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"tenant_id":       tenantID,
		"evaluation_type": evalType,
		"model_version":   latest.Version,
		"test_samples":    len(dataset.Examples),
		"accuracy":        metrics.Accuracy,
	}).Info("Model evaluation completed")

	return toSummary(result), nil
}

// History returns past evaluation results for a tenant, newest first.
func (s *Service) History(ctx context.Context, tenantID uuid.UUID, limit int) ([]Summary, error) {
	rows, err := s.results.History(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, *toSummary(&rows[i]))
	}
	return summaries, nil
}

func toSummary(r *ResultModel) *Summary {
	return &Summary{
		ID:             r.ID,
		TenantID:       r.TenantID,
		EvaluationType: r.EvaluationType,
		RoundID:        r.RoundID,
		ModelVersion:   r.ModelVersion,
		TestSamples:    r.TestSamples,
		Accuracy:       r.Accuracy,
		Precision:      r.PrecisionScore,
		Recall:         r.RecallScore,
		F1:             r.F1Score,
		TruePositives:  r.TruePositives,
		TrueNegatives:  r.TrueNegatives,
		FalsePositives: r.FalsePositives,
		FalseNegatives: r.FalseNegatives,
		EvaluatedAt:    r.EvaluatedAt,
	}
}
