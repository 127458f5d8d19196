// Package training turns one tenant's task history into a new model version.
// It backs both the standalone "refresh my model" operation and the per-tenant
// unit of work fanned out by the federated coordinator.
package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/config"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/features"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/observability/metrics"
	"github.com/taskmesh/platform/pkg/tasks"
)

// ErrInsufficientData marks the expected "not enough history yet" outcome.
// Callers should surface it as a retry-later condition, not a system failure.
var ErrInsufficientData = errors.New("insufficient training data")

// RoundMetadata is the hand-off artifact a federated round consumes during
// aggregation: the tenant's local weights plus the scalars needed to weight
// and audit them. Created once per tenant per round, never mutated.
type RoundMetadata struct {
	RoundID            uuid.UUID
	TenantID           uuid.UUID
	Weights            linear.Weights
	TrainingSamples    int
	ValidationSamples  int
	TrainingAccuracy   float64
	ValidationAccuracy float64
	Loss               float64
	EpochsCompleted    int
	Duration           time.Duration
}

type MetadataStore interface {
	InsertRoundMetadata(ctx context.Context, meta RoundMetadata) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Result struct {
	TenantID          uuid.UUID      `json:"tenant_id"`
	ModelVersion      int            `json:"model_version"`
	TrainingSamples   int            `json:"training_samples"`
	ValidationSamples int            `json:"validation_samples"`
	Metrics           linear.Metrics `json:"metrics"`
	EpochsCompleted   int            `json:"epochs_completed"`
	DurationMs        int64          `json:"training_duration_ms"`
	FeatureNames      []string       `json:"feature_names"`
	SingleClass       bool           `json:"single_class"`
}

type Service struct {
	tasks    *tasks.Repository
	models   *modelstore.Repository
	metadata MetadataStore
	producer EventPublisher
	cfg      config.TrainingConfig
}

// NewService wires a trainer. The metadata store and producer may be nil for
// standalone use outside a federated round.
func NewService(taskRepo *tasks.Repository, modelRepo *modelstore.Repository, metadata MetadataStore, producer EventPublisher, cfg config.TrainingConfig) *Service {
	return &Service{
		tasks:    taskRepo,
		models:   modelRepo,
		metadata: metadata,
		producer: producer,
		cfg:      cfg,
	}
}

// TrainLocal trains a fresh model on the tenant's own completed tasks and
// persists it as the tenant's next model version. When roundID is set, the
// local weights are additionally recorded as round metadata for aggregation.
func (s *Service) TrainLocal(ctx context.Context, tenantID uuid.UUID, roundID *uuid.UUID) (_ Result, err error) {
	start := time.Now()
	defer func() { metrics.IncTrainingRun(err != nil) }()

	completed, err := s.tasks.CompletedTasks(ctx, tenantID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch completed tasks: %w", err)
	}
	if len(completed) < s.cfg.MinCompletedTasks {
		return Result{}, fmt.Errorf("%w: need at least %d completed tasks, have %d",
			ErrInsufficientData, s.cfg.MinCompletedTasks, len(completed))
	}

	dataset := features.Build(completed, tasks.AssigneeStats(completed))
	if len(dataset.Examples) < s.cfg.MinTrainingExamples {
		return Result{}, fmt.Errorf("%w: need at least %d labeled examples, have %d",
			ErrInsufficientData, s.cfg.MinTrainingExamples, len(dataset.Examples))
	}

	singleClass := dataset.Positive == 0 || dataset.Negative == 0
	if singleClass {
		logger.Log.WithFields(map[string]interface{}{
			"tenant_id": tenantID,
			"positive":  dataset.Positive,
			"negative":  dataset.Negative,
		}).Warn("training on a single-class dataset; metrics will be trivial")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dataset = features.Balance(dataset, rng)

	trained, err := linear.Train(dataset.Examples, linear.Options{
		LearningRate:    s.cfg.LearningRate,
		Epochs:          s.cfg.Epochs,
		Regularization:  s.cfg.Regularization,
		ValidationSplit: s.cfg.ValidationSplit,
		Rand:            rng,
	})
	if err != nil {
		return Result{}, fmt.Errorf("train logistic model: %w", err)
	}

	version := &modelstore.ModelVersion{
		TenantID:        tenantID,
		TrainingSamples: len(dataset.Examples),
		Accuracy:        trained.Metrics.Accuracy,
		PrecisionScore:  trained.Metrics.Precision,
		RecallScore:     trained.Metrics.Recall,
		F1Score:         trained.Metrics.F1,
		LastTrainedAt:   time.Now().UTC(),
	}
	if err := version.SetWeights(trained.Weights); err != nil {
		return Result{}, err
	}
	if err := version.SetFeatureNames(dataset.FeatureNames); err != nil {
		return Result{}, err
	}
	if err := s.models.Insert(ctx, version); err != nil {
		return Result{}, fmt.Errorf("persist model version: %w", err)
	}

	duration := time.Since(start)

	if roundID != nil && s.metadata != nil {
		meta := RoundMetadata{
			RoundID:            *roundID,
			TenantID:           tenantID,
			Weights:            trained.Weights,
			TrainingSamples:    trained.TrainingSamples,
			ValidationSamples:  trained.ValidationSamples,
			TrainingAccuracy:   trained.TrainingAccuracy,
			ValidationAccuracy: trained.Metrics.Accuracy,
			Loss:               trained.Metrics.Loss,
			EpochsCompleted:    trained.Epochs,
			Duration:           duration,
		}
		if err := s.metadata.InsertRoundMetadata(ctx, meta); err != nil {
			return Result{}, fmt.Errorf("persist round metadata: %w", err)
		}
	}

	s.publishTrained(ctx, tenantID, version.Version, trained.Metrics.Accuracy)

	logger.Log.WithFields(map[string]interface{}{
		"tenant_id":     tenantID,
		"model_version": version.Version,
		"samples":       len(dataset.Examples),
		"accuracy":      trained.Metrics.Accuracy,
	}).Info("Local model trained")

	return Result{
		TenantID:          tenantID,
		ModelVersion:      version.Version,
		TrainingSamples:   trained.TrainingSamples,
		ValidationSamples: trained.ValidationSamples,
		Metrics:           trained.Metrics,
		EpochsCompleted:   trained.Epochs,
		DurationMs:        duration.Milliseconds(),
		FeatureNames:      dataset.FeatureNames,
		SingleClass:       singleClass,
	}, nil
}

func (s *Service) publishTrained(ctx context.Context, tenantID uuid.UUID, version int, accuracy float64) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishEvent(ctx, "model_trained", "training-service", map[string]interface{}{
		"tenant_id":     tenantID.String(),
		"model_version": version,
		"accuracy":      accuracy,
	})
	if err != nil {
		logger.Log.WithError(err).Warn("failed to publish model_trained event")
	}
}
