// Package federated orchestrates cross-tenant training rounds: eligibility
// selection, concurrent local training, sample-weighted aggregation and
// distribution of the blended global model back to every participant.
package federated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/config"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/features"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/observability/metrics"
	"github.com/taskmesh/platform/pkg/training"
)

var (
	// ErrNoEligibleTenants means no tenant has enough completed tasks; no
	// round row is created in that case.
	ErrNoEligibleTenants = errors.New("no tenants have sufficient training data")
	// ErrAllTrainingFailed means every participant's local training failed;
	// the round is marked failed and is terminal.
	ErrAllTrainingFailed = errors.New("local training failed for all participating tenants")
	// ErrNoRoundMetadata means aggregation was requested before any tenant
	// metadata exists for the round; the round is left unchanged.
	ErrNoRoundMetadata = errors.New("no training metadata found for round")
)

// Trainer is the per-tenant unit of work fanned out during a round.
type Trainer interface {
	TrainLocal(ctx context.Context, tenantID uuid.UUID, roundID *uuid.UUID) (training.Result, error)
}

// TenantDirectory enumerates tenants and their completed-task counts for
// eligibility decisions.
type TenantDirectory interface {
	ListTenants(ctx context.Context) ([]uuid.UUID, error)
	CountCompleted(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Coordinator struct {
	repo      *Repository
	directory TenantDirectory
	trainer   Trainer
	models    *modelstore.Repository
	producer  EventPublisher
	cfg       config.TrainingConfig
}

func NewCoordinator(repo *Repository, directory TenantDirectory, trainer Trainer, models *modelstore.Repository, producer EventPublisher, cfg config.TrainingConfig) *Coordinator {
	return &Coordinator{
		repo:      repo,
		directory: directory,
		trainer:   trainer,
		models:    models,
		producer:  producer,
		cfg:       cfg,
	}
}

// StartRound runs the first phase of a federated cycle: select eligible
// tenants, create the round, train every participant concurrently and record
// per-tenant outcomes. One tenant's failure never aborts the others; the
// round only fails when no tenant succeeds.
func (c *Coordinator) StartRound(ctx context.Context) (RoundSummary, error) {
	eligible, err := c.eligibleTenants(ctx)
	if err != nil {
		return RoundSummary{}, err
	}
	if len(eligible) == 0 {
		return RoundSummary{}, ErrNoEligibleTenants
	}

	lastNumber, err := c.repo.LatestRoundNumber(ctx)
	if err != nil {
		return RoundSummary{}, fmt.Errorf("determine round number: %w", err)
	}

	now := time.Now().UTC()
	round := &RoundModel{
		ID:                uuid.New(),
		RoundNumber:       lastNumber + 1,
		AggregationMethod: AggregationFederatedAveraging,
		Status:            StatusTraining,
		StartedAt:         &now,
	}
	if err := round.SetParticipants(eligible); err != nil {
		return RoundSummary{}, err
	}
	if err := c.repo.CreateRound(ctx, round); err != nil {
		return RoundSummary{}, fmt.Errorf("create round: %w", err)
	}
	metrics.IncRoundStarted()

	c.publish(ctx, "round_started", map[string]interface{}{
		"round_id":     round.ID.String(),
		"round_number": round.RoundNumber,
		"tenants":      len(eligible),
	})

	outcomes := c.fanOutTraining(ctx, round.ID, eligible)

	var successful []uuid.UUID
	for _, o := range outcomes {
		if o.Success {
			id, err := uuid.Parse(o.TenantID)
			if err == nil {
				successful = append(successful, id)
			}
		}
	}

	status := StatusAggregating
	if len(successful) == 0 {
		status = StatusFailed
	}

	participants, err := marshalParticipants(successful)
	if err != nil {
		return RoundSummary{}, err
	}
	err = c.repo.TransitionStatus(ctx, round.ID, StatusTraining, status, map[string]interface{}{
		"participating_tenants": participants,
		"metadata":              outcomeMetadata(outcomes),
	})
	if err != nil {
		return RoundSummary{}, fmt.Errorf("record training outcomes: %w", err)
	}

	round, err = c.repo.GetRound(ctx, round.ID)
	if err != nil {
		return RoundSummary{}, err
	}
	summary := roundToSummary(round, len(eligible))

	if len(successful) == 0 {
		metrics.ObserveRoundOutcome(false, 0)
		c.publish(ctx, "round_failed", map[string]interface{}{
			"round_id": round.ID.String(),
		})
		return summary, ErrAllTrainingFailed
	}

	logger.Log.WithFields(map[string]interface{}{
		"round_id":     round.ID,
		"round_number": round.RoundNumber,
		"eligible":     len(eligible),
		"successful":   len(successful),
	}).Info("Training phase finished")

	return summary, nil
}

// AggregateRound runs the second phase: federated averaging over all tenant
// metadata for the round, then a momentum blend of each tenant's local model
// with the global weights, persisted as that tenant's next model version.
// Any error before the completed transition leaves the round in aggregating.
func (c *Coordinator) AggregateRound(ctx context.Context, roundID uuid.UUID) (AggregationSummary, error) {
	round, err := c.repo.GetRound(ctx, roundID)
	if err != nil {
		return AggregationSummary{}, err
	}
	if round.Status != StatusAggregating {
		return AggregationSummary{}, fmt.Errorf("%w: round %d is %s", ErrRoundConflict, round.RoundNumber, round.Status)
	}

	metadata, err := c.repo.MetadataForRound(ctx, roundID)
	if err != nil {
		return AggregationSummary{}, err
	}
	if len(metadata) == 0 {
		return AggregationSummary{}, ErrNoRoundMetadata
	}

	updates := make([]linear.Update, 0, len(metadata))
	var totalSamples int
	var accuracySum float64
	for i := range metadata {
		weights, err := metadata[i].DecodeLocalWeights()
		if err != nil {
			return AggregationSummary{}, fmt.Errorf("decode local weights for tenant %s: %w", metadata[i].TenantID, err)
		}
		updates = append(updates, linear.Update{Weights: weights, Samples: metadata[i].TrainingSamples})
		totalSamples += metadata[i].TrainingSamples
		accuracySum += metadata[i].TrainingAccuracy
	}

	global, err := linear.Average(updates)
	if err != nil {
		return AggregationSummary{}, err
	}

	// Unweighted mean: the round-level accuracy reports how the typical
	// tenant fared, independent of its data volume.
	avgAccuracy := accuracySum / float64(len(metadata))

	globalJSON, err := marshalWeights(global)
	if err != nil {
		return AggregationSummary{}, err
	}
	completedAt := time.Now().UTC()
	err = c.repo.TransitionStatus(ctx, roundID, StatusAggregating, StatusCompleted, map[string]interface{}{
		"global_weights":  globalJSON,
		"total_samples":   totalSamples,
		"global_accuracy": avgAccuracy,
		"completed_at":    completedAt,
	})
	if err != nil {
		return AggregationSummary{}, err
	}

	for i := range metadata {
		if err := c.distributeToTenant(ctx, &metadata[i], global); err != nil {
			logger.Log.WithError(err).WithField("tenant_id", metadata[i].TenantID).
				Error("failed to distribute global model to tenant")
		}
	}

	metrics.ObserveRoundOutcome(true, len(metadata))
	c.publish(ctx, "round_completed", map[string]interface{}{
		"round_id":        roundID.String(),
		"total_samples":   totalSamples,
		"tenants":         len(metadata),
		"global_accuracy": avgAccuracy,
	})

	logger.Log.WithFields(map[string]interface{}{
		"round_id":      roundID,
		"tenants":       len(metadata),
		"total_samples": totalSamples,
	}).Info("Round aggregated")

	return AggregationSummary{
		RoundID:              roundID,
		GlobalWeights:        global,
		TotalSamples:         totalSamples,
		ParticipatingTenants: len(metadata),
		AverageAccuracy:      avgAccuracy,
	}, nil
}

func (c *Coordinator) eligibleTenants(ctx context.Context) ([]uuid.UUID, error) {
	tenants, err := c.directory.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var eligible []uuid.UUID
	for _, tenant := range tenants {
		count, err := c.directory.CountCompleted(ctx, tenant)
		if err != nil {
			return nil, fmt.Errorf("count completed tasks for %s: %w", tenant, err)
		}
		if count >= int64(c.cfg.MinCompletedTasks) {
			eligible = append(eligible, tenant)
		}
	}
	return eligible, nil
}

// fanOutTraining trains all participants concurrently, bounded by
// MaxParallelTenants, and waits for every outcome. Failures are recorded,
// never propagated.
func (c *Coordinator) fanOutTraining(ctx context.Context, roundID uuid.UUID, tenants []uuid.UUID) []TenantOutcome {
	workers := c.cfg.MaxParallelTenants
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make([]TenantOutcome, 0, len(tenants))
	)

	for _, tenant := range tenants {
		wg.Add(1)
		go func(tenantID uuid.UUID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := TenantOutcome{TenantID: tenantID.String()}
			result, err := c.trainer.TrainLocal(ctx, tenantID, &roundID)
			if err != nil {
				outcome.Error = err.Error()
				logger.Log.WithError(err).WithField("tenant_id", tenantID).
					Warn("local training failed; tenant excluded from round")
			} else {
				outcome.Success = true
				outcome.ModelVersion = result.ModelVersion
				outcome.Accuracy = result.Metrics.Accuracy
				outcome.Samples = result.TrainingSamples + result.ValidationSamples
			}

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(tenant)
	}
	wg.Wait()

	return outcomes
}

// distributeToTenant persists momentum*local + (1-momentum)*global as the
// tenant's next model version.
func (c *Coordinator) distributeToTenant(ctx context.Context, meta *RoundMetadataModel, global linear.Weights) error {
	local, err := meta.DecodeLocalWeights()
	if err != nil {
		return err
	}
	blended, err := linear.HybridUpdate(local, global, c.cfg.Momentum)
	if err != nil {
		return err
	}

	version := &modelstore.ModelVersion{
		TenantID:        meta.TenantID,
		TrainingSamples: meta.TrainingSamples,
		Accuracy:        meta.TrainingAccuracy,
		LastTrainedAt:   time.Now().UTC(),
	}
	if err := version.SetWeights(blended); err != nil {
		return err
	}
	if err := version.SetFeatureNames(features.Names()); err != nil {
		return err
	}
	return c.models.Insert(ctx, version)
}

func (c *Coordinator) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.producer == nil {
		return
	}
	if err := c.producer.PublishEvent(ctx, eventType, "federated-coordinator", data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).
			Warn("failed to publish round event")
	}
}
