package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/observability/metrics"
	"github.com/taskmesh/platform/pkg/tasks"
)

type Service struct {
	tasks              *tasks.Repository
	cache              *ModelCache
	logs               *Repository
	avgCompletionHours float64
}

func NewService(taskRepo *tasks.Repository, cache *ModelCache, logs *Repository, avgCompletionHours float64) *Service {
	if avgCompletionHours <= 0 {
		avgCompletionHours = 24
	}
	return &Service{
		tasks:              taskRepo,
		cache:              cache,
		logs:               logs,
		avgCompletionHours: avgCompletionHours,
	}
}

// GeneratePrediction scores a task with the tenant's latest model, or the
// rule-based fallback when none exists. Signal lookups and model loading
// degrade to defaults on error: a prediction request never hard-fails from
// missing context, only from an unreadable request.
func (s *Service) GeneratePrediction(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	task := models.Task{
		TenantID:    req.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.StatusCreated,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		SLAHours:    req.SLAHours,
		CreatedAt:   time.Now().UTC(),
	}
	if req.TaskID != nil {
		task.ID = *req.TaskID
	}
	if task.Priority == "" {
		return models.PredictionResult{}, fmt.Errorf("priority is required")
	}

	workload := 0
	completionRate := 0.5
	if req.AssigneeID != nil {
		if w, err := s.tasks.ActiveTaskCount(ctx, *req.AssigneeID); err == nil {
			workload = w
		} else {
			logger.Log.WithError(err).Warn("workload lookup failed; assuming zero")
		}
		if rate, err := s.tasks.OnTimeRate(ctx, *req.AssigneeID); err == nil {
			completionRate = rate
		} else {
			logger.Log.WithError(err).Warn("on-time rate lookup failed; assuming neutral")
		}
	}

	scoringCtx := Context{
		Task:               task,
		AssigneeWorkload:   workload,
		CompletionRate:     completionRate,
		AvgCompletionHours: s.avgCompletionHours,
	}

	weights, version, err := s.cache.Latest(ctx, req.TenantID)
	if err != nil {
		logger.Log.WithError(err).WithField("tenant_id", req.TenantID).
			Warn("model lookup failed; using rule-based fallback")
		weights = nil
		version = 0
	}

	result := Score(scoringCtx, weights)
	result.ModelVersion = version
	metrics.IncPredictionServed(weights != nil)

	if s.logs != nil {
		if err := s.logs.RecordPrediction(ctx, req, result); err != nil {
			logger.Log.WithError(err).Warn("failed to record prediction")
		}
	}

	return result, nil
}
