package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/observability/metrics"
)

// ModelCache is a read-through Redis cache in front of the append-only model
// store. Because model versions are insert-only, a cached entry can only ever
// be stale, never wrong; staleness is bounded by the TTL and trimmed further
// by invalidation on model_trained events.
type ModelCache struct {
	redis  *redis.Client
	models *modelstore.Repository
	ttl    time.Duration
}

type cachedModel struct {
	Version int            `json:"version"`
	Weights linear.Weights `json:"weights"`
}

func NewModelCache(client *redis.Client, models *modelstore.Repository, ttl time.Duration) *ModelCache {
	return &ModelCache{redis: client, models: models, ttl: ttl}
}

// Latest returns the tenant's newest weights and version, or (nil, 0) when
// the tenant has no trained model. Redis failures degrade to a direct store
// read; they never fail a prediction.
func (c *ModelCache) Latest(ctx context.Context, tenantID uuid.UUID) (*linear.Weights, int, error) {
	key := cacheKey(tenantID)

	if c.redis != nil {
		payload, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached cachedModel
			if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
				metrics.IncModelCache(true)
				return &cached.Weights, cached.Version, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).Warn("model cache read failed; falling back to store")
		}
	}

	metrics.IncModelCache(false)
	model, err := c.models.Latest(ctx, tenantID)
	if errors.Is(err, modelstore.ErrModelNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	weights, err := model.DecodeWeights()
	if err != nil {
		return nil, 0, fmt.Errorf("decode stored weights: %w", err)
	}

	if c.redis != nil {
		payload, err := json.Marshal(cachedModel{Version: model.Version, Weights: weights})
		if err == nil {
			if setErr := c.redis.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
				logger.Log.WithError(setErr).Warn("model cache write failed")
			}
		}
	}

	return &weights, model.Version, nil
}

// Invalidate drops the cached entry so the next prediction sees the new
// version immediately.
func (c *ModelCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		logger.Log.WithError(err).WithField("tenant_id", tenantID).Warn("model cache invalidation failed")
	}
}

func cacheKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("taskmesh:model:%s", tenantID)
}
