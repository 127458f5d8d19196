package prediction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the audit trail of served predictions, used for trend
// display and post-hoc comparison against actual outcomes.
type PredictionLog struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	TaskID           *uuid.UUID        `gorm:"type:uuid;column:task_id"`
	TenantID         uuid.UUID         `gorm:"type:uuid;column:tenant_id;index"`
	PredictedDelayed bool              `gorm:"column:predicted_delayed"`
	ConfidenceScore  float64           `gorm:"column:confidence_score"`
	RiskLevel        string            `gorm:"column:risk_level"`
	Factors          datatypes.JSONMap `gorm:"column:prediction_factors"`
	ModelVersion     int               `gorm:"column:model_version"`
	Trigger          string            `gorm:"column:prediction_trigger"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
}

func (PredictionLog) TableName() string {
	return "delay_predictions"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, req models.PredictionRequest, result models.PredictionResult) error {
	log := PredictionLog{
		ID:               uuid.New(),
		TaskID:           req.TaskID,
		TenantID:         req.TenantID,
		PredictedDelayed: result.PredictedDelayed,
		ConfidenceScore:  result.ConfidenceScore,
		RiskLevel:        string(result.RiskLevel),
		Factors: datatypes.JSONMap{
			"priority_score":     result.Factors.PriorityScore,
			"due_date_gap_score": result.Factors.DueDateGapScore,
			"workload_score":     result.Factors.WorkloadScore,
			"sla_risk_score":     result.Factors.SLARiskScore,
			"historical_score":   result.Factors.HistoricalScore,
		},
		ModelVersion: result.ModelVersion,
		Trigger:      req.Trigger,
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns a tenant's most recent predictions up to limit.
func (r *Repository) Recent(ctx context.Context, tenantID uuid.UUID, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
