package federated

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"gorm.io/datatypes"
)

const (
	StatusPending     = "pending"
	StatusTraining    = "training"
	StatusAggregating = "aggregating"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

const AggregationFederatedAveraging = "federated_averaging"

// RoundModel is one federated cycle. Round numbers are globally unique and
// monotonically increasing; status transitions follow
// training -> aggregating -> completed, with failed terminal from training.
type RoundModel struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	RoundNumber          int               `gorm:"column:round_number;uniqueIndex"`
	GlobalWeights        datatypes.JSON    `gorm:"column:global_weights"`
	ParticipatingTenants datatypes.JSON    `gorm:"column:participating_tenants"`
	AggregationMethod    string            `gorm:"column:aggregation_method"`
	TotalSamples         int               `gorm:"column:total_samples"`
	GlobalAccuracy       *float64          `gorm:"column:global_accuracy"`
	Status               string            `gorm:"column:status;index"`
	StartedAt            *time.Time        `gorm:"column:started_at"`
	CompletedAt          *time.Time        `gorm:"column:completed_at"`
	CreatedAt            time.Time         `gorm:"column:created_at"`
	Metadata             datatypes.JSONMap `gorm:"column:metadata"`
}

func (RoundModel) TableName() string {
	return "federated_training_rounds"
}

func (m *RoundModel) SetParticipants(tenants []uuid.UUID) error {
	payload, err := json.Marshal(tenants)
	if err != nil {
		return err
	}
	m.ParticipatingTenants = datatypes.JSON(payload)
	return nil
}

func (m *RoundModel) Participants() ([]uuid.UUID, error) {
	if len(m.ParticipatingTenants) == 0 {
		return nil, nil
	}
	var tenants []uuid.UUID
	err := json.Unmarshal(m.ParticipatingTenants, &tenants)
	return tenants, err
}

func (m *RoundModel) DecodeGlobalWeights() (linear.Weights, error) {
	var w linear.Weights
	err := json.Unmarshal(m.GlobalWeights, &w)
	return w, err
}

// RoundMetadataModel is one tenant's training outcome within one round, the
// input to aggregation. Rows are insert-only.
type RoundMetadataModel struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	TenantID           uuid.UUID      `gorm:"type:uuid;column:tenant_id;index:idx_round_tenant,unique"`
	RoundID            uuid.UUID      `gorm:"type:uuid;column:round_id;index:idx_round_tenant,unique"`
	LocalWeights       datatypes.JSON `gorm:"column:local_weights"`
	TrainingSamples    int            `gorm:"column:training_samples"`
	ValidationSamples  int            `gorm:"column:validation_samples"`
	TrainingAccuracy   float64        `gorm:"column:training_accuracy"`
	ValidationAccuracy float64        `gorm:"column:validation_accuracy"`
	Loss               float64        `gorm:"column:loss"`
	EpochsCompleted    int            `gorm:"column:epochs_completed"`
	TrainingDurationMs int64          `gorm:"column:training_duration_ms"`
	CreatedAt          time.Time      `gorm:"column:created_at"`
}

func (RoundMetadataModel) TableName() string {
	return "tenant_training_metadata"
}

func (m *RoundMetadataModel) DecodeLocalWeights() (linear.Weights, error) {
	var w linear.Weights
	err := json.Unmarshal(m.LocalWeights, &w)
	return w, err
}

// RoundSummary is the API view of a round.
type RoundSummary struct {
	RoundID              uuid.UUID   `json:"round_id"`
	RoundNumber          int         `json:"round_number"`
	Status               string      `json:"status"`
	ParticipatingTenants []uuid.UUID `json:"participating_tenants"`
	EligibleTenants      int         `json:"eligible_tenants"`
	TotalSamples         int         `json:"total_samples,omitempty"`
	GlobalAccuracy       *float64    `json:"global_accuracy,omitempty"`
	StartedAt            *time.Time  `json:"started_at,omitempty"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
}

// AggregationSummary is the API view of a completed aggregation.
type AggregationSummary struct {
	RoundID              uuid.UUID      `json:"round_id"`
	GlobalWeights        linear.Weights `json:"global_weights"`
	TotalSamples         int            `json:"total_samples"`
	ParticipatingTenants int            `json:"participating_tenants"`
	AverageAccuracy      float64        `json:"average_accuracy"`
}

// TenantOutcome records one tenant's training result inside round metadata
// for audit.
type TenantOutcome struct {
	TenantID     string  `json:"tenant_id"`
	Success      bool    `json:"success"`
	Error        string  `json:"error,omitempty"`
	ModelVersion int     `json:"model_version,omitempty"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	Samples      int     `json:"samples,omitempty"`
}

func roundToSummary(m *RoundModel, eligible int) RoundSummary {
	participants, _ := m.Participants()
	return RoundSummary{
		RoundID:              m.ID,
		RoundNumber:          m.RoundNumber,
		Status:               m.Status,
		ParticipatingTenants: participants,
		EligibleTenants:      eligible,
		TotalSamples:         m.TotalSamples,
		GlobalAccuracy:       m.GlobalAccuracy,
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
	}
}
