package evaluation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TypeLocal     = "local"
	TypeFederated = "federated"
)

// ResultModel records one post-hoc evaluation of a stored model against a
// tenant's current labeled history, with raw confusion counts so federated
// and purely-local models can be compared over time.
type ResultModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	TenantID       uuid.UUID         `gorm:"type:uuid;column:tenant_id;index"`
	EvaluationType string            `gorm:"column:evaluation_type"`
	RoundID        *uuid.UUID        `gorm:"type:uuid;column:round_id"`
	ModelVersion   int               `gorm:"column:model_version"`
	TestSamples    int               `gorm:"column:test_samples"`
	Accuracy       float64           `gorm:"column:accuracy"`
	PrecisionScore float64           `gorm:"column:precision_score"`
	RecallScore    float64           `gorm:"column:recall_score"`
	F1Score        float64           `gorm:"column:f1_score"`
	TruePositives  int               `gorm:"column:true_positives"`
	TrueNegatives  int               `gorm:"column:true_negatives"`
	FalsePositives int               `gorm:"column:false_positives"`
	FalseNegatives int               `gorm:"column:false_negatives"`
	EvaluatedAt    time.Time         `gorm:"column:evaluated_at"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata"`
}

func (ResultModel) TableName() string {
	return "model_evaluation_results"
}
