package modelstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"gorm.io/datatypes"
)

// ModelVersion is one immutable row in a tenant's model history. Versions are
// only ever inserted; the highest version per tenant is authoritative for
// serving.
type ModelVersion struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	TenantID        uuid.UUID      `gorm:"type:uuid;column:tenant_id;index:idx_tenant_version,unique"`
	Version         int            `gorm:"column:model_version;index:idx_tenant_version,unique"`
	Weights         datatypes.JSON `gorm:"column:weights"`
	FeatureNames    datatypes.JSON `gorm:"column:feature_names"`
	TrainingSamples int            `gorm:"column:training_samples"`
	Accuracy        float64        `gorm:"column:accuracy"`
	PrecisionScore  float64        `gorm:"column:precision_score"`
	RecallScore     float64        `gorm:"column:recall_score"`
	F1Score         float64        `gorm:"column:f1_score"`
	LastTrainedAt   time.Time      `gorm:"column:last_trained_at"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
}

func (ModelVersion) TableName() string {
	return "tenant_model_versions"
}

func (m *ModelVersion) SetWeights(w linear.Weights) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	m.Weights = datatypes.JSON(payload)
	return nil
}

func (m *ModelVersion) DecodeWeights() (linear.Weights, error) {
	var w linear.Weights
	err := json.Unmarshal(m.Weights, &w)
	return w, err
}

func (m *ModelVersion) SetFeatureNames(names []string) error {
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	m.FeatureNames = datatypes.JSON(payload)
	return nil
}

func (m *ModelVersion) DecodeFeatureNames() ([]string, error) {
	var names []string
	err := json.Unmarshal(m.FeatureNames, &names)
	return names, err
}
