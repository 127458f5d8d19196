package modelstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrModelNotFound = errors.New("no trained model for tenant")

// Repository is the append-only versioned model store. Insert always creates
// a new row with the next version number; nothing here mutates existing
// versions, so concurrent readers never observe a half-written model.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ModelVersion{})
}

// Latest returns the tenant's highest model version.
func (r *Repository) Latest(ctx context.Context, tenantID uuid.UUID) (*ModelVersion, error) {
	var model ModelVersion
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("model_version desc").
		First(&model)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	return &model, result.Error
}

// Insert assigns the next version number and creates the row. The unique
// (tenant_id, model_version) index turns a concurrent same-version insert
// into an error instead of a silent overwrite.
func (r *Repository) Insert(ctx context.Context, model *ModelVersion) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	var maxVersion int64
	err := r.db.WithContext(ctx).
		Model(&ModelVersion{}).
		Where("tenant_id = ?", model.TenantID).
		Select("COALESCE(MAX(model_version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return err
	}
	model.Version = int(maxVersion) + 1

	return r.db.WithContext(ctx).Create(model).Error
}

// History returns a tenant's model versions, newest first.
func (r *Repository) History(ctx context.Context, tenantID uuid.UUID, limit int) ([]ModelVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	var versions []ModelVersion
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("model_version desc").
		Limit(limit).
		Find(&versions).Error
	return versions, err
}
