package evaluation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ResultModel{})
}

func (r *Repository) Insert(ctx context.Context, result *ResultModel) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// History returns the most recent evaluation results for a tenant, newest
// first.
func (r *Repository) History(ctx context.Context, tenantID uuid.UUID, limit int) ([]ResultModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var results []ResultModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("evaluated_at desc").
		Limit(limit).
		Find(&results).Error
	return results, err
}
