package tasks

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
	"gorm.io/gorm"
)

// Repository is the read-side contract against the surrounding application's
// task and tenant tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListTenants(ctx context.Context) ([]uuid.UUID, error) {
	var tenants []TenantModel
	if err := r.db.WithContext(ctx).Find(&tenants).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// CountCompleted backs round eligibility: tenants need a minimum of completed
// tasks before their label distribution is meaningful.
func (r *Repository) CountCompleted(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&TaskModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, string(models.StatusCompleted)).
		Count(&count).Error
	return count, err
}

// CompletedTasks returns the tenant's completed tasks with a completion
// timestamp, the raw material for training datasets.
func (r *Repository) CompletedTasks(ctx context.Context, tenantID uuid.UUID) ([]models.Task, error) {
	var rows []TaskModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND completed_at IS NOT NULL", tenantID, string(models.StatusCompleted)).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]models.Task, 0, len(rows))
	for i := range rows {
		result = append(result, toDomain(&rows[i]))
	}
	return result, nil
}

// ActiveTaskCount is the assignee's current open-task workload, used on the
// serving path.
func (r *Repository) ActiveTaskCount(ctx context.Context, assigneeID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&TaskModel{}).
		Where("assignee_id = ? AND status <> ?", assigneeID, string(models.StatusCompleted)).
		Count(&count).Error
	return int(count), err
}

// OnTimeRate is the fraction of the assignee's completed, due-dated tasks that
// finished on or before their due date. Assignees with no such history get a
// neutral 0.5.
func (r *Repository) OnTimeRate(ctx context.Context, assigneeID uuid.UUID) (float64, error) {
	var rows []TaskModel
	err := r.db.WithContext(ctx).
		Where("assignee_id = ? AND status = ? AND completed_at IS NOT NULL AND due_date IS NOT NULL",
			assigneeID, string(models.StatusCompleted)).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.5, nil
	}

	onTime := 0
	for i := range rows {
		if !rows[i].CompletedAt.After(*rows[i].DueDate) {
			onTime++
		}
	}
	return float64(onTime) / float64(len(rows)), nil
}
