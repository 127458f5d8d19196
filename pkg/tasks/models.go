package tasks

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/common/models"
)

// TaskModel maps the externally owned tasks table. The learning subsystem
// only ever reads it.
type TaskModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;column:id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;column:tenant_id;index"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	Priority    string     `gorm:"column:priority"`
	Status      string     `gorm:"column:status;index"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid;column:assignee_id"`
	DueDate     *time.Time `gorm:"column:due_date"`
	SLAHours    *float64   `gorm:"column:sla_hours"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (TaskModel) TableName() string {
	return "tasks"
}

// TenantModel maps the tenant directory.
type TenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (TenantModel) TableName() string {
	return "tenants"
}

func toDomain(m *TaskModel) models.Task {
	return models.Task{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Title:       m.Title,
		Description: m.Description,
		Priority:    models.TaskPriority(m.Priority),
		Status:      models.TaskStatus(m.Status),
		AssigneeID:  m.AssigneeID,
		DueDate:     m.DueDate,
		SLAHours:    m.SLAHours,
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}
