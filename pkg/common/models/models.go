package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

type TaskStatus string

const (
	StatusCreated    TaskStatus = "created"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
)

// Task is the read model of the externally owned task record. The learning
// subsystem never writes tasks; it only derives features and labels from them.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	AssigneeID  *uuid.UUID   `json:"assignee_id,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	SLAHours    *float64     `json:"sla_hours,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

type DelayRiskLevel string

const (
	RiskLow      DelayRiskLevel = "low"
	RiskMedium   DelayRiskLevel = "medium"
	RiskHigh     DelayRiskLevel = "high"
	RiskCritical DelayRiskLevel = "critical"
)

// PredictionFactors are the five interpretable sub-scores behind a prediction.
// Every field is risk-oriented: values lie in [0,1] and higher means riskier,
// regardless of whether the rule-based or the model path produced the score.
type PredictionFactors struct {
	PriorityScore   float64 `json:"priority_score"`
	DueDateGapScore float64 `json:"due_date_gap_score"`
	WorkloadScore   float64 `json:"workload_score"`
	SLARiskScore    float64 `json:"sla_risk_score"`
	HistoricalScore float64 `json:"historical_score"`
}

type PredictionRequest struct {
	TaskID      *uuid.UUID   `json:"task_id,omitempty"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	SLAHours    *float64     `json:"sla_hours,omitempty"`
	AssigneeID  *uuid.UUID   `json:"assignee_id,omitempty"`
	Trigger     string       `json:"trigger,omitempty"` // creation, in_progress
}

type PredictionResult struct {
	PredictedDelayed bool              `json:"predicted_delayed"`
	ConfidenceScore  float64           `json:"confidence_score"`
	RiskLevel        DelayRiskLevel    `json:"risk_level"`
	Factors          PredictionFactors `json:"factors"`
	Recommendations  []string          `json:"recommendations"`
	ModelVersion     int               `json:"model_version"` // 0 = rule-based fallback
}

// Event is the payload shape published to the model-events topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // model_trained, round_started, round_completed, round_failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
