package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/tasks"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tasks.TaskModel{}, &modelstore.ModelVersion{}, &PredictionLog{}))

	modelRepo := modelstore.NewRepository(db)
	cache := NewModelCache(nil, modelRepo, time.Minute)
	svc := NewService(tasks.NewRepository(db), cache, NewRepository(db), 24)
	return svc, db
}

func TestGeneratePredictionRequiresPriority(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GeneratePrediction(context.Background(), models.PredictionRequest{
		TenantID: uuid.New(),
	})
	require.Error(t, err)
}

func TestGeneratePredictionFallsBackWithoutModel(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()

	result, err := svc.GeneratePrediction(context.Background(), models.PredictionRequest{
		TenantID: tenantID,
		Priority: models.PriorityCritical,
		DueDate:  ptrTime(time.Now().Add(2 * time.Hour)),
		SLAHours: ptrFloat(8),
		Trigger:  "creation",
	})
	require.NoError(t, err)
	require.Zero(t, result.ModelVersion, "cold-start tenants must be served by the rule-based path")
	require.True(t, result.PredictedDelayed)
	require.NotEmpty(t, result.Recommendations)

	var logs []PredictionLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, tenantID, logs[0].TenantID)
	require.Equal(t, "creation", logs[0].Trigger)
	require.Zero(t, logs[0].ModelVersion)
}

func TestGeneratePredictionUsesStoredModel(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()

	modelRepo := modelstore.NewRepository(db)
	version := &modelstore.ModelVersion{TenantID: tenantID, LastTrainedAt: time.Now().UTC()}
	require.NoError(t, version.SetWeights(linear.Weights{
		Coefficients: make([]float64, 8),
		Intercept:    50, // predicts delay for everything
	}))
	require.NoError(t, modelRepo.Insert(context.Background(), version))

	result, err := svc.GeneratePrediction(context.Background(), models.PredictionRequest{
		TenantID: tenantID,
		Priority: models.PriorityLow,
		DueDate:  ptrTime(time.Now().Add(400 * time.Hour)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.ModelVersion)
	require.True(t, result.PredictedDelayed, "the stored model, not the rules, must drive the outcome")
}

func TestGeneratePredictionUsesAssigneeSignals(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	assignee := uuid.New()

	// Saturate the assignee with open tasks.
	for i := 0; i < 9; i++ {
		row := tasks.TaskModel{
			ID:         uuid.New(),
			TenantID:   tenantID,
			AssigneeID: &assignee,
			Priority:   "medium",
			Status:     "in_progress",
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, db.Create(&row).Error)
	}

	result, err := svc.GeneratePrediction(context.Background(), models.PredictionRequest{
		TenantID:   tenantID,
		Priority:   models.PriorityMedium,
		AssigneeID: &assignee,
		DueDate:    ptrTime(time.Now().Add(100 * time.Hour)),
	})
	require.NoError(t, err)
	require.Equal(t, 0.95, result.Factors.WorkloadScore)
}
