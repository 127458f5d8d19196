package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/tasks"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tasks.TaskModel{}, &modelstore.ModelVersion{}, &ResultModel{}))
	return db
}

func seedLabeledTasks(t *testing.T, db *gorm.DB, tenantID uuid.UUID, delayed, onTime int) {
	t.Helper()
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	i := 0
	add := func(late bool) {
		created := base.Add(time.Duration(i) * time.Hour)
		i++
		due := created.Add(48 * time.Hour)
		completed := created.Add(24 * time.Hour)
		if late {
			completed = created.Add(72 * time.Hour)
		}
		row := tasks.TaskModel{
			ID:          uuid.New(),
			TenantID:    tenantID,
			Priority:    "medium",
			Status:      "completed",
			DueDate:     &due,
			CreatedAt:   created,
			CompletedAt: &completed,
		}
		require.NoError(t, db.Create(&row).Error)
	}
	for n := 0; n < delayed; n++ {
		add(true)
	}
	for n := 0; n < onTime; n++ {
		add(false)
	}
}

func insertModel(t *testing.T, db *gorm.DB, tenantID uuid.UUID, weights linear.Weights) {
	t.Helper()
	repo := modelstore.NewRepository(db)
	version := &modelstore.ModelVersion{TenantID: tenantID, LastTrainedAt: time.Now().UTC()}
	require.NoError(t, version.SetWeights(weights))
	require.NoError(t, repo.Insert(context.Background(), version))
}

func newTestService(db *gorm.DB) *Service {
	return NewService(tasks.NewRepository(db), modelstore.NewRepository(db), NewRepository(db))
}

func TestEvaluateWithoutModel(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)

	_, err := svc.Evaluate(context.Background(), uuid.New(), TypeLocal, nil)
	require.ErrorIs(t, err, ErrNoModel)
}

func TestEvaluateRejectsUnknownType(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)

	_, err := svc.Evaluate(context.Background(), uuid.New(), "experimental", nil)
	require.Error(t, err)
}

func TestEvaluateWithoutLabeledTasks(t *testing.T) {
	db := newTestDB(t)
	tenantID := uuid.New()

	// Completed tasks without due dates cannot be labeled.
	now := time.Now().UTC()
	row := tasks.TaskModel{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Priority:    "medium",
		Status:      "completed",
		CreatedAt:   now.Add(-48 * time.Hour),
		CompletedAt: &now,
	}
	require.NoError(t, db.Create(&row).Error)
	insertModel(t, db, tenantID, linear.Weights{Coefficients: make([]float64, 8), Intercept: 0})

	svc := newTestService(db)
	_, err := svc.Evaluate(context.Background(), tenantID, TypeLocal, nil)
	require.ErrorIs(t, err, ErrNoExample)
}

func TestEvaluatePersistsConfusionCounts(t *testing.T) {
	db := newTestDB(t)
	tenantID := uuid.New()
	seedLabeledTasks(t, db, tenantID, 6, 6)

	// An always-negative model: every delayed task becomes a false negative.
	insertModel(t, db, tenantID, linear.Weights{Coefficients: make([]float64, 8), Intercept: -10})

	svc := newTestService(db)
	roundID := uuid.New()
	summary, err := svc.Evaluate(context.Background(), tenantID, TypeFederated, &roundID)
	require.NoError(t, err)

	require.Equal(t, TypeFederated, summary.EvaluationType)
	require.Equal(t, &roundID, summary.RoundID)
	require.Equal(t, 1, summary.ModelVersion)
	require.Equal(t, 12, summary.TestSamples)
	require.InDelta(t, 0.5, summary.Accuracy, 1e-9)
	require.Equal(t, 0, summary.TruePositives)
	require.Equal(t, 6, summary.TrueNegatives)
	require.Equal(t, 0, summary.FalsePositives)
	require.Equal(t, 6, summary.FalseNegatives)

	history, err := svc.History(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, summary.ID, history[0].ID)
}
