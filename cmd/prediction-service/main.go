package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskmesh/platform/pkg/common/config"
	"github.com/taskmesh/platform/pkg/common/database"
	"github.com/taskmesh/platform/pkg/common/kafka"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/observability/metrics"
	"github.com/taskmesh/platform/pkg/prediction"
	"github.com/taskmesh/platform/pkg/tasks"
)

func main() {
	logger.Init("prediction-service")
	cfg := config.Load()
	metrics.Init()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	modelRepo := modelstore.NewRepository(db)
	if err := modelRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate model tables")
	}
	logRepo := prediction.NewRepository(db)
	if err := logRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate prediction tables")
	}
	taskRepo := tasks.NewRepository(db)

	cache := prediction.NewModelCache(database.GetRedis(), modelRepo, cfg.ModelCacheTTL)
	svc := prediction.NewService(taskRepo, cache, logRepo, cfg.Training.AvgCompletionHours)
	handler := prediction.NewHTTPHandler(svc, modelRepo, logRepo, cfg.MaxRequestBody)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Newly trained models invalidate the cached entry so predictions pick
	// up the new version before the TTL expires.
	consumer := kafka.NewConsumer(cfg.ModelEventsTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
			if event.Type != "model_trained" {
				return nil
			}
			raw, ok := event.Data["tenant_id"].(string)
			if !ok {
				return nil
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				return nil
			}
			cache.Invalidate(ctx, tenantID)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Error("model event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.PredictionServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.PredictionServicePort,
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Warn("failed to close redis connection")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("failed to close postgres connection")
	}

	logger.Log.Info("Prediction Service stopped")
}
