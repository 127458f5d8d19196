package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskmesh/platform/pkg/common/config"
	"github.com/taskmesh/platform/pkg/common/database"
	"github.com/taskmesh/platform/pkg/common/kafka"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/evaluation"
	"github.com/taskmesh/platform/pkg/federated"
	"github.com/taskmesh/platform/pkg/modelstore"
	"github.com/taskmesh/platform/pkg/observability/metrics"
	"github.com/taskmesh/platform/pkg/tasks"
	"github.com/taskmesh/platform/pkg/training"
)

func main() {
	logger.Init("federated-service")
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
	roundRepo := federated.NewRepository(db)
	if err := roundRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate round tables")
	}
	evalRepo := evaluation.NewRepository(db)
	if err := evalRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate evaluation tables")
	}
	taskRepo := tasks.NewRepository(db)

	producer := kafka.NewProducer(cfg.ModelEventsTopic)
	defer producer.Close()

	trainer := training.NewService(taskRepo, modelRepo, roundRepo, producer, cfg.Training)
	coordinator := federated.NewCoordinator(roundRepo, taskRepo, trainer, modelRepo, producer, cfg.Training)
	evaluator := evaluation.NewService(taskRepo, modelRepo, evalRepo)

	handler := federated.NewHTTPHandler(coordinator, trainer, roundRepo, cfg.MaxRequestBody)
	evalHandler := evaluation.NewHTTPHandler(evaluator, cfg.MaxRequestBody)

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
	evalHandler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.FederatedServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.FederatedServicePort,
		}).Info("Federated Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Federated Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("failed to close postgres connection")
	}

	logger.Log.Info("Federated Service stopped")
}
