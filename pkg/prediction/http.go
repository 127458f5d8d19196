package prediction

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/common/models"
	"github.com/taskmesh/platform/pkg/modelstore"
)

type HTTPHandler struct {
	service *Service
	models  *modelstore.Repository
	logs    *Repository
	maxBody int64
}

func NewHTTPHandler(service *Service, modelRepo *modelstore.Repository, logs *Repository, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, models: modelRepo, logs: logs, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predictions", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/tenants/{id}/predictions", h.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/tenants/{id}/model", h.handleGetModel).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TenantID == uuid.Nil {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.GeneratePrediction(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "tenant id must be a UUID", http.StatusBadRequest)
		return
	}

	logs, err := h.logs.Recent(r.Context(), tenantID, 50)
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch recent predictions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

func (h *HTTPHandler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "tenant id must be a UUID", http.StatusBadRequest)
		return
	}

	model, err := h.models.Latest(r.Context(), tenantID)
	if errors.Is(err, modelstore.ErrModelNotFound) {
		http.Error(w, "no trained model for tenant", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch model")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	weights, err := model.DecodeWeights()
	if err != nil {
		logger.Log.WithError(err).Error("stored weights are unreadable")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	names, _ := model.DecodeFeatureNames()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tenant_id":        model.TenantID,
		"model_version":    model.Version,
		"weights":          weights,
		"feature_names":    names,
		"training_samples": model.TrainingSamples,
		"accuracy":         model.Accuracy,
		"precision":        model.PrecisionScore,
		"recall":           model.RecallScore,
		"f1":               model.F1Score,
		"last_trained_at":  model.LastTrainedAt,
	})
}
