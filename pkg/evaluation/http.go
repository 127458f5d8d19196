package evaluation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskmesh/platform/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/tenants/{id}/evaluate", h.handleEvaluate).Methods(http.MethodPost)
	router.HandleFunc("/tenants/{id}/evaluations", h.handleHistory).Methods(http.MethodGet)
}

type evaluateRequest struct {
	EvaluationType string     `json:"evaluation_type"`
	RoundID        *uuid.UUID `json:"round_id,omitempty"`
}

func (h *HTTPHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "tenant id must be a UUID", http.StatusBadRequest)
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	req := evaluateRequest{EvaluationType: TypeLocal}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	summary, err := h.service.Evaluate(r.Context(), tenantID, req.EvaluationType, req.RoundID)
	switch {
	case errors.Is(err, ErrNoModel):
		http.Error(w, "no trained model for tenant", http.StatusNotFound)
		return
	case errors.Is(err, ErrNoExample):
		http.Error(w, "no labeled tasks to evaluate against", http.StatusUnprocessableEntity)
		return
	case err != nil:
		logger.Log.WithError(err).Error("model evaluation failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(summary)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "tenant id must be a UUID", http.StatusBadRequest)
		return
	}

	summaries, err := h.service.History(r.Context(), tenantID, 20)
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch evaluation history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}
