package federated

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskmesh/platform/pkg/common/logger"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"github.com/taskmesh/platform/pkg/training"
)

type HTTPHandler struct {
	coordinator *Coordinator
	trainer     Trainer
	repo        *Repository
	maxBody     int64
}

func NewHTTPHandler(coordinator *Coordinator, trainer Trainer, repo *Repository, maxBody int64) *HTTPHandler {
	return &HTTPHandler{coordinator: coordinator, trainer: trainer, repo: repo, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/federated/rounds", h.handleStartRound).Methods(http.MethodPost)
	router.HandleFunc("/federated/rounds", h.handleListRounds).Methods(http.MethodGet)
	router.HandleFunc("/federated/rounds/{id}", h.handleGetRound).Methods(http.MethodGet)
	router.HandleFunc("/federated/rounds/{id}/aggregate", h.handleAggregate).Methods(http.MethodPost)
	router.HandleFunc("/tenants/{id}/train", h.handleTrainLocal).Methods(http.MethodPost)
}

// errorPayload distinguishes "wait for more data" from "this round is broken"
// from genuine internal failures, so callers can react differently.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *HTTPHandler) handleStartRound(w http.ResponseWriter, r *http.Request) {
	summary, err := h.coordinator.StartRound(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, summary)
	case errors.Is(err, ErrNoEligibleTenants):
		writeError(w, http.StatusUnprocessableEntity, "no_eligible_tenants",
			"no tenants have sufficient training data (minimum completed tasks not reached)")
	case errors.Is(err, ErrAllTrainingFailed):
		// The round row exists and is marked failed; report it with the summary.
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "all_training_failed",
			"message": "local training failed for every participating tenant",
			"round":   summary,
		})
	default:
		logger.Log.WithError(err).Error("failed to start training round")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to start training round")
	}
}

func (h *HTTPHandler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_round_id", "round id must be a UUID")
		return
	}

	summary, err := h.coordinator.AggregateRound(r.Context(), roundID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.Is(err, ErrRoundNotFound):
		writeError(w, http.StatusNotFound, "round_not_found", "no such training round")
	case errors.Is(err, ErrNoRoundMetadata):
		writeError(w, http.StatusBadRequest, "no_round_metadata", "no training metadata exists for this round yet")
	case errors.Is(err, ErrRoundConflict):
		writeError(w, http.StatusConflict, "round_conflict", err.Error())
	case errors.Is(err, linear.ErrSchemaMismatch):
		logger.Log.WithError(err).WithField("round_id", roundID).Error("aggregation schema mismatch")
		writeError(w, http.StatusInternalServerError, "schema_mismatch",
			"tenant models have mismatched feature dimensions; aggregation aborted")
	default:
		logger.Log.WithError(err).WithField("round_id", roundID).Error("aggregation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "aggregation failed")
	}
}

func (h *HTTPHandler) handleTrainLocal(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant id must be a UUID")
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	var req struct {
		RoundID *uuid.UUID `json:"round_id,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
	}

	result, err := h.trainer.TrainLocal(r.Context(), tenantID, req.RoundID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, training.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_data", err.Error())
	default:
		logger.Log.WithError(err).WithField("tenant_id", tenantID).Error("local training failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "local training failed")
	}
}

func (h *HTTPHandler) handleListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.repo.RecentRounds(r.Context(), 10)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list rounds")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list rounds")
		return
	}

	summaries := make([]RoundSummary, 0, len(rounds))
	for i := range rounds {
		summaries = append(summaries, roundToSummary(&rounds[i], 0))
	}
	var latest *RoundSummary
	if len(summaries) > 0 {
		latest = &summaries[0]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"latest_round":  latest,
		"recent_rounds": summaries,
	})
}

func (h *HTTPHandler) handleGetRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_round_id", "round id must be a UUID")
		return
	}

	round, err := h.repo.GetRound(r.Context(), roundID)
	if errors.Is(err, ErrRoundNotFound) {
		writeError(w, http.StatusNotFound, "round_not_found", "no such training round")
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch round")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch round")
		return
	}
	writeJSON(w, http.StatusOK, roundToSummary(round, 0))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorPayload{Error: code, Message: message})
}
