package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsServed    atomic.Int64
	predictionsFallback  atomic.Int64
	trainingRuns         atomic.Int64
	trainingFailures     atomic.Int64
	roundsStarted        atomic.Int64
	roundsCompleted      atomic.Int64
	roundsFailed         atomic.Int64
	modelCacheHits       atomic.Int64
	modelCacheMisses     atomic.Int64
	lastRoundParticipant atomic.Int64
)

func Init() {}

func IncPredictionServed(usedModel bool) {
	predictionsServed.Add(1)
	if !usedModel {
		predictionsFallback.Add(1)
	}
}

func IncTrainingRun(failed bool) {
	trainingRuns.Add(1)
	if failed {
		trainingFailures.Add(1)
	}
}

func IncRoundStarted() { roundsStarted.Add(1) }

func ObserveRoundOutcome(completed bool, participants int) {
	if completed {
		roundsCompleted.Add(1)
	} else {
		roundsFailed.Add(1)
	}
	lastRoundParticipant.Store(int64(participants))
}

func IncModelCache(hit bool) {
	if hit {
		modelCacheHits.Add(1)
	} else {
		modelCacheMisses.Add(1)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP taskmesh_predictions_served_total Number of delay predictions served since startup.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_predictions_served_total counter\n")
	fmt.Fprintf(w, "taskmesh_predictions_served_total %d\n", predictionsServed.Load())

	fmt.Fprintf(w, "# HELP taskmesh_predictions_fallback_total Number of predictions answered by the rule-based fallback.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_predictions_fallback_total counter\n")
	fmt.Fprintf(w, "taskmesh_predictions_fallback_total %d\n", predictionsFallback.Load())

	fmt.Fprintf(w, "# HELP taskmesh_training_runs_total Number of local training runs attempted since startup.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_training_runs_total counter\n")
	fmt.Fprintf(w, "taskmesh_training_runs_total %d\n", trainingRuns.Load())

	fmt.Fprintf(w, "# HELP taskmesh_training_failures_total Number of local training runs that failed.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_training_failures_total counter\n")
	fmt.Fprintf(w, "taskmesh_training_failures_total %d\n", trainingFailures.Load())

	fmt.Fprintf(w, "# HELP taskmesh_federated_rounds_started_total Number of federated training rounds started.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_federated_rounds_started_total counter\n")
	fmt.Fprintf(w, "taskmesh_federated_rounds_started_total %d\n", roundsStarted.Load())

	fmt.Fprintf(w, "# HELP taskmesh_federated_rounds_completed_total Number of federated training rounds that reached completion.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_federated_rounds_completed_total counter\n")
	fmt.Fprintf(w, "taskmesh_federated_rounds_completed_total %d\n", roundsCompleted.Load())

	fmt.Fprintf(w, "# HELP taskmesh_federated_rounds_failed_total Number of federated training rounds that failed.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_federated_rounds_failed_total counter\n")
	fmt.Fprintf(w, "taskmesh_federated_rounds_failed_total %d\n", roundsFailed.Load())

	fmt.Fprintf(w, "# HELP taskmesh_model_cache_hits_total Number of model lookups served from the cache.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_model_cache_hits_total counter\n")
	fmt.Fprintf(w, "taskmesh_model_cache_hits_total %d\n", modelCacheHits.Load())

	fmt.Fprintf(w, "# HELP taskmesh_model_cache_misses_total Number of model lookups that fell through to the store.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_model_cache_misses_total counter\n")
	fmt.Fprintf(w, "taskmesh_model_cache_misses_total %d\n", modelCacheMisses.Load())

	fmt.Fprintf(w, "# HELP taskmesh_federated_last_round_participants Number of tenants in the most recent federated round.\n")
	fmt.Fprintf(w, "# TYPE taskmesh_federated_last_round_participants gauge\n")
	fmt.Fprintf(w, "taskmesh_federated_last_round_participants %d\n", lastRoundParticipant.Load())
}
