package federated

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/taskmesh/platform/pkg/ml/linear"
	"gorm.io/datatypes"
)

func marshalParticipants(tenants []uuid.UUID) (datatypes.JSON, error) {
	if tenants == nil {
		tenants = []uuid.UUID{}
	}
	payload, err := json.Marshal(tenants)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

func marshalWeights(w linear.Weights) (datatypes.JSON, error) {
	payload, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

func outcomeMetadata(outcomes []TenantOutcome) datatypes.JSONMap {
	results := make([]interface{}, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, map[string]interface{}{
			"tenant_id":     o.TenantID,
			"success":       o.Success,
			"error":         o.Error,
			"model_version": o.ModelVersion,
			"accuracy":      o.Accuracy,
			"samples":       o.Samples,
		})
	}
	return datatypes.JSONMap{"training_results": results}
}
