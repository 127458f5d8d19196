package linear

import "errors"

var (
	ErrNoUpdates      = errors.New("no model updates to aggregate")
	ErrSchemaMismatch = errors.New("model weight vectors have mismatched lengths")
)

// Update is one tenant's contribution to a federated round.
type Update struct {
	Weights Weights
	Samples int
}

// Average combines tenant models by sample-count-weighted averaging (standard
// federated averaging). All weight vectors must share the same length; a
// mismatch indicates a feature-schema drift and aborts the whole aggregation,
// never a partial average.
func Average(updates []Update) (Weights, error) {
	if len(updates) == 0 {
		return Weights{}, ErrNoUpdates
	}

	featureCount := len(updates[0].Weights.Coefficients)
	var totalSamples int
	for _, u := range updates {
		if len(u.Weights.Coefficients) != featureCount {
			return Weights{}, ErrSchemaMismatch
		}
		totalSamples += u.Samples
	}
	if totalSamples == 0 {
		return Weights{}, ErrNoUpdates
	}

	global := Weights{Coefficients: make([]float64, featureCount)}
	for _, u := range updates {
		share := float64(u.Samples) / float64(totalSamples)
		for i, c := range u.Weights.Coefficients {
			global.Coefficients[i] += c * share
		}
		global.Intercept += u.Weights.Intercept * share
	}

	return global, nil
}

// HybridUpdate blends a tenant's local weights with the global weights:
// new = momentum*local + (1-momentum)*global, componentwise. Momentum 1
// returns the local weights, momentum 0 the global ones.
func HybridUpdate(local, global Weights, momentum float64) (Weights, error) {
	if len(local.Coefficients) != len(global.Coefficients) {
		return Weights{}, ErrSchemaMismatch
	}

	blended := Weights{Coefficients: make([]float64, len(local.Coefficients))}
	for i := range local.Coefficients {
		blended.Coefficients[i] = momentum*local.Coefficients[i] + (1-momentum)*global.Coefficients[i]
	}
	blended.Intercept = momentum*local.Intercept + (1-momentum)*global.Intercept

	return blended, nil
}
