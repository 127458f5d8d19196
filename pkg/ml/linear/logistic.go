// Package linear implements the logistic-regression primitives shared by
// local training, federated aggregation and online scoring. The model is
// deliberately simple (per-example gradient descent, no adaptive optimizers)
// so that weight vectors stay auditable across tenants.
package linear

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

var ErrNoExamples = errors.New("no training examples provided")

// Weights are the parameters of one logistic model: one coefficient per
// feature, in the canonical feature order, plus an intercept.
type Weights struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Clone returns a deep copy; training checkpoints must not alias the live
// weight slice.
func (w Weights) Clone() Weights {
	coeffs := make([]float64, len(w.Coefficients))
	copy(coeffs, w.Coefficients)
	return Weights{Coefficients: coeffs, Intercept: w.Intercept}
}

type Example struct {
	Features []float64
	Label    float64 // 0 or 1
}

type Options struct {
	LearningRate    float64
	Epochs          int
	Regularization  float64 // L2 strength
	ValidationSplit float64
	Rand            *rand.Rand
}

type TrainResult struct {
	Weights Weights
	// Metrics describe the retained checkpoint against the validation set
	// (or the training set when the split is empty); TrainingAccuracy is
	// the same checkpoint scored against the training split.
	Metrics           Metrics
	TrainingAccuracy  float64
	TrainingSamples   int
	ValidationSamples int
	Epochs            int
	Duration          time.Duration
}

// Train fits a logistic model with stochastic gradient descent and L2
// regularization. Every 10th epoch the current weights are evaluated against
// the validation split and the lowest-loss checkpoint is retained; all epochs
// still run. The returned metrics describe the retained checkpoint against
// the validation set (or the training set when the split is empty).
func Train(examples []Example, opts Options) (TrainResult, error) {
	start := time.Now()
	if len(examples) == 0 {
		return TrainResult{}, ErrNoExamples
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.01
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 100
	}
	if opts.Regularization < 0 {
		opts.Regularization = 0
	}
	if opts.ValidationSplit < 0 || opts.ValidationSplit >= 1 {
		opts.ValidationSplit = 0.2
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	featureCount := len(examples[0].Features)

	shuffled := make([]Example, len(examples))
	copy(shuffled, examples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	splitIndex := int(float64(len(shuffled)) * (1 - opts.ValidationSplit))
	trainSet := shuffled[:splitIndex]
	validSet := shuffled[splitIndex:]
	if len(trainSet) == 0 {
		trainSet = shuffled
		validSet = nil
	}

	weights := initializeWeights(featureCount, rng)
	checkpointSet := validSet
	if len(checkpointSet) == 0 {
		checkpointSet = trainSet
	}
	best := weights.Clone()
	bestLoss := math.Inf(1)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(trainSet), func(i, j int) {
			trainSet[i], trainSet[j] = trainSet[j], trainSet[i]
		})

		for _, ex := range trainSet {
			predicted := Predict(weights, ex.Features)
			err := predicted - ex.Label

			for i := 0; i < featureCount; i++ {
				gradient := err*ex.Features[i] + opts.Regularization*weights.Coefficients[i]
				weights.Coefficients[i] -= opts.LearningRate * gradient
			}
			weights.Intercept -= opts.LearningRate * err
		}

		if epoch%10 == 0 {
			loss := meanLoss(weights, checkpointSet)
			if loss < bestLoss {
				bestLoss = loss
				best = weights.Clone()
			}
		}
	}

	// The final epoch may have improved on the last checkpoint.
	if loss := meanLoss(weights, checkpointSet); loss < bestLoss {
		bestLoss = loss
		best = weights.Clone()
	}

	metrics := Evaluate(best, checkpointSet, 0.5)
	metrics.Loss = bestLoss

	return TrainResult{
		Weights:           best,
		Metrics:           metrics,
		TrainingAccuracy:  Evaluate(best, trainSet, 0.5).Accuracy,
		TrainingSamples:   len(trainSet),
		ValidationSamples: len(validSet),
		Epochs:            opts.Epochs,
		Duration:          time.Since(start),
	}, nil
}

// Predict returns the delay probability for one feature vector.
func Predict(weights Weights, features []float64) float64 {
	sum := weights.Intercept
	for i := 0; i < len(features) && i < len(weights.Coefficients); i++ {
		sum += features[i] * weights.Coefficients[i]
	}
	return Sigmoid(sum)
}

func Sigmoid(x float64) float64 {
	// Clip to prevent overflow in Exp.
	if x > 500 {
		x = 500
	} else if x < -500 {
		x = -500
	}
	return 1 / (1 + math.Exp(-x))
}

func initializeWeights(featureCount int, rng *rand.Rand) Weights {
	coefficients := make([]float64, featureCount)
	for i := range coefficients {
		coefficients[i] = (rng.Float64() - 0.5) * 0.1
	}
	return Weights{Coefficients: coefficients, Intercept: 0}
}

func crossEntropy(predicted, actual float64) float64 {
	const epsilon = 1e-15
	p := math.Max(epsilon, math.Min(1-epsilon, predicted))
	return -(actual*math.Log(p) + (1-actual)*math.Log(1-p))
}

func meanLoss(weights Weights, examples []Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	var loss float64
	for _, ex := range examples {
		loss += crossEntropy(Predict(weights, ex.Features), ex.Label)
	}
	return loss / float64(len(examples))
}
