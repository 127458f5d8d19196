package linear

// Metrics are confusion-matrix derived scores for one weight set against one
// example set.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Loss      float64 `json:"loss"`
}

// ConfusionMatrix holds raw counts from thresholded predictions.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// Confusion thresholds the sigmoid score of every example against its label.
func Confusion(weights Weights, examples []Example, threshold float64) ConfusionMatrix {
	var cm ConfusionMatrix
	for _, ex := range examples {
		predicted := Predict(weights, ex.Features) >= threshold
		actual := ex.Label == 1
		switch {
		case predicted && actual:
			cm.TruePositives++
		case !predicted && !actual:
			cm.TrueNegatives++
		case predicted && !actual:
			cm.FalsePositives++
		default:
			cm.FalseNegatives++
		}
	}
	return cm
}

// Evaluate computes accuracy, precision, recall and F1 for a weight set.
// Precision, recall and F1 default to 0 when their denominator is zero, so a
// trivial single-class evaluation never divides by zero.
func Evaluate(weights Weights, examples []Example, threshold float64) Metrics {
	if len(examples) == 0 {
		return Metrics{}
	}
	cm := Confusion(weights, examples, threshold)
	return cm.Metrics(len(examples), meanLoss(weights, examples))
}

func (cm ConfusionMatrix) Metrics(total int, loss float64) Metrics {
	m := Metrics{Loss: loss}
	if total == 0 {
		return m
	}
	m.Accuracy = float64(cm.TruePositives+cm.TrueNegatives) / float64(total)
	if cm.TruePositives+cm.FalsePositives > 0 {
		m.Precision = float64(cm.TruePositives) / float64(cm.TruePositives+cm.FalsePositives)
	}
	if cm.TruePositives+cm.FalseNegatives > 0 {
		m.Recall = float64(cm.TruePositives) / float64(cm.TruePositives+cm.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
