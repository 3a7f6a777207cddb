package ml

import (
	"fmt"

	"PricePulse/internal/domain/service"
)

// LinearModel is the gradient-descent regression used when forest
// training cannot proceed. It gives a point estimate only, so callers
// should not attach uncertainty intervals to its output.
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

var _ service.Regressor = (*LinearModel)(nil)

const (
	linearLearningRate = 0.01
	linearIterations   = 1000
)

// FitLinear runs batch gradient descent on the standardized feature
// matrix.
func FitLinear(features [][]float64, target []float64) (*LinearModel, error) {
	if len(features) == 0 || len(features) != len(target) {
		return nil, fmt.Errorf("fit linear: %d feature rows vs %d targets", len(features), len(target))
	}
	cols := len(features[0])
	m := &LinearModel{Weights: make([]float64, cols)}

	n := float64(len(features))
	for iter := 0; iter < linearIterations; iter++ {
		gradBias := 0.0
		grads := make([]float64, cols)
		for i, row := range features {
			pred := m.Predict(row)
			diff := pred - target[i]
			gradBias += diff
			for j, x := range row {
				grads[j] += diff * x
			}
		}
		m.Bias -= linearLearningRate * gradBias / n
		for j := range m.Weights {
			m.Weights[j] -= linearLearningRate * grads[j] / n
		}
	}
	return m, nil
}

// Predict returns bias + w·x.
func (m *LinearModel) Predict(row []float64) float64 {
	out := m.Bias
	for j, w := range m.Weights {
		if j >= len(row) {
			break
		}
		out += w * row[j]
	}
	return out
}
