package ml

import (
	"fmt"
	"math"

	"PricePulse/internal/domain/service"
	"PricePulse/pkg/logger"
)

// validationParams configure the smaller forest used only to score a
// freshly trained model on held-out data. Depth and leaf constraints
// stay loose so the score reflects the data, not the regularization.
func validationParams() ForestParams {
	return ForestParams{
		Trees:           50,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// Trainer fits price models on standardized feature matrices. The
// confidence score is computed once here, at fit time, and travels
// with the model from then on.
type Trainer struct {
	params ForestParams
	log    *logger.Logger
}

var _ service.Trainer = (*Trainer)(nil)

func NewTrainer(params ForestParams, log *logger.Logger) *Trainer {
	return &Trainer{params: params, log: log}
}

// Train fits the production forest and scores it. When forest training
// fails it falls back to the linear model, which predicts without an
// uncertainty interval.
func (t *Trainer) Train(features [][]float64, target []float64) (service.Regressor, float64, error) {
	if len(features) == 0 || len(features) != len(target) {
		return nil, 0, fmt.Errorf("train: %d feature rows vs %d targets", len(features), len(target))
	}

	confidence := t.confidence(features, target)

	forest, err := FitForest(t.params, features, target)
	if err == nil {
		return forest, confidence, nil
	}
	t.log.Warn("forest training failed, falling back to linear model",
		logger.Error(err),
		logger.Int("samples", len(features)))

	linear, lerr := FitLinear(features, target)
	if lerr != nil {
		return nil, 0, fmt.Errorf("train fallback: %w", lerr)
	}
	return linear, confidence, nil
}

// confidence holds out the chronologically later half, trains a
// validation forest on the earlier half and converts its MAPE into a
// 0..1 score. Degenerate splits get fixed scores instead of a model
// run.
func (t *Trainer) confidence(features [][]float64, target []float64) float64 {
	if len(features) < 5 {
		return 0.5
	}

	split := len(features) / 2
	trainX, testX := features[:split], features[split:]
	trainY, testY := target[:split], target[split:]
	if len(testX) == 0 {
		return 0.6
	}

	scaler, err := FitScaler(trainX)
	if err != nil {
		return 0.5
	}
	forest, err := FitForest(validationParams(), scaler.TransformMatrix(trainX), trainY)
	if err != nil {
		return 0.5
	}

	mape := 0.0
	for i, row := range scaler.TransformMatrix(testX) {
		pred := forest.Predict(row)
		mape += math.Abs(testY[i]-pred) / testY[i]
	}
	mape /= float64(len(testY))

	return clamp01(1 - mape)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
