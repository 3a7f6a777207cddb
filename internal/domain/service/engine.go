package service

import (
	"context"
	"time"
)

// Regressor produces a point estimate from one scaled feature row.
type Regressor interface {
	Predict(row []float64) float64
}

// DistributionRegressor additionally exposes the per-estimator estimates
// behind a point prediction, enabling uncertainty intervals. Models that
// cannot report a distribution simply do not implement it.
type DistributionRegressor interface {
	Regressor
	PredictAll(row []float64) []float64
}

// Scaler standardizes feature rows with statistics fixed at fit time.
type Scaler interface {
	Transform(row []float64) []float64
	TransformMatrix(rows [][]float64) [][]float64
}

// Trainer fits a regressor on a feature matrix and reports a confidence
// estimate in [0,1] derived from chronological-split validation.
type Trainer interface {
	Train(features [][]float64, target []float64) (Regressor, float64, error)
}

// ModelStore resolves per-product artifacts: fresh ones are returned as
// stored, stale or missing ones are retrained from the supplied data.
// Confidence is whatever the artifacts carry from their fit.
type ModelStore interface {
	GetOrTrain(ctx context.Context, productID string, features [][]float64, target []float64) (Regressor, Scaler, ModelMeta, error)
}

// ModelMeta describes the artifacts backing a prediction.
type ModelMeta struct {
	TrainedAt  time.Time
	Confidence float64
	Retrained  bool
}
