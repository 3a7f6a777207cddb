package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/services/alerts"
	"PricePulse/internal/services/analysis"
	"PricePulse/internal/services/features"
	"PricePulse/pkg/logger"
)

// ErrInsufficientData signals that a product has too little history for
// the requested operation. Handlers translate it into a clean API reply
// instead of a server error.
var ErrInsufficientData = errors.New("insufficient price data")

const (
	defaultDaysAhead  = 7
	defaultPeriodDays = 30
	intervalZ         = 1.96
)

// Engine ties price history, the model store, the trend analyzer and the
// prediction sinks into the three forecasting operations.
type Engine struct {
	history  domrepo.PriceHistoryStore
	store    domsvc.ModelStore
	analyzer domsvc.TrendAnalyzer
	sink     domrepo.PredictionSink
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	log      *logger.Logger

	minDataPoints int
	lookbackDays  int
	horizons      []int
}

// NewEngine creates the prediction engine. minDataPoints gates training,
// lookbackDays bounds the history window (0 = full history), horizons
// are the days-ahead values used when synthesizing alerts.
func NewEngine(
	history domrepo.PriceHistoryStore,
	store domsvc.ModelStore,
	analyzer domsvc.TrendAnalyzer,
	sink domrepo.PredictionSink,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	minDataPoints int,
	lookbackDays int,
	horizons []int,
) *Engine {
	return &Engine{
		history:       history,
		store:         store,
		analyzer:      analyzer,
		sink:          sink,
		events:        events,
		metrics:       metrics,
		log:           log,
		minDataPoints: minDataPoints,
		lookbackDays:  lookbackDays,
		horizons:      horizons,
	}
}

// PredictPrice forecasts the product price daysAhead days out. It returns
// ErrInsufficientData before touching training when fewer than the
// configured minimum observations exist.
func (e *Engine) PredictPrice(ctx context.Context, productID string, daysAhead int) (*models.PredictionResult, error) {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}

	obs, err := e.history.ListObservations(ctx, productID, e.lookbackDays)
	if err != nil {
		e.metrics.RecordError("list_observations")
		return nil, fmt.Errorf("load price history: %w", err)
	}
	if len(obs) < e.minDataPoints {
		e.log.Warn("insufficient data for prediction",
			logger.String("product_id", productID),
			logger.Int("observations", len(obs)),
			logger.Int("required", e.minDataPoints))
		return nil, ErrInsufficientData
	}

	feats, target := features.Build(obs)
	if len(feats) == 0 {
		e.log.Warn("no feature rows could be built",
			logger.String("product_id", productID))
		return nil, ErrInsufficientData
	}

	start := time.Now()
	model, scaler, meta, err := e.store.GetOrTrain(ctx, productID, feats, target)
	if err != nil {
		e.metrics.RecordError("train")
		return nil, fmt.Errorf("train product %s: %w", productID, err)
	}

	point, lower, upper := project(model, scaler, feats, daysAhead)
	result := &models.PredictionResult{
		ProductID:      productID,
		DaysAhead:      daysAhead,
		PredictedPrice: point,
		Confidence:     meta.Confidence,
		LowerBound:     lower,
		UpperBound:     upper,
		CreatedAt:      time.Now(),
	}

	trend := analysis.Trend(models.Prices(obs))
	if err := e.sink.Record(ctx, *result, trend); err != nil {
		e.metrics.RecordError("record_prediction")
		e.log.Warn("failed to record prediction",
			logger.String("product_id", productID),
			logger.Error(err))
	}
	if err := e.events.PublishPrediction(ctx, *result); err != nil {
		e.metrics.RecordError("publish_prediction")
		e.log.Warn("failed to publish prediction",
			logger.String("product_id", productID),
			logger.Error(err))
	} else {
		e.metrics.RecordMessageSent("predictions", productID)
	}

	e.metrics.RecordLatency("predict", time.Since(start).Seconds())
	e.log.Info("price prediction completed",
		logger.String("product_id", productID),
		logger.Int("days_ahead", daysAhead),
		logger.Float64("predicted_price", result.PredictedPrice),
		logger.Float64("confidence", result.Confidence),
		logger.Bool("retrained", meta.Retrained))

	return result, nil
}

// AnalyzePriceTrends runs the statistical battery over the last
// periodDays of observations (default 30). Sub-analyses without enough
// data are simply absent from the result.
func (e *Engine) AnalyzePriceTrends(ctx context.Context, productID string, periodDays int) (*models.TrendAnalysis, error) {
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}

	obs, err := e.history.ListObservations(ctx, productID, periodDays)
	if err != nil {
		e.metrics.RecordError("list_observations")
		return nil, fmt.Errorf("load price history: %w", err)
	}

	result := e.analyzer.Analyze(productID, obs, periodDays, time.Now())
	if result == nil {
		return nil, ErrInsufficientData
	}
	return result, nil
}

// GenerateAlerts predicts across all configured horizons, analyzes the
// recent trend and synthesizes alert candidates. Horizons that cannot be
// predicted are skipped; no predictions at all yields an empty list.
func (e *Engine) GenerateAlerts(ctx context.Context, productID string, targetPrice float64) ([]models.AlertCandidate, error) {
	predictions := make([]models.PredictionResult, 0, len(e.horizons))
	for _, days := range e.horizons {
		pred, err := e.PredictPrice(ctx, productID, days)
		if err != nil {
			if !errors.Is(err, ErrInsufficientData) {
				e.log.Warn("prediction failed for horizon",
					logger.String("product_id", productID),
					logger.Int("days_ahead", days),
					logger.Error(err))
			}
			continue
		}
		predictions = append(predictions, *pred)
	}
	if len(predictions) == 0 {
		return []models.AlertCandidate{}, nil
	}

	trendAnalysis, err := e.AnalyzePriceTrends(ctx, productID, defaultPeriodDays)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			return []models.AlertCandidate{}, nil
		}
		return nil, err
	}

	candidates := alerts.Synthesize(predictions, trendAnalysis, targetPrice)
	e.log.Debug("alerts synthesized",
		logger.String("product_id", productID),
		logger.Int("count", len(candidates)))
	return candidates, nil
}

// project copies the latest feature row daysAhead into the future and
// queries the model. The interval is present only when the model can
// report per-estimator predictions.
func project(model domsvc.Regressor, scaler domsvc.Scaler, feats [][]float64, daysAhead int) (float64, *float64, *float64) {
	last := feats[len(feats)-1]
	row := make([]float64, len(last))
	copy(row, last)
	row[features.ColDaysSinceStart] += float64(daysAhead)

	scaled := scaler.Transform(row)
	point := model.Predict(scaled)

	var lower, upper *float64
	if dist, ok := model.(domsvc.DistributionRegressor); ok {
		sd := populationStd(dist.PredictAll(scaled))
		lo := math.Max(0, point-intervalZ*sd)
		hi := point + intervalZ*sd
		lower, upper = &lo, &hi
	}
	return math.Max(0, point), lower, upper
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := 0.0
	for _, v := range values {
		m += v
	}
	m /= float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
