package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/repository"
	"PricePulse/internal/services/analysis"
	"PricePulse/internal/services/ml"
	"PricePulse/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// declineSeries builds n daily observations starting at startPrice and
// stepping by step each day.
func declineSeries(productID string, n int, startPrice, step float64) []models.PriceObservation {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	obs := make([]models.PriceObservation, n)
	for i := 0; i < n; i++ {
		obs[i] = models.PriceObservation{
			ProductID:  productID,
			Price:      decimal.NewFromFloat(startPrice + float64(i)*step),
			ObservedAt: start.AddDate(0, 0, i),
		}
	}
	return obs
}

type memHistory struct {
	obs []models.PriceObservation
}

func (h *memHistory) Append(_ context.Context, o models.PriceObservation) error {
	h.obs = append(h.obs, o)
	return nil
}

func (h *memHistory) ListObservations(_ context.Context, productID string, _ int) ([]models.PriceObservation, error) {
	out := make([]models.PriceObservation, 0, len(h.obs))
	for _, o := range h.obs {
		if o.ProductID == productID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (h *memHistory) Health(context.Context) error { return nil }
func (h *memHistory) Close() error                 { return nil }

type fixedRegressor struct {
	value float64
}

func (f fixedRegressor) Predict([]float64) float64 { return f.value }

type identityScaler struct{}

func (identityScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func (s identityScaler) TransformMatrix(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.Transform(r)
	}
	return out
}

type stubModelStore struct {
	reg   domsvc.Regressor
	conf  float64
	calls int
}

func (s *stubModelStore) GetOrTrain(context.Context, string, [][]float64, []float64) (domsvc.Regressor, domsvc.Scaler, domsvc.ModelMeta, error) {
	s.calls++
	meta := domsvc.ModelMeta{TrainedAt: time.Now(), Confidence: s.conf, Retrained: true}
	return s.reg, identityScaler{}, meta, nil
}

type captureSink struct {
	records []models.PredictionResult
	trends  []*models.TrendSummary
	err     error
}

func (s *captureSink) Record(_ context.Context, p models.PredictionResult, trend *models.TrendSummary) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, p)
	s.trends = append(s.trends, trend)
	return nil
}

type captureEvents struct {
	alerts      []models.PriceAlert
	predictions []models.PredictionResult
}

func (e *captureEvents) PublishAlert(_ context.Context, a models.PriceAlert) error {
	e.alerts = append(e.alerts, a)
	return nil
}

func (e *captureEvents) PublishPrediction(_ context.Context, p models.PredictionResult) error {
	e.predictions = append(e.predictions, p)
	return nil
}

func (e *captureEvents) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(topic, productID string)       {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(productID string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordEvent(kind string)                         {}

var testHorizons = []int{1, 3, 7, 14, 30}

func newStubEngine(t *testing.T, obs []models.PriceObservation, store domsvc.ModelStore) (*Engine, *captureSink, *captureEvents) {
	t.Helper()
	log := newTestLogger(t)
	sink := &captureSink{}
	events := &captureEvents{}
	eng := NewEngine(&memHistory{obs: obs}, store, analysis.NewAnalyzer(log),
		sink, events, nopMetrics{}, log, 10, 0, testHorizons)
	return eng, sink, events
}

func newFullStackEngine(t *testing.T, obs []models.PriceObservation) (*Engine, *captureSink, *captureEvents) {
	t.Helper()
	log := newTestLogger(t)

	artifacts, err := repository.NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)
	trainer := ml.NewTrainer(ml.DefaultForestParams(), log)
	store := ml.NewArtifactModelStore(artifacts, trainer, domrepo.SystemClock{}, 7*24*time.Hour, log, nopMetrics{})

	sink := &captureSink{}
	events := &captureEvents{}
	eng := NewEngine(&memHistory{obs: obs}, store, analysis.NewAnalyzer(log),
		sink, events, nopMetrics{}, log, 10, 0, testHorizons)
	return eng, sink, events
}

func TestEngine_PredictPrice_InsufficientData(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	eng, sink, _ := newStubEngine(t, declineSeries("B0SHORT", 5, 100, -1), store)

	result, err := eng.PredictPrice(context.Background(), "B0SHORT", 7)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	// Training must not have been attempted at all.
	assert.Zero(t, store.calls)
	assert.Empty(t, sink.records)
}

func TestEngine_PredictPrice_DefaultsDaysAhead(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	eng, _, _ := newStubEngine(t, declineSeries("B0DEF", 12, 100, -1), store)

	result, err := eng.PredictPrice(context.Background(), "B0DEF", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, result.DaysAhead)
}

func TestEngine_PredictPrice_OmitsIntervalWithoutDistribution(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 95.5}, conf: 0.8}
	eng, sink, events := newStubEngine(t, declineSeries("B0FLAT", 12, 100, -1), store)

	result, err := eng.PredictPrice(context.Background(), "B0FLAT", 7)
	require.NoError(t, err)

	assert.Equal(t, 95.5, result.PredictedPrice)
	assert.Equal(t, 0.8, result.Confidence)
	assert.False(t, result.HasInterval())

	require.Len(t, sink.records, 1)
	require.Len(t, sink.trends, 1)
	assert.Equal(t, models.TrendDownward, sink.trends[0].Direction)
	require.Len(t, events.predictions, 1)
	assert.Equal(t, "B0FLAT", events.predictions[0].ProductID)
}

func TestEngine_PredictPrice_ClampsNegativeEstimate(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: -20}, conf: 0.8}
	eng, _, _ := newStubEngine(t, declineSeries("B0NEG", 12, 100, -1), store)

	result, err := eng.PredictPrice(context.Background(), "B0NEG", 7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.PredictedPrice)
}

func TestEngine_PredictPrice_SinkFailureIsNotFatal(t *testing.T) {
	log := newTestLogger(t)
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	sink := &captureSink{err: errors.New("clickhouse down")}
	events := &captureEvents{}
	eng := NewEngine(&memHistory{obs: declineSeries("B0SINK", 12, 100, -1)}, store,
		analysis.NewAnalyzer(log), sink, events, nopMetrics{}, log, 10, 0, testHorizons)

	result, err := eng.PredictPrice(context.Background(), "B0SINK", 7)
	require.NoError(t, err)
	assert.NotNil(t, result)
	// The prediction is still published even when recording failed.
	assert.Len(t, events.predictions, 1)
}

func TestEngine_AnalyzePriceTrends_InsufficientData(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	eng, _, _ := newStubEngine(t, declineSeries("B0TWO", 2, 100, -1), store)

	result, err := eng.AnalyzePriceTrends(context.Background(), "B0TWO", 30)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestEngine_AnalyzePriceTrends_DefaultsPeriod(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	eng, _, _ := newStubEngine(t, declineSeries("B0PER", 15, 150, -5), store)

	result, err := eng.AnalyzePriceTrends(context.Background(), "B0PER", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, result.PeriodDays)
	assert.Equal(t, 15, result.Observations)
}

func TestEngine_GenerateAlerts_NoDataYieldsEmptyList(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 100}, conf: 0.9}
	eng, _, _ := newStubEngine(t, declineSeries("B0EMPTY", 3, 100, -1), store)

	candidates, err := eng.GenerateAlerts(context.Background(), "B0EMPTY", 85)
	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

// Fifteen daily prices falling from $150 to $80, with a model stub that
// keeps predicting $75: every alert type has to fire, high priority first.
func TestEngine_GenerateAlerts_DecliningSeries(t *testing.T) {
	store := &stubModelStore{reg: fixedRegressor{value: 75}, conf: 0.9}
	eng, sink, _ := newStubEngine(t, declineSeries("B0DECLINE", 15, 150, -5), store)

	candidates, err := eng.GenerateAlerts(context.Background(), "B0DECLINE", 85)
	require.NoError(t, err)
	require.Len(t, candidates, 9)

	// One target alert per horizon, all high confidence, ranked first.
	for i := 0; i < len(testHorizons); i++ {
		assert.Equal(t, models.AlertTargetPricePrediction, candidates[i].Type)
		assert.Equal(t, models.PriorityHigh, candidates[i].Priority)
	}

	rest := candidates[len(testHorizons):]
	require.Len(t, rest, 4)
	assert.Equal(t, models.AlertPredictedPriceDrop, rest[0].Type)
	assert.Contains(t, rest[0].Message, "$5.00")
	assert.Equal(t, models.PriorityMedium, rest[0].Priority)
	assert.Equal(t, models.AlertDownwardTrend, rest[1].Type)
	assert.Contains(t, rest[1].Message, "1.00")
	assert.Equal(t, models.AlertDealProbability, rest[2].Type)
	assert.Contains(t, rest[2].Message, "100.0%")
	assert.Equal(t, models.AlertNearSupportLevel, rest[3].Type)
	assert.Contains(t, rest[3].Message, "$97.50")

	// Every horizon's prediction was recorded along the way.
	assert.Len(t, sink.records, len(testHorizons))
}

// Full-stack run over the declining series: real feature builder, real
// forest training, real analyzer, filesystem artifacts.
func TestEngine_DecliningSeries_FullStack(t *testing.T) {
	eng, sink, events := newFullStackEngine(t, declineSeries("B0DECLINE", 15, 150, -5))
	ctx := context.Background()

	result, err := eng.PredictPrice(ctx, "B0DECLINE", 7)
	require.NoError(t, err)

	// Forest predictions average observed next-prices, so the estimate
	// stays within the historical target range.
	assert.GreaterOrEqual(t, result.PredictedPrice, 80.0)
	assert.LessOrEqual(t, result.PredictedPrice, 145.0)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Less(t, result.Confidence, 1.0)

	require.True(t, result.HasInterval())
	assert.GreaterOrEqual(t, *result.LowerBound, 0.0)
	assert.LessOrEqual(t, *result.LowerBound, result.PredictedPrice)
	assert.GreaterOrEqual(t, *result.UpperBound, result.PredictedPrice)

	require.Len(t, sink.records, 1)
	assert.Equal(t, models.TrendDownward, sink.trends[0].Direction)
	assert.Len(t, events.predictions, 1)

	trends, err := eng.AnalyzePriceTrends(ctx, "B0DECLINE", 30)
	require.NoError(t, err)
	require.NotNil(t, trends.Trend)
	assert.Equal(t, models.TrendDownward, trends.Trend.Direction)
	assert.Greater(t, trends.Trend.Strength, 0.8)
	assert.Less(t, trends.Trend.PValue, 0.001)

	require.NotNil(t, trends.DealProbability)
	assert.Equal(t, 1.0, *trends.DealProbability)

	require.NotNil(t, trends.Levels)
	assert.LessOrEqual(t, trends.Levels.Support, trends.Levels.Resistance)
	assert.InDelta(t, 97.5, trends.Levels.Support, 1e-9)

	candidates, err := eng.GenerateAlerts(ctx, "B0DECLINE", 85)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	// The strong decline guarantees trend and deal alerts regardless of
	// where inside the historical range the forest lands.
	types := make(map[models.AlertType]bool, len(candidates))
	for _, c := range candidates {
		types[c.Type] = true
	}
	assert.True(t, types[models.AlertDownwardTrend])
	assert.True(t, types[models.AlertDealProbability])
	assert.True(t, types[models.AlertNearSupportLevel])
}
