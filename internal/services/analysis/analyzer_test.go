package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/logger"
)

func makeObsSeries(prices []float64, start time.Time, step time.Duration) []models.PriceObservation {
	obs := make([]models.PriceObservation, len(prices))
	for i, p := range prices {
		obs[i] = models.PriceObservation{
			ProductID:  "B0TEST",
			Price:      decimal.NewFromFloat(p),
			ObservedAt: start.Add(time.Duration(i) * step),
		}
	}
	return obs
}

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return NewAnalyzer(log)
}

func TestAnalyzeInsufficientData(t *testing.T) {
	a := newAnalyzer(t)
	obs := makeObsSeries([]float64{100, 90}, time.Now(), 24*time.Hour)

	assert.Nil(t, a.Analyze("B0TEST", obs, 30, time.Now()))
}

func TestAnalyzePartialResult(t *testing.T) {
	a := newAnalyzer(t)
	obs := makeObsSeries([]float64{100, 90, 95, 92}, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), 24*time.Hour)

	res := a.Analyze("B0TEST", obs, 30, time.Now())
	require.NotNil(t, res)

	assert.Equal(t, 4, res.Observations)
	assert.Equal(t, 92.0, res.CurrentPrice)
	assert.NotNil(t, res.Trend)
	assert.NotNil(t, res.Statistics)

	// Below the per-analysis minimums everything else stays absent.
	assert.Nil(t, res.Patterns)
	assert.Nil(t, res.Seasonality)
	assert.Nil(t, res.Levels)
	assert.Nil(t, res.DealProbability)
}

func TestAnalyzeSteadyDecline(t *testing.T) {
	a := newAnalyzer(t)

	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 150 - 5*float64(i)
	}
	obs := makeObsSeries(prices, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), 24*time.Hour)
	now := time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC)

	res := a.Analyze("B0TEST", obs, 30, now)
	require.NotNil(t, res)

	assert.Equal(t, 80.0, res.CurrentPrice)
	assert.Equal(t, now, res.AnalyzedAt)

	require.NotNil(t, res.Trend)
	assert.Equal(t, models.TrendDownward, res.Trend.Direction)
	assert.Greater(t, res.Trend.Strength, 0.8)

	require.NotNil(t, res.Levels)
	assert.LessOrEqual(t, res.Levels.Support, res.Levels.Resistance)

	require.NotNil(t, res.DealProbability)
	assert.Equal(t, 1.0, *res.DealProbability)

	assert.NotNil(t, res.Patterns)
	assert.NotNil(t, res.Seasonality)
	assert.NotNil(t, res.Statistics)
}
