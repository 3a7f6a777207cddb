package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
)

func TestTrendUpward(t *testing.T) {
	tr := Trend([]float64{100, 110, 120, 130, 140, 150})
	require.NotNil(t, tr)

	assert.Equal(t, models.TrendUpward, tr.Direction)
	assert.Greater(t, tr.Strength, 0.9)
	assert.Greater(t, tr.RSquared, 0.9)
	assert.InDelta(t, 10.0, tr.Slope, 1e-9)
	assert.Less(t, tr.PValue, 0.01)
}

func TestTrendDownward(t *testing.T) {
	tr := Trend([]float64{150, 140, 130, 120, 110, 100})

	assert.Equal(t, models.TrendDownward, tr.Direction)
	assert.Greater(t, tr.Strength, 0.9)
}

func TestTrendConstantIsSideways(t *testing.T) {
	tr := Trend([]float64{50, 50, 50, 50, 50})

	assert.Equal(t, models.TrendSideways, tr.Direction)
	assert.Equal(t, 0.0, tr.Strength)
	assert.Equal(t, 0.0, tr.Slope)
	assert.Equal(t, 1.0, tr.PValue)
}

func TestTrendTinySlopeIsSideways(t *testing.T) {
	// Perfectly correlated but the slope sits inside the noise band.
	tr := Trend([]float64{100, 100.002, 100.004, 100.006, 100.008})

	assert.Equal(t, models.TrendSideways, tr.Direction)
	assert.Greater(t, tr.Strength, 0.99)
}

func TestTrendShortSeriesUnknown(t *testing.T) {
	tr := Trend([]float64{10, 20})

	assert.Equal(t, models.TrendUnknown, tr.Direction)
	assert.Equal(t, 0.0, tr.Strength)
	assert.Equal(t, 1.0, tr.PValue)
}

func TestTrendRecentChangeUsesLastFive(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10, 100, 95, 92, 91, 90}
	tr := Trend(prices)

	assert.InDelta(t, -10.0, tr.RecentChangePct, 1e-9)
}

func TestRegIncBetaIdentities(t *testing.T) {
	// I_x(1,1) is the uniform CDF, I_0.5(a,a) is symmetric around 0.5.
	assert.InDelta(t, 0.3, regIncBeta(1, 1, 0.3), 1e-12)
	assert.InDelta(t, 0.5, regIncBeta(0.5, 0.5, 0.5), 1e-9)
	assert.Equal(t, 0.0, regIncBeta(2, 3, 0))
	assert.Equal(t, 1.0, regIncBeta(2, 3, 1))
}

func TestSlopePValueStrongCorrelation(t *testing.T) {
	p := slopePValue(0.9, 10)

	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.001)
}
