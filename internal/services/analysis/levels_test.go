package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsTooFewPoints(t *testing.T) {
	assert.Nil(t, Levels([]float64{1, 2, 3, 4}, 2))
}

func TestLevelsQuartiles(t *testing.T) {
	prices := []float64{10, 20, 30, 40, 50}

	l := Levels(prices, 30)
	require.NotNil(t, l)

	assert.InDelta(t, 20.0, l.Support, 1e-9)
	assert.InDelta(t, 40.0, l.Resistance, 1e-9)
	// relative distance from each level
	assert.InDelta(t, 0.5, l.CurrentVsSupport, 1e-9)
	assert.InDelta(t, -0.25, l.CurrentVsResistance, 1e-9)
}

func TestSupportNeverExceedsResistance(t *testing.T) {
	series := [][]float64{
		{5, 5, 5, 5, 5},
		{1, 100, 2, 99, 3, 98},
		{80, 75, 90, 85, 70, 95, 60},
	}
	for _, prices := range series {
		l := Levels(prices, prices[len(prices)-1])
		require.NotNil(t, l)
		assert.LessOrEqual(t, l.Support, l.Resistance)
	}
}

func TestDealProbabilityAtHistoricalLow(t *testing.T) {
	prices := []float64{100, 90, 80, 70, 60}

	p := DealProbability(prices, 60)
	require.NotNil(t, p)
	assert.Equal(t, 1.0, *p)
}

func TestDealProbabilityAtHistoricalHigh(t *testing.T) {
	prices := []float64{60, 70, 80, 90, 100}

	p := DealProbability(prices, 100)
	require.NotNil(t, p)
	assert.Equal(t, 0.0, *p)
}

func TestDealProbabilityAllEqual(t *testing.T) {
	prices := []float64{50, 50, 50, 50, 50}

	p := DealProbability(prices, 50)
	require.NotNil(t, p)
	assert.Equal(t, 0.5, *p)
}

func TestDealProbabilityMidRange(t *testing.T) {
	prices := []float64{10, 20, 30, 40, 50}

	p := DealProbability(prices, 30)
	require.NotNil(t, p)
	assert.Equal(t, 0.5, *p)
}

func TestDealProbabilityTooFewPoints(t *testing.T) {
	assert.Nil(t, DealProbability([]float64{1, 2, 3, 4}, 1))
}
