package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternsTooFewPoints(t *testing.T) {
	assert.Nil(t, Patterns([]float64{1, 2, 3, 4, 5, 6}))
}

func TestPatternsGoldenCross(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 130}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.True(t, p.GoldenCross)
	assert.False(t, p.DeathCross)
}

func TestPatternsDeathCross(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 70}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.True(t, p.DeathCross)
	assert.False(t, p.GoldenCross)
}

func TestPatternsSteadyDeclineHasNoCross(t *testing.T) {
	// The short MA stays below the long MA throughout, so there is no
	// transition to flag.
	prices := []float64{150, 145, 140, 135, 130, 125, 120, 115, 110, 105}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.False(t, p.GoldenCross)
	assert.False(t, p.DeathCross)
}

func TestPatternsLowVolatility(t *testing.T) {
	prices := []float64{100, 120, 80, 130, 90, 110, 100, 100, 100, 100}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.True(t, p.LowVolatility)
	assert.False(t, p.HighVolatility)
}

func TestPatternsHighVolatility(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100, 140, 60, 150}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.True(t, p.HighVolatility)
}

func TestPatternsFlatSeriesHasNoVolatilityFlags(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100}

	p := Patterns(prices)
	require.NotNil(t, p)
	assert.False(t, p.HighVolatility)
	assert.False(t, p.LowVolatility)
}
