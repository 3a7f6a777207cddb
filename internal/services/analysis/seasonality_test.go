package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalTooFewPoints(t *testing.T) {
	obs := makeObsSeries(repeatPrice(100, 13), time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 24*time.Hour)
	assert.Nil(t, Seasonal(obs))
}

func TestSeasonalDayOfWeekBuckets(t *testing.T) {
	// Two full weeks starting on a Monday; price climbs by one a day so
	// each weekday bucket averages its two samples.
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	obs := makeObsSeries(prices, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 24*time.Hour)

	s := Seasonal(obs)
	require.NotNil(t, s)
	require.Len(t, s.ByDayOfWeek, 7)

	assert.InDelta(t, 103.5, s.ByDayOfWeek["Monday"], 1e-9)
	assert.InDelta(t, 106.5, s.ByDayOfWeek["Thursday"], 1e-9)
	assert.InDelta(t, 109.5, s.ByDayOfWeek["Sunday"], 1e-9)

	// Single sampling hour carries no hourly signal.
	assert.Nil(t, s.ByHour)
}

func TestSeasonalHourlyBuckets(t *testing.T) {
	obs := makeObsSeries(repeatPrice(100, 14), time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 12*time.Hour)

	s := Seasonal(obs)
	require.NotNil(t, s)
	require.Len(t, s.ByHour, 2)

	assert.InDelta(t, 100.0, s.ByHour[9], 1e-9)
	assert.InDelta(t, 100.0, s.ByHour[21], 1e-9)
}

func repeatPrice(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}
