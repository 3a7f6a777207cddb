package analysis

import (
	"math"
	"sort"

	"PricePulse/internal/domain/models"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population (n denominator) standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// percentile interpolates linearly between order statistics, so
// percentile(x, 50) of an even-length series is the midpoint average.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// windowMean averages the window of size w ending at index end inclusive.
func windowMean(values []float64, end, w int) float64 {
	return mean(values[end-w+1 : end+1])
}

// absDiffs is |x[i+1]-x[i]| for the whole series.
func absDiffs(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = math.Abs(values[i] - values[i-1])
	}
	return out
}

// Statistics summarizes the price window: extremes, mean, spread and
// the current price's drift from the period average.
func Statistics(prices []float64) *models.PriceStatistics {
	if len(prices) == 0 {
		return nil
	}
	min, max := prices[0], prices[0]
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	avg := mean(prices)
	current := prices[len(prices)-1]
	change := current - avg
	changePct := 0.0
	if avg != 0 {
		changePct = change / avg * 100
	}
	return &models.PriceStatistics{
		MinPrice:       min,
		MaxPrice:       max,
		AveragePrice:   avg,
		Volatility:     stdDev(prices),
		PriceChange:    change,
		PriceChangePct: changePct,
	}
}
