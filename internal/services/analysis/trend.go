package analysis

import (
	"math"

	"PricePulse/internal/domain/models"
)

// slopeThreshold damps direction flapping on near-flat series.
const slopeThreshold = 0.01

// Trend fits price against observation index by ordinary least squares.
// Series shorter than 3 points report an unknown direction with zero
// strength.
func Trend(prices []float64) *models.TrendSummary {
	if len(prices) < 3 {
		return &models.TrendSummary{Direction: models.TrendUnknown, PValue: 1}
	}

	n := len(prices)
	xMean := float64(n-1) / 2
	yMean := mean(prices)

	sxx, sxy, syy := 0.0, 0.0, 0.0
	for i, y := range prices {
		dx := float64(i) - xMean
		dy := y - yMean
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	slope := sxy / sxx
	r := 0.0
	if syy > 0 {
		r = sxy / math.Sqrt(sxx*syy)
	}

	direction := models.TrendSideways
	switch {
	case slope > slopeThreshold:
		direction = models.TrendUpward
	case slope < -slopeThreshold:
		direction = models.TrendDownward
	}

	return &models.TrendSummary{
		Direction:       direction,
		Strength:        math.Abs(r),
		Slope:           slope,
		RSquared:        r * r,
		RecentChangePct: recentChangePct(prices),
		PValue:          slopePValue(r, n),
	}
}

// recentChangePct is the percent move across the last five points.
func recentChangePct(prices []float64) float64 {
	recent := prices
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	first := recent[0]
	if first == 0 {
		return 0
	}
	return (recent[len(recent)-1] - first) / first * 100
}
