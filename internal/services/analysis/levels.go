package analysis

import "PricePulse/internal/domain/models"

const levelsMinPoints = 5

// Levels reads support and resistance off the price distribution's
// quartiles and positions the current price against each as the
// relative distance (current − level) / level.
func Levels(prices []float64, current float64) *models.SupportResistance {
	if len(prices) < levelsMinPoints {
		return nil
	}

	support := percentile(prices, 25)
	resistance := percentile(prices, 75)

	out := &models.SupportResistance{
		Support:    support,
		Resistance: resistance,
	}
	if support > 0 {
		out.CurrentVsSupport = (current - support) / support
	}
	if resistance > 0 {
		out.CurrentVsResistance = (current - resistance) / resistance
	}
	return out
}

// DealProbability is the inverted percentile rank of the current price
// within its own history: 1.0 at the historical low, 0.0 at the high.
// Ties (including the current point matching itself) are excluded from
// the rank; an all-equal series sits at 0.5.
func DealProbability(prices []float64, current float64) *float64 {
	if len(prices) < levelsMinPoints {
		return nil
	}

	below, above := 0, 0
	for _, p := range prices {
		switch {
		case p < current:
			below++
		case p > current:
			above++
		}
	}

	prob := 0.5
	if below+above > 0 {
		prob = float64(above) / float64(below+above)
	}
	return &prob
}
