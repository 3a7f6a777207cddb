package analysis

import "PricePulse/internal/domain/models"

const (
	patternMinPoints   = 7
	crossoverMinPoints = 10
	shortWindow        = 3
	longWindow         = 7
)

// Patterns flags moving-average crossovers and volatility shifts.
// Needs at least 7 points overall; crossover detection additionally
// needs 10 so both moving averages have two full windows.
func Patterns(prices []float64) *models.PatternSummary {
	if len(prices) < patternMinPoints {
		return nil
	}
	out := &models.PatternSummary{}

	if len(prices) >= crossoverMinPoints {
		last := len(prices) - 1
		s1 := windowMean(prices, last, shortWindow)
		s0 := windowMean(prices, last-1, shortWindow)
		l1 := windowMean(prices, last, longWindow)
		l0 := windowMean(prices, last-1, longWindow)

		if s1 > l1 && s0 <= l0 {
			out.GoldenCross = true
		} else if s1 < l1 && s0 >= l0 {
			out.DeathCross = true
		}
	}

	changes := absDiffs(prices)
	overall := mean(changes)
	recent := changes
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	recentMean := mean(recent)

	if recentMean > overall*1.5 {
		out.HighVolatility = true
	} else if recentMean < overall*0.5 {
		out.LowVolatility = true
	}
	return out
}
