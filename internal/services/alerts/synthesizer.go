package alerts

import (
	"fmt"
	"sort"

	"PricePulse/internal/domain/models"
)

// Threshold constants for synthesized alerts. Drops smaller than 5% of
// the current price are noise; savings beyond 10% escalate priority.
const (
	dropTrigger      = 0.95
	bigSavingsFactor = 0.10
	strongTrend      = 0.6
	highDealProb     = 0.7
	nearSupportBand  = 1.05
	highConfidence   = 0.7
)

// Synthesize combines multi-horizon predictions with the statistical
// analysis into a priority-ranked alert list. A target alert fires per
// qualifying horizon; every other type fires at most once. No
// qualifying data means an empty list, never an error.
func Synthesize(predictions []models.PredictionResult, analysis *models.TrendAnalysis, targetPrice float64) []models.AlertCandidate {
	out := make([]models.AlertCandidate, 0, len(predictions)+4)
	if len(predictions) == 0 {
		return out
	}
	if analysis == nil || analysis.CurrentPrice == 0 {
		return out
	}
	current := analysis.CurrentPrice

	if targetPrice > 0 {
		for _, pred := range predictions {
			if pred.PredictedPrice > targetPrice {
				continue
			}
			priority := models.PriorityMedium
			if pred.Confidence > highConfidence {
				priority = models.PriorityHigh
			}
			out = append(out, models.AlertCandidate{
				Type:     models.AlertTargetPricePrediction,
				Message:  fmt.Sprintf("AI predicts target price ($%.2f) may be reached in %d days", targetPrice, pred.DaysAhead),
				Priority: priority,
				Metrics: map[string]interface{}{
					"predicted_price": pred.PredictedPrice,
					"confidence":      pred.Confidence,
					"days_ahead":      pred.DaysAhead,
				},
			})
		}
	}

	best := predictions[0].PredictedPrice
	for _, pred := range predictions[1:] {
		if pred.PredictedPrice < best {
			best = pred.PredictedPrice
		}
	}
	if best < current*dropTrigger {
		savings := current - best
		priority := models.PriorityMedium
		if savings > current*bigSavingsFactor {
			priority = models.PriorityHigh
		}
		out = append(out, models.AlertCandidate{
			Type:     models.AlertPredictedPriceDrop,
			Message:  fmt.Sprintf("AI predicts price drop of $%.2f (%.1f%%)", savings, savings/current*100),
			Priority: priority,
			Metrics: map[string]interface{}{
				"predicted_price": best,
				"savings":         savings,
			},
		})
	}

	if trend := analysis.Trend; trend != nil && trend.Direction == models.TrendDownward && trend.Strength > strongTrend {
		out = append(out, models.AlertCandidate{
			Type:     models.AlertDownwardTrend,
			Message:  fmt.Sprintf("Strong downward price trend detected (strength: %.2f)", trend.Strength),
			Priority: models.PriorityMedium,
			Metrics:  map[string]interface{}{"trend_strength": trend.Strength},
		})
	}

	if prob := analysis.DealProbability; prob != nil && *prob > highDealProb {
		out = append(out, models.AlertCandidate{
			Type:     models.AlertDealProbability,
			Message:  fmt.Sprintf("High probability (%.1f%%) of deal based on historical patterns", *prob*100),
			Priority: models.PriorityMedium,
			Metrics:  map[string]interface{}{"probability": *prob},
		})
	}

	if levels := analysis.Levels; levels != nil && levels.Support > 0 && current <= levels.Support*nearSupportBand {
		out = append(out, models.AlertCandidate{
			Type:     models.AlertNearSupportLevel,
			Message:  fmt.Sprintf("Price near support level ($%.2f) - potential buying opportunity", levels.Support),
			Priority: models.PriorityMedium,
			Metrics:  map[string]interface{}{"support_level": levels.Support},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank(out[i].Priority) < priorityRank(out[j].Priority)
	})
	return out
}

func priorityRank(p models.AlertPriority) int {
	if p == models.PriorityHigh {
		return 0
	}
	return 1
}
