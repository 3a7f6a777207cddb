package analysis

import (
	"PricePulse/internal/domain/models"
	"PricePulse/pkg/util"
)

const seasonalityMinPoints = 14

// Seasonal groups mean price by weekday name and, when the series spans
// more than one distinct hour, by hour of day. Hourly buckets are
// dropped for series sampled at a single fixed hour since they would
// just restate the overall mean.
func Seasonal(obs []models.PriceObservation) *models.Seasonality {
	if len(obs) < seasonalityMinPoints {
		return nil
	}

	daySums := make(map[string]float64)
	dayCounts := make(map[string]int)
	hourSums := make(map[int]float64)
	hourCounts := make(map[int]int)

	for _, o := range obs {
		price := o.PriceFloat()
		day := util.DayName(o.ObservedAt)
		daySums[day] += price
		dayCounts[day]++

		hour := o.ObservedAt.Hour()
		hourSums[hour] += price
		hourCounts[hour]++
	}

	out := &models.Seasonality{ByDayOfWeek: make(map[string]float64, len(daySums))}
	for day, sum := range daySums {
		out.ByDayOfWeek[day] = sum / float64(dayCounts[day])
	}

	if len(hourSums) > 1 {
		out.ByHour = make(map[int]float64, len(hourSums))
		for hour, sum := range hourSums {
			out.ByHour[hour] = sum / float64(hourCounts[hour])
		}
	}
	return out
}
