package features

import (
	"math"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/util"
)

// Feature column layout. Order is fixed: persisted models depend on it.
const (
	ColDayOfWeek = iota
	ColHour
	ColDayOfMonth
	ColDaysSinceStart
	ColRollingMean3
	ColRollingMean7
	ColVolatility
	ColDiscountPct
	ColRating
	ColReviewsCount
	ColRatingDelta
	ColReviewsGrowth

	NumColumns
)

// Build converts an ordered observation series into a supervised set:
// one row per observation except the last, target[i] = price of the next
// observation. Returns (nil, nil) when fewer than 2 observations exist;
// callers must treat that as "cannot proceed", not as zero-valued input.
func Build(obs []models.PriceObservation) ([][]float64, []float64) {
	n := len(obs)
	if n < 2 {
		return nil, nil
	}

	prices := models.Prices(obs)
	start := obs[0].ObservedAt

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, NumColumns)

		// Time features. Day-of-week is Monday=0..Sunday=6.
		row[ColDayOfWeek] = float64((int(obs[i].ObservedAt.Weekday()) + 6) % 7)
		row[ColHour] = float64(obs[i].ObservedAt.Hour())
		row[ColDayOfMonth] = float64(obs[i].ObservedAt.Day())
		row[ColDaysSinceStart] = float64(util.DaysBetween(start, obs[i].ObservedAt))

		// Trailing price features; partial windows allowed (min period 1).
		row[ColRollingMean3] = trailingMean(prices, i, 3)
		row[ColRollingMean7] = trailingMean(prices, i, 7)
		row[ColVolatility] = trailingStd(prices, i, 5)

		row[ColDiscountPct] = obs[i].DiscountPct
		row[ColRating] = obs[i].Rating
		row[ColReviewsCount] = float64(obs[i].ReviewsCount)

		if i == 0 {
			row[ColRatingDelta] = math.NaN()
			row[ColReviewsGrowth] = math.NaN()
		} else {
			row[ColRatingDelta] = obs[i].Rating - obs[i-1].Rating
			row[ColReviewsGrowth] = pctChange(obs[i-1].ReviewsCount, obs[i].ReviewsCount)
		}

		rows[i] = row
	}

	fillMissing(rows)

	// Supervised shift-by-one: drop the last feature row, target is the
	// following observation's price.
	features := rows[:n-1]
	target := prices[1:]
	return features, target
}

// trailingMean averages the window of up to `window` prices ending at i.
func trailingMean(prices []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum := 0.0
	for j := lo; j <= i; j++ {
		sum += prices[j]
	}
	return sum / float64(i-lo+1)
}

// trailingStd computes the sample stddev of the window of up to `window`
// prices ending at i. Windows with a single element have no defined
// sample deviation and yield NaN (handled by fillMissing).
func trailingStd(prices []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	count := i - lo + 1
	if count < 2 {
		return math.NaN()
	}
	mean := 0.0
	for j := lo; j <= i; j++ {
		mean += prices[j]
	}
	mean /= float64(count)
	ss := 0.0
	for j := lo; j <= i; j++ {
		d := prices[j] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(count-1))
}

// pctChange is the fractional growth from prev to cur. Undefined when
// prev is zero.
func pctChange(prev, cur int) float64 {
	if prev == 0 {
		return math.NaN()
	}
	return float64(cur-prev) / float64(prev)
}

// fillMissing applies the NaN policy: forward-fill each column from the
// previous row, then any NaN still left becomes 0. The output is always
// fully dense; sparse inputs trade fidelity for robustness here.
func fillMissing(rows [][]float64) {
	for col := 0; col < NumColumns; col++ {
		last := math.NaN()
		for i := range rows {
			if math.IsNaN(rows[i][col]) {
				rows[i][col] = last
			} else {
				last = rows[i][col]
			}
		}
		for i := range rows {
			if math.IsNaN(rows[i][col]) {
				rows[i][col] = 0
			}
		}
	}
}
