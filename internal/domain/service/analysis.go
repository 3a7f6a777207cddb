package service

import (
	"time"

	"PricePulse/internal/domain/models"
)

// TrendAnalyzer turns an ordered observation series into the statistical
// analysis bundle. Sub-analyses below their sample minimum come back as
// nil fields, never as errors.
type TrendAnalyzer interface {
	Analyze(productID string, obs []models.PriceObservation, periodDays int, now time.Time) *models.TrendAnalysis
}
