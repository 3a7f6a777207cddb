package analysis

import (
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/service"
	"PricePulse/pkg/logger"
)

// analysisMinPoints is the floor for running any analysis at all.
// Individual sub-analyses raise their own minimums on top.
const analysisMinPoints = 3

// Analyzer runs the full statistical battery over one product's series.
type Analyzer struct {
	log *logger.Logger
}

var _ service.TrendAnalyzer = (*Analyzer)(nil)

func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{log: log}
}

// Analyze returns nil when fewer than 3 observations exist. Otherwise
// every sub-analysis with enough data contributes its block; the rest
// stay nil and the caller serves a partial result.
func (a *Analyzer) Analyze(productID string, obs []models.PriceObservation, periodDays int, now time.Time) *models.TrendAnalysis {
	if len(obs) < analysisMinPoints {
		a.log.Debug("not enough observations for analysis",
			logger.String("product_id", productID),
			logger.Int("observations", len(obs)))
		return nil
	}

	prices := models.Prices(obs)
	current := prices[len(prices)-1]

	result := &models.TrendAnalysis{
		ProductID:       productID,
		PeriodDays:      periodDays,
		Observations:    len(obs),
		CurrentPrice:    current,
		Statistics:      Statistics(prices),
		Trend:           Trend(prices),
		Patterns:        Patterns(prices),
		Seasonality:     Seasonal(obs),
		Levels:          Levels(prices, current),
		DealProbability: DealProbability(prices, current),
		AnalyzedAt:      now,
	}

	a.log.Debug("price trends analyzed",
		logger.String("product_id", productID),
		logger.Int("observations", len(obs)),
		logger.String("direction", string(result.Trend.Direction)))
	return result
}
