package models

import "time"

type TrendDirection string

const (
	TrendUpward   TrendDirection = "upward"
	TrendDownward TrendDirection = "downward"
	TrendSideways TrendDirection = "sideways"
	TrendUnknown  TrendDirection = "unknown"
)

// TrendSummary describes the linear trend of a price series.
type TrendSummary struct {
	Direction       TrendDirection `json:"direction"`
	Strength        float64        `json:"strength"` // |r| of the fit
	Slope           float64        `json:"slope"`
	RSquared        float64        `json:"r_squared"`
	RecentChangePct float64        `json:"recent_change_percent"` // last-5-point move
	PValue          float64        `json:"p_value"`
}

// PriceStatistics are the descriptive stats over the analysis window.
type PriceStatistics struct {
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	AveragePrice   float64 `json:"average_price"`
	Volatility     float64 `json:"volatility"` // stddev over the window
	PriceChange    float64 `json:"price_change"`
	PriceChangePct float64 `json:"price_change_percent"`
}

// PatternSummary flags detected price patterns. Flags are only meaningful
// when the series had at least 7 points; crossovers additionally need 10.
type PatternSummary struct {
	GoldenCross    bool `json:"golden_cross,omitempty"`
	DeathCross     bool `json:"death_cross,omitempty"`
	HighVolatility bool `json:"high_volatility,omitempty"`
	LowVolatility  bool `json:"low_volatility,omitempty"`
}

// Seasonality groups mean price by calendar buckets.
type Seasonality struct {
	ByDayOfWeek map[string]float64 `json:"day_of_week_patterns"`
	ByHour      map[int]float64    `json:"hourly_patterns,omitempty"`
}

// SupportResistance holds quartile-based price levels and the current
// price's relative position to each (as a ratio, not percent).
type SupportResistance struct {
	Support             float64 `json:"support"`
	Resistance          float64 `json:"resistance"`
	CurrentVsSupport    float64 `json:"current_vs_support"`
	CurrentVsResistance float64 `json:"current_vs_resistance"`
}

// TrendAnalysis is the full analysis bundle for one product. Pointer
// fields are nil when the series was too short for that sub-analysis.
type TrendAnalysis struct {
	ProductID       string             `json:"product_id"`
	PeriodDays      int                `json:"period_days"`
	Observations    int                `json:"observations"`
	CurrentPrice    float64            `json:"current_price"`
	Statistics      *PriceStatistics   `json:"price_statistics,omitempty"`
	Trend           *TrendSummary      `json:"trend,omitempty"`
	Patterns        *PatternSummary    `json:"patterns,omitempty"`
	Seasonality     *Seasonality       `json:"seasonal_info,omitempty"`
	Levels          *SupportResistance `json:"support_resistance,omitempty"`
	DealProbability *float64           `json:"deal_probability,omitempty"`
	AnalyzedAt      time.Time          `json:"analysis_date"`
}
