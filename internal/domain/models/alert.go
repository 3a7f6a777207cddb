package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertType string

// Forecast-driven alert types produced by the synthesizer.
const (
	AlertTargetPricePrediction AlertType = "target_price_prediction"
	AlertPredictedPriceDrop    AlertType = "predicted_price_drop"
	AlertDownwardTrend         AlertType = "downward_trend"
	AlertDealProbability       AlertType = "deal_probability"
	AlertNearSupportLevel      AlertType = "near_support_level"
)

// Monitor-driven alert types raised on fresh observations.
const (
	AlertTargetReached AlertType = "target_reached"
	AlertDealFound     AlertType = "deal_found"
	AlertPriceDrop     AlertType = "price_drop"
)

type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
)

// AlertCandidate is one synthesized, human-readable alert. Ephemeral:
// the notification layer decides what to do with it.
type AlertCandidate struct {
	Type     AlertType              `json:"type"`
	Message  string                 `json:"message"`
	Priority AlertPriority          `json:"priority"`
	Metrics  map[string]interface{} `json:"metrics,omitempty"`
}

// PriceAlert is a persisted alert row tied to a product.
type PriceAlert struct {
	ID             int64           `json:"id"`
	ProductID      string          `json:"product_id"`
	Type           AlertType       `json:"type"`
	Message        string          `json:"message"`
	Priority       AlertPriority   `json:"priority"`
	TriggeredPrice decimal.Decimal `json:"triggered_price"`
	Notified       bool            `json:"notified"`
	CreatedAt      time.Time       `json:"created_at"`
}
