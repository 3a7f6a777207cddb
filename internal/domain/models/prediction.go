package models

import "time"

// PredictionResult is one point forecast for a product at a given horizon.
// LowerBound/UpperBound are present only when the model can report a
// prediction distribution.
type PredictionResult struct {
	ProductID        string    `json:"product_id"`
	DaysAhead        int       `json:"days_ahead"`
	PredictedPrice   float64   `json:"predicted_price"`
	Confidence       float64   `json:"confidence_score"`
	LowerBound       *float64  `json:"lower_bound,omitempty"`
	UpperBound       *float64  `json:"upper_bound,omitempty"`
	AccuracyEstimate *float64  `json:"accuracy_estimate,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasInterval reports whether an uncertainty interval was produced.
func (p PredictionResult) HasInterval() bool {
	return p.LowerBound != nil && p.UpperBound != nil
}
