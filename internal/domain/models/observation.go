package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one recorded price point for a product.
// The sequence for a product is ordered by ObservedAt ascending and
// never mutated after recording.
type PriceObservation struct {
	ProductID    string          `json:"product_id"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"old_price,omitempty"`
	DiscountPct  float64         `json:"discount_percentage,omitempty"`
	Rating       float64         `json:"rating,omitempty"`
	ReviewsCount int             `json:"reviews_count,omitempty"`
	Prime        bool            `json:"prime_eligible,omitempty"`
	ObservedAt   time.Time       `json:"observed_at"`
}

// PriceFloat returns the price as float64 for numeric pipelines.
func (o PriceObservation) PriceFloat() float64 {
	f, _ := o.Price.Float64()
	return f
}

// Prices extracts the float price series from an ordered observation slice.
func Prices(obs []PriceObservation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.PriceFloat()
	}
	return out
}
