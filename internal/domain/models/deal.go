package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal pairs a tracked product with its latest discounted observation.
type Deal struct {
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	TargetPrice  decimal.Decimal `json:"target_price,omitempty"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"old_price,omitempty"`
	DiscountPct  float64         `json:"discount_percentage"`
	Savings      decimal.Decimal `json:"savings_amount,omitempty"`
	Rating       float64         `json:"rating,omitempty"`
	ReviewsCount int             `json:"reviews_count,omitempty"`
	Prime        bool            `json:"prime_eligible,omitempty"`
	CheckedAt    time.Time       `json:"checked_at"`
}

// NewDeal builds a deal view from a product and its latest observation.
func NewDeal(p Product, obs PriceObservation) Deal {
	d := Deal{
		ProductID:    p.ID,
		Title:        p.Title,
		URL:          p.URL,
		TargetPrice:  p.TargetPrice,
		Price:        obs.Price,
		OldPrice:     obs.OldPrice,
		DiscountPct:  obs.DiscountPct,
		Rating:       obs.Rating,
		ReviewsCount: obs.ReviewsCount,
		Prime:        obs.Prime,
		CheckedAt:    obs.ObservedAt,
	}
	if obs.OldPrice.GreaterThan(obs.Price) {
		d.Savings = obs.OldPrice.Sub(obs.Price)
	}
	return d
}
