package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckInterval values accepted for periodic price monitoring.
var CheckIntervals = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
}

// IsValidCheckInterval reports whether s is a supported interval label.
func IsValidCheckInterval(s string) bool {
	_, ok := CheckIntervals[s]
	return ok
}

// Product is a tracked item with its alerting preferences.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	ImageURL      string          `json:"image_url,omitempty"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TargetPrice   decimal.Decimal `json:"target_price,omitempty"` // zero = no target
	Currency      string          `json:"currency"`
	CheckInterval string          `json:"check_interval"`
	IsActive      bool            `json:"is_active"`
	Priority      int             `json:"priority"`
	NotifyEmail   bool            `json:"notify_email"`
	NotifySlack   bool            `json:"notify_slack"`
	NotifyDesktop bool            `json:"notify_desktop"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
}

// HasTarget reports whether a target price is set.
func (p Product) HasTarget() bool {
	return p.TargetPrice.IsPositive()
}

// TargetFloat returns the target price as float64, 0 when unset.
func (p Product) TargetFloat() float64 {
	f, _ := p.TargetPrice.Float64()
	return f
}

// WantsNotification reports whether any delivery channel is enabled.
func (p Product) WantsNotification() bool {
	return p.NotifyEmail || p.NotifySlack || p.NotifyDesktop
}

// dealDiscountPct is the minimum discount for a listing to count as a deal.
const dealDiscountPct = 5.0

// SearchResult is one offer returned by the product search client.
type SearchResult struct {
	Position     int             `json:"position"`
	SKU          string          `json:"sku,omitempty"`
	Title        string          `json:"title"`
	URL          string          `json:"link"`
	Source       string          `json:"source,omitempty"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"old_price,omitempty"`
	Rating       float64         `json:"rating,omitempty"`
	ReviewsCount int             `json:"reviews,omitempty"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
	Prime        bool            `json:"prime_eligible,omitempty"`
}

// DiscountPct derives the discount percentage from old vs current price.
func (r SearchResult) DiscountPct() float64 {
	if !r.OldPrice.IsPositive() || !r.Price.IsPositive() {
		return 0
	}
	old, _ := r.OldPrice.Float64()
	cur, _ := r.Price.Float64()
	if cur >= old {
		return 0
	}
	return (old - cur) / old * 100
}

// IsDeal reports whether the listed discount clears the deal threshold.
func (r SearchResult) IsDeal() bool {
	return r.DiscountPct() >= dealDiscountPct
}
