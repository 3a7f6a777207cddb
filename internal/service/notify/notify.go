// Package notify fans triggered alerts out to Slack, email and desktop
// channels. The manager enqueues one job per enabled channel; delivery,
// retries and dead-lettering belong to the queue workers.
package notify

import (
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
)

// Queue message types, one per delivery channel.
const (
	ChannelSlack   = "notification.slack"
	ChannelEmail   = "notification.email"
	ChannelDesktop = "notification.desktop"
)

// Payload is the self-contained body of one queued notification.
type Payload struct {
	AlertID      int64                `json:"alert_id"`
	AlertType    models.AlertType     `json:"alert_type"`
	Priority     models.AlertPriority `json:"priority"`
	Message      string               `json:"message"`
	ProductID    string               `json:"product_id"`
	ProductTitle string               `json:"product_title"`
	ProductURL   string               `json:"product_url,omitempty"`
	Price        decimal.Decimal      `json:"price"`
	TargetPrice  decimal.Decimal      `json:"target_price,omitempty"`
	TriggeredAt  time.Time            `json:"triggered_at"`
}

// NewPayload binds an alert and its product into a queue-safe body.
func NewPayload(product models.Product, alert models.PriceAlert) Payload {
	return Payload{
		AlertID:      alert.ID,
		AlertType:    alert.Type,
		Priority:     alert.Priority,
		Message:      alert.Message,
		ProductID:    product.ID,
		ProductTitle: product.Title,
		ProductURL:   product.URL,
		Price:        alert.TriggeredPrice,
		TargetPrice:  product.TargetPrice,
		TriggeredAt:  alert.CreatedAt,
	}
}

func enabledChannels(p models.Product) []string {
	var out []string
	if p.NotifySlack {
		out = append(out, ChannelSlack)
	}
	if p.NotifyEmail {
		out = append(out, ChannelEmail)
	}
	if p.NotifyDesktop {
		out = append(out, ChannelDesktop)
	}
	return out
}
