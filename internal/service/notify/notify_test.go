package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	drepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/logger"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

type captureQueue struct {
	types    []string
	payloads []interface{}
	err      error
}

func (q *captureQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func newNotifyLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func alertFixture() (models.Product, models.PriceAlert) {
	product := models.Product{
		ID:          "prod-1",
		Title:       "4K Monitor",
		URL:         "https://shop.example/dp/B0AAA",
		TargetPrice: decimal.NewFromInt(100),
		NotifySlack: true,
		NotifyEmail: true,
	}
	alert := models.PriceAlert{
		ID:             7,
		ProductID:      "prod-1",
		Type:           models.AlertTargetReached,
		Message:        "Target price reached for 4K Monitor!",
		Priority:       models.PriorityHigh,
		TriggeredPrice: decimal.NewFromFloat(95),
		CreatedAt:      time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC),
	}
	return product, alert
}

func TestManagerRoutesEnabledChannels(t *testing.T) {
	product, alert := alertFixture()
	q := &captureQueue{}
	m := NewManager(q, &manualClock{now: time.Now()}, newNotifyLogger(t), time.Hour)

	require.NoError(t, m.Notify(context.Background(), product, alert))

	assert.Equal(t, []string{ChannelSlack, ChannelEmail}, q.types)
	require.Len(t, q.payloads, 2)
	p, ok := q.payloads[0].(Payload)
	require.True(t, ok)
	assert.Equal(t, int64(7), p.AlertID)
	assert.Equal(t, models.AlertTargetReached, p.AlertType)
	assert.Equal(t, "4K Monitor", p.ProductTitle)
	assert.True(t, p.Price.Equal(decimal.NewFromFloat(95)))
	assert.True(t, p.TargetPrice.Equal(decimal.NewFromInt(100)))
}

func TestManagerNoChannelsIsNoop(t *testing.T) {
	product, alert := alertFixture()
	product.NotifySlack = false
	product.NotifyEmail = false
	q := &captureQueue{}
	m := NewManager(q, &manualClock{now: time.Now()}, newNotifyLogger(t), time.Hour)

	require.NoError(t, m.Notify(context.Background(), product, alert))
	assert.Empty(t, q.types)
}

func TestManagerCooldownSuppressesRepeats(t *testing.T) {
	product, alert := alertFixture()
	product.NotifyEmail = false
	clock := &manualClock{now: time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)}
	q := &captureQueue{}
	m := NewManager(q, clock, newNotifyLogger(t), time.Hour)

	require.NoError(t, m.Notify(context.Background(), product, alert))
	require.Len(t, q.types, 1)

	err := m.Notify(context.Background(), product, alert)
	require.ErrorIs(t, err, drepo.ErrNotificationSuppressed)
	assert.Len(t, q.types, 1)

	// A different alert type for the same product is its own window.
	dealAlert := alert
	dealAlert.Type = models.AlertDealFound
	require.NoError(t, m.Notify(context.Background(), product, dealAlert))
	assert.Len(t, q.types, 2)

	clock.now = clock.now.Add(61 * time.Minute)
	require.NoError(t, m.Notify(context.Background(), product, alert))
	assert.Len(t, q.types, 3)
}

func TestManagerFailedFanoutIsRetriable(t *testing.T) {
	product, alert := alertFixture()
	q := &captureQueue{err: errors.New("queue full")}
	m := NewManager(q, &manualClock{now: time.Now()}, newNotifyLogger(t), time.Hour)

	err := m.Notify(context.Background(), product, alert)
	require.ErrorContains(t, err, "queue full")

	// No cooldown stamp was written, so the next trigger goes through.
	q.err = nil
	require.NoError(t, m.Notify(context.Background(), product, alert))
	assert.Len(t, q.types, 2)
}

func TestSlackSenderPostsBlocks(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
	}))
	t.Cleanup(srv.Close)

	s := NewSlackSender(SlackConfig{WebhookURL: srv.URL, Channel: "#deals"}, newNotifyLogger(t))
	product, alert := alertFixture()
	require.NoError(t, s.SendAlert(context.Background(), NewPayload(product, alert)))

	body := <-bodies
	assert.Equal(t, "#deals", body["channel"])
	assert.Equal(t, "PricePulse", body["username"])
	assert.Equal(t, ":shopping_bags:", body["icon_emoji"])
	assert.Equal(t, "Price Alert: 4K Monitor - $95.00", body["text"])

	blocks, ok := body["blocks"].([]interface{})
	require.True(t, ok)
	// header, price/type fields, target section, message, link button.
	require.Len(t, blocks, 5)
	header := blocks[0].(map[string]interface{})
	assert.Equal(t, "header", header["type"])
	headerText := header["text"].(map[string]interface{})["text"].(string)
	assert.Contains(t, headerText, "🎯")
	assert.Contains(t, headerText, "4K Monitor")
	actions := blocks[4].(map[string]interface{})
	assert.Equal(t, "actions", actions["type"])
}

func TestSlackSenderReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	s := NewSlackSender(SlackConfig{WebhookURL: srv.URL}, newNotifyLogger(t))
	err := s.SendMessage(context.Background(), "ping")
	require.ErrorContains(t, err, "status 400")
}

func TestEmailMessageFormat(t *testing.T) {
	s := NewEmailSender(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "alerts@example.com",
		To:   []string{"me@example.com"},
	}, newNotifyLogger(t))
	product, alert := alertFixture()

	msg := string(s.message(NewPayload(product, alert)))
	assert.Contains(t, msg, "From: alerts@example.com\r\n")
	assert.Contains(t, msg, "To: me@example.com\r\n")
	assert.Contains(t, msg, "Subject: Price Alert: 4K Monitor\r\n")
	assert.Contains(t, msg, "Target price reached for 4K Monitor!")
	assert.Contains(t, msg, "Current price: $95.00")
	assert.Contains(t, msg, "Target price: $100.00")
	assert.Contains(t, msg, "Listing: https://shop.example/dp/B0AAA")
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Target Reached", typeLabel(models.AlertTargetReached))
	assert.Equal(t, "Deal Found", typeLabel(models.AlertDealFound))
	assert.Equal(t, "Price Drop", typeLabel(models.AlertPriceDrop))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	long := "An Extremely Long Product Title That Keeps Going And Going Forever"
	got := truncate(long, 10)
	assert.Equal(t, "An Extreme...", got)
}

func TestAlertEmojiFallback(t *testing.T) {
	assert.Equal(t, "💰", alertEmoji(models.AlertDownwardTrend))
}
