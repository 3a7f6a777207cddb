package notify

import (
	"context"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	drepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/logger"
	"PricePulse/pkg/queue"
)

// Manager routes alerts to the product's enabled channels through the job
// queue, suppressing repeats of the same product/type pair inside the
// cooldown window.
type Manager struct {
	queue    queue.QueueService
	clock    drepo.Clock
	log      *logger.Logger
	cooldown time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

var _ drepo.Notifier = (*Manager)(nil)

// NewManager creates a notification manager. cooldown <= 0 defaults to
// one hour.
func NewManager(q queue.QueueService, clock drepo.Clock, log *logger.Logger, cooldown time.Duration) *Manager {
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &Manager{
		queue:    q,
		clock:    clock,
		log:      log,
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Notify enqueues one delivery job per enabled channel. The cooldown
// stamp is written only after at least one channel accepted the job, so
// a fully failed fan-out is retried on the next trigger.
func (m *Manager) Notify(ctx context.Context, product models.Product, alert models.PriceAlert) error {
	channels := enabledChannels(product)
	if len(channels) == 0 {
		return nil
	}

	key := product.ID + "|" + string(alert.Type)
	now := m.clock.Now()
	m.mu.Lock()
	if last, ok := m.last[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return drepo.ErrNotificationSuppressed
	}
	m.mu.Unlock()

	payload := NewPayload(product, alert)
	queued := 0
	var firstErr error
	for _, ch := range channels {
		if err := m.queue.PublishMessage(ctx, ch, payload); err != nil {
			m.log.Error("enqueue notification",
				logger.String("channel", ch),
				logger.String("product_id", product.ID),
				logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		queued++
	}
	if queued == 0 {
		return firstErr
	}

	m.mu.Lock()
	m.last[key] = now
	m.mu.Unlock()
	m.log.Info("notification queued",
		logger.String("product_id", product.ID),
		logger.String("type", string(alert.Type)),
		logger.Int("channels", queued))
	return nil
}

// Test enqueues a synthetic alert on the requested channel so operators
// can verify delivery end to end. channel "all" fans out to every
// channel; the cooldown does not apply.
func (m *Manager) Test(ctx context.Context, channel string) (map[string]bool, error) {
	targets := map[string]string{
		"slack":   ChannelSlack,
		"email":   ChannelEmail,
		"desktop": ChannelDesktop,
	}

	now := m.clock.Now()
	payload := Payload{
		AlertType:    "test",
		Priority:     models.PriorityMedium,
		Message:      "This is a test notification from PricePulse.",
		ProductTitle: "Test Product",
		TriggeredAt:  now,
	}

	results := make(map[string]bool, len(targets))
	var firstErr error
	for name, msgType := range targets {
		if channel != "all" && channel != name {
			continue
		}
		err := m.queue.PublishMessage(ctx, msgType, payload)
		results[name] = err == nil
		if err != nil {
			m.log.Error("enqueue test notification", logger.String("channel", name), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return results, firstErr
}
