package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/logger"
)

// Broadcaster pushes live frames to connected dashboard clients.
type Broadcaster interface {
	BroadcastAlert(a models.PriceAlert)
}

// MonitorConfig tunes the periodic price monitor. Zero values fall back
// to the defaults applied by NewMonitor.
type MonitorConfig struct {
	DefaultInterval    string
	PriceDropThreshold float64 // percent vs the previous observation
	DealThreshold      float64 // listed discount percent
	CheckTimeout       time.Duration
	MaxConcurrent      int
}

// MonitorStatus is a point-in-time snapshot for the status endpoint.
type MonitorStatus struct {
	Running         bool           `json:"running"`
	Groups          map[string]int `json:"groups"`
	ChecksCompleted int64          `json:"checks_completed"`
	ChecksFailed    int64          `json:"checks_failed"`
	AlertsSent      int64          `json:"alerts_sent"`
	AvgCheckSeconds float64        `json:"average_check_seconds"`
	LastCheckAt     *time.Time     `json:"last_check_at,omitempty"`
}

const (
	sweepBatchSize   = 1000
	prevLookbackDays = 30
)

// Monitor periodically re-prices active products through the search
// client, records observations and raises threshold alerts. Products are
// grouped by check interval; each group ticks on its own schedule and
// re-reads the active set, so products created after Start are picked up
// without a restart.
type Monitor struct {
	products domrepo.ProductStore
	history  domrepo.PriceHistoryStore
	alerts   domrepo.AlertStore
	search   domrepo.SearchClient
	events   domrepo.EventPublisher
	notifier domrepo.Notifier
	hub      Broadcaster
	metrics  domrepo.Metrics
	clock    domrepo.Clock
	log      *logger.Logger
	cfg      MonitorConfig

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	groups    map[string]int
	completed int64
	failed    int64
	sent      int64
	lastCheck time.Time
	avgCheck  float64
}

// NewMonitor creates the price monitor. notifier and hub may be nil.
func NewMonitor(
	products domrepo.ProductStore,
	history domrepo.PriceHistoryStore,
	alerts domrepo.AlertStore,
	search domrepo.SearchClient,
	events domrepo.EventPublisher,
	notifier domrepo.Notifier,
	hub Broadcaster,
	metrics domrepo.Metrics,
	clock domrepo.Clock,
	log *logger.Logger,
	cfg MonitorConfig,
) *Monitor {
	if !models.IsValidCheckInterval(cfg.DefaultInterval) {
		cfg.DefaultInterval = "1h"
	}
	if cfg.PriceDropThreshold <= 0 {
		cfg.PriceDropThreshold = 5.0
	}
	if cfg.DealThreshold <= 0 {
		cfg.DealThreshold = 10.0
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	return &Monitor{
		products: products,
		history:  history,
		alerts:   alerts,
		search:   search,
		events:   events,
		notifier: notifier,
		hub:      hub,
		metrics:  metrics,
		clock:    clock,
		log:      log,
		cfg:      cfg,
		groups:   make(map[string]int),
	}
}

// Start launches one ticker goroutine per supported check interval.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Warn("price monitor already running")
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	for label, every := range models.CheckIntervals {
		m.wg.Add(1)
		go m.run(runCtx, label, every)
	}
	m.log.Info("price monitor started",
		logger.Int("interval_groups", len(models.CheckIntervals)),
		logger.String("default_interval", m.cfg.DefaultInterval))
	return nil
}

// Stop cancels the ticker goroutines and waits for in-flight checks.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.log.Info("price monitor stopped")
}

func (m *Monitor) run(ctx context.Context, label string, every time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx, label)
		}
	}
}

// sweep re-prices every active product whose interval resolves to label.
func (m *Monitor) sweep(ctx context.Context, label string) {
	active, err := m.products.List(ctx, true, sweepBatchSize, 0)
	if err != nil {
		m.metrics.RecordError("monitor_list")
		m.log.Error("list products for sweep", logger.String("interval", label), logger.Error(err))
		return
	}

	batch := make([]models.Product, 0, len(active))
	for _, p := range active {
		if m.intervalLabel(p) == label {
			batch = append(batch, p)
		}
	}

	m.mu.Lock()
	m.groups[label] = len(batch)
	m.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	m.log.Debug("sweep started", logger.String("interval", label), logger.Int("products", len(batch)))
	m.checkBatch(ctx, batch)
}

// checkBatch runs checks with bounded concurrency and a per-check timeout.
func (m *Monitor) checkBatch(ctx context.Context, batch []models.Product) {
	sem := make(chan struct{}, m.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	for _, p := range batch {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(p models.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			cctx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
			defer cancel()
			if _, err := m.CheckProduct(cctx, p); err != nil {
				m.log.Warn("price check failed", logger.String("product_id", p.ID), logger.Error(err))
			}
		}(p)
	}
	wg.Wait()
}

// CheckAll runs one immediate sweep over every active product and
// returns how many were checked.
func (m *Monitor) CheckAll(ctx context.Context) (int, error) {
	active, err := m.products.List(ctx, true, sweepBatchSize, 0)
	if err != nil {
		return 0, fmt.Errorf("list active products: %w", err)
	}
	m.checkBatch(ctx, active)
	return len(active), nil
}

// CheckByID runs an immediate price check for one product.
func (m *Monitor) CheckByID(ctx context.Context, id string) (*models.PriceObservation, error) {
	p, err := m.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()
	return m.CheckProduct(cctx, *p)
}

// CheckProduct fetches the live listing for p, appends an observation,
// refreshes product metadata and raises any threshold alerts. It returns
// the recorded observation.
func (m *Monitor) CheckProduct(ctx context.Context, p models.Product) (*models.PriceObservation, error) {
	started := m.clock.Now()

	listing, err := m.fetchListing(ctx, p)
	if err != nil {
		m.metrics.RecordError("search")
		m.recordCheck(started, false)
		return nil, fmt.Errorf("fetch listing for %s: %w", p.ID, err)
	}
	if listing == nil || !listing.Price.IsPositive() {
		m.recordCheck(started, false)
		return nil, fmt.Errorf("no priced listing for product %s", p.ID)
	}

	prev := m.previousPrice(ctx, p.ID)

	obs := models.PriceObservation{
		ProductID:    p.ID,
		Price:        listing.Price,
		OldPrice:     listing.OldPrice,
		DiscountPct:  listing.DiscountPct(),
		Rating:       listing.Rating,
		ReviewsCount: listing.ReviewsCount,
		Prime:        listing.Prime,
		ObservedAt:   started,
	}
	if err := m.history.Append(ctx, obs); err != nil {
		m.metrics.RecordError("append_observation")
		m.recordCheck(started, false)
		return nil, fmt.Errorf("append observation for %s: %w", p.ID, err)
	}

	m.refreshProduct(ctx, p, listing)
	m.raiseAlerts(ctx, p, obs, prev)

	price, _ := listing.Price.Float64()
	m.metrics.RecordLastPrice(p.ID, price)
	m.metrics.RecordEvent("price_check")
	m.recordCheck(started, true)
	m.log.Info("price check completed",
		logger.String("product_id", p.ID),
		logger.String("price", listing.Price.StringFixed(2)),
		logger.Float64("discount_pct", obs.DiscountPct))
	return &obs, nil
}

// Status reports the monitor's runtime state and counters.
func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups := make(map[string]int, len(m.groups))
	for label, n := range m.groups {
		groups[label] = n
	}
	st := MonitorStatus{
		Running:         m.running,
		Groups:          groups,
		ChecksCompleted: m.completed,
		ChecksFailed:    m.failed,
		AlertsSent:      m.sent,
		AvgCheckSeconds: m.avgCheck,
	}
	if !m.lastCheck.IsZero() {
		t := m.lastCheck
		st.LastCheckAt = &t
	}
	return st
}

// fetchListing resolves the product's live listing: by SKU when known,
// otherwise the cheapest title match.
func (m *Monitor) fetchListing(ctx context.Context, p models.Product) (*models.SearchResult, error) {
	if p.SKU != "" {
		return m.search.Lookup(ctx, p.SKU)
	}
	return m.search.BestMatch(ctx, p.Title, p.TargetPrice)
}

// previousPrice returns the latest recorded price before this check,
// zero when the product has no history yet.
func (m *Monitor) previousPrice(ctx context.Context, productID string) decimal.Decimal {
	obs, err := m.history.ListObservations(ctx, productID, prevLookbackDays)
	if err != nil || len(obs) == 0 {
		return decimal.Zero
	}
	return obs[len(obs)-1].Price
}

// refreshProduct stamps last_checked/current_price and backfills listing
// metadata the product was created without. Failures only log: the
// observation is already recorded.
func (m *Monitor) refreshProduct(ctx context.Context, p models.Product, listing *models.SearchResult) {
	if err := m.products.TouchChecked(ctx, p.ID, m.clock.Now(), listing.Price); err != nil {
		m.log.Warn("touch product", logger.String("product_id", p.ID), logger.Error(err))
	}

	changed := false
	if p.SKU == "" && listing.SKU != "" {
		p.SKU = listing.SKU
		changed = true
	}
	if p.ImageURL == "" && listing.Thumbnail != "" {
		p.ImageURL = listing.Thumbnail
		changed = true
	}
	if p.URL == "" && listing.URL != "" {
		p.URL = listing.URL
		changed = true
	}
	if !changed {
		return
	}
	p.CurrentPrice = listing.Price
	if err := m.products.Update(ctx, &p); err != nil {
		m.log.Warn("backfill product metadata", logger.String("product_id", p.ID), logger.Error(err))
	}
}

// raiseAlerts evaluates the three monitor conditions against the fresh
// observation and dispatches whatever triggered.
func (m *Monitor) raiseAlerts(ctx context.Context, p models.Product, obs models.PriceObservation, prev decimal.Decimal) {
	var triggered []models.PriceAlert

	if p.HasTarget() && obs.Price.LessThanOrEqual(p.TargetPrice) {
		triggered = append(triggered, models.PriceAlert{
			ProductID:      p.ID,
			Type:           models.AlertTargetReached,
			Message:        fmt.Sprintf("Target price reached for %s!", p.Title),
			Priority:       models.PriorityHigh,
			TriggeredPrice: obs.Price,
		})
	}
	if obs.DiscountPct >= m.cfg.DealThreshold {
		triggered = append(triggered, models.PriceAlert{
			ProductID:      p.ID,
			Type:           models.AlertDealFound,
			Message:        fmt.Sprintf("Great deal found for %s!", p.Title),
			Priority:       models.PriorityMedium,
			TriggeredPrice: obs.Price,
		})
	}
	if prev.IsPositive() && obs.Price.LessThan(prev) {
		dropPct := prev.Sub(obs.Price).Div(prev).InexactFloat64() * 100
		if dropPct >= m.cfg.PriceDropThreshold {
			triggered = append(triggered, models.PriceAlert{
				ProductID:      p.ID,
				Type:           models.AlertPriceDrop,
				Message:        fmt.Sprintf("Significant price drop for %s!", p.Title),
				Priority:       models.PriorityMedium,
				TriggeredPrice: obs.Price,
			})
		}
	}

	for i := range triggered {
		m.dispatch(ctx, p, &triggered[i])
	}
}

// dispatch persists one alert, then fans it out to the bus, the live hub
// and the notification channels. Fan-out failures only log.
func (m *Monitor) dispatch(ctx context.Context, p models.Product, a *models.PriceAlert) {
	a.CreatedAt = m.clock.Now()
	if err := m.alerts.Insert(ctx, a); err != nil {
		m.metrics.RecordError("insert_alert")
		m.log.Error("persist alert",
			logger.String("product_id", p.ID),
			logger.String("type", string(a.Type)),
			logger.Error(err))
		return
	}

	if err := m.events.PublishAlert(ctx, *a); err != nil {
		m.metrics.RecordError("publish_alert")
		m.log.Warn("publish alert", logger.String("product_id", p.ID), logger.Error(err))
	} else {
		m.metrics.RecordMessageSent("alerts", p.ID)
	}

	if m.hub != nil {
		m.hub.BroadcastAlert(*a)
	}

	if m.notifier != nil && p.WantsNotification() {
		switch err := m.notifier.Notify(ctx, p, *a); {
		case errors.Is(err, domrepo.ErrNotificationSuppressed):
			m.log.Debug("notification in cooldown", logger.String("product_id", p.ID), logger.String("type", string(a.Type)))
		case err != nil:
			m.metrics.RecordError("notify")
			m.log.Warn("send notification", logger.String("product_id", p.ID), logger.Error(err))
		default:
			if err := m.alerts.MarkNotified(ctx, a.ID); err != nil {
				m.log.Warn("mark alert notified", logger.Int64("alert_id", a.ID), logger.Error(err))
			} else {
				a.Notified = true
			}
		}
	}

	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	m.log.Info("price alert raised",
		logger.String("product_id", p.ID),
		logger.String("type", string(a.Type)),
		logger.String("message", a.Message))
}

func (m *Monitor) intervalLabel(p models.Product) string {
	if models.IsValidCheckInterval(p.CheckInterval) {
		return p.CheckInterval
	}
	return m.cfg.DefaultInterval
}

// recordCheck updates the shared counters. Check duration feeds an EMA
// so a single slow upstream call does not dominate the average.
func (m *Monitor) recordCheck(started time.Time, ok bool) {
	elapsed := m.clock.Now().Sub(started).Seconds()
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.completed++
	} else {
		m.failed++
	}
	m.lastCheck = m.clock.Now()
	if m.avgCheck == 0 {
		m.avgCheck = elapsed
	} else {
		m.avgCheck = m.avgCheck*0.9 + elapsed*0.1
	}
}
