package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

type memProducts struct {
	mu      sync.Mutex
	items   map[string]*models.Product
	touched int
}

func newMemProducts(ps ...models.Product) *memProducts {
	m := &memProducts{items: make(map[string]*models.Product)}
	for i := range ps {
		p := ps[i]
		m.items[p.ID] = &p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) List(_ context.Context, activeOnly bool, _, _ int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.items))
	for _, p := range m.items {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// Update mirrors the SQL store: created_at and last_checked_at are not
// update columns, so the stored values survive.
func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[p.ID]
	if !ok {
		return domrepo.ErrNotFound
	}
	cp := *p
	cp.CreatedAt = cur.CreatedAt
	cp.LastCheckedAt = cur.LastCheckedAt
	m.items[p.ID] = &cp
	return nil
}

func (m *memProducts) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return domrepo.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *memProducts) TouchChecked(_ context.Context, id string, at time.Time, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return domrepo.ErrNotFound
	}
	t := at
	p.LastCheckedAt = &t
	p.CurrentPrice = price
	m.touched++
	return nil
}

func (m *memProducts) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memProducts) CountActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.items {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

type memAlerts struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.PriceAlert
	err    error
}

func (m *memAlerts) Insert(_ context.Context, a *models.PriceAlert) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAlerts) ListRecent(_ context.Context, productID string, limit int) ([]models.PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PriceAlert{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if productID == "" || m.rows[i].ProductID == productID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memAlerts) MarkNotified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Notified = true
			return nil
		}
	}
	return domrepo.ErrNotFound
}

func (m *memAlerts) Counts(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notified := 0
	for i := range m.rows {
		if m.rows[i].Notified {
			notified++
		}
	}
	return len(m.rows), notified, nil
}

type stubSearch struct {
	mu      sync.Mutex
	result  *models.SearchResult
	err     error
	lookups []string
	queries []string
}

func (s *stubSearch) Search(_ context.Context, query string, _ int) ([]models.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return nil, nil
	}
	return []models.SearchResult{*s.result}, nil
}

func (s *stubSearch) Lookup(_ context.Context, sku string) (*models.SearchResult, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, sku)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSearch) BestMatch(_ context.Context, query string, _ decimal.Decimal) (*models.SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSearch) Health(context.Context) error { return nil }

type captureNotifier struct {
	mu   sync.Mutex
	sent []models.PriceAlert
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, _ models.Product, a models.PriceAlert) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	n.sent = append(n.sent, a)
	n.mu.Unlock()
	return nil
}

type captureHub struct {
	mu     sync.Mutex
	frames []models.PriceAlert
}

func (h *captureHub) BroadcastAlert(a models.PriceAlert) {
	h.mu.Lock()
	h.frames = append(h.frames, a)
	h.mu.Unlock()
}

type monitorHarness struct {
	products *memProducts
	history  *memHistory
	alerts   *memAlerts
	search   *stubSearch
	events   *captureEvents
	notifier *captureNotifier
	hub      *captureHub
	mon      *Monitor
}

func newMonitorHarness(t *testing.T, cfg MonitorConfig, products ...models.Product) *monitorHarness {
	t.Helper()
	h := &monitorHarness{
		products: newMemProducts(products...),
		history:  &memHistory{},
		alerts:   &memAlerts{},
		search:   &stubSearch{},
		events:   &captureEvents{},
		notifier: &captureNotifier{},
		hub:      &captureHub{},
	}
	h.mon = NewMonitor(
		h.products,
		h.history,
		h.alerts,
		h.search,
		h.events,
		h.notifier,
		h.hub,
		nopMetrics{},
		domrepo.SystemClock{},
		newTestLogger(t),
		cfg,
	)
	return h
}

func trackedProduct(id string) models.Product {
	return models.Product{
		ID:            id,
		SKU:           "B0" + id,
		Title:         "4K Monitor",
		URL:           "https://shop.example/dp/B0" + id,
		CurrentPrice:  decimal.NewFromInt(120),
		Currency:      "USD",
		CheckInterval: "1h",
		IsActive:      true,
		NotifySlack:   true,
	}
}

func TestMonitorCheckProductRecordsObservation(t *testing.T) {
	p := trackedProduct("prod-1")
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.search.result = &models.SearchResult{
		SKU:          p.SKU,
		Title:        p.Title,
		Price:        decimal.NewFromFloat(95),
		Rating:       4.5,
		ReviewsCount: 1200,
		Prime:        true,
	}

	obs, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, []string{p.SKU}, h.search.lookups)
	require.Len(t, h.history.obs, 1)
	got := h.history.obs[0]
	assert.Equal(t, p.ID, got.ProductID)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(95)))
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 1200, got.ReviewsCount)
	assert.True(t, got.Prime)
	assert.Zero(t, got.DiscountPct)

	stored, err := h.products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromFloat(95)))

	assert.Empty(t, h.alerts.rows)
	assert.Empty(t, h.events.alerts)
	assert.Empty(t, h.notifier.sent)

	st := h.mon.Status()
	assert.Equal(t, int64(1), st.ChecksCompleted)
	assert.Equal(t, int64(0), st.ChecksFailed)
	assert.Equal(t, int64(0), st.AlertsSent)
	require.NotNil(t, st.LastCheckAt)
}

func TestMonitorCheckProductTargetReached(t *testing.T) {
	p := trackedProduct("prod-2")
	p.TargetPrice = decimal.NewFromInt(100)
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.search.result = &models.SearchResult{SKU: p.SKU, Price: decimal.NewFromFloat(95)}

	_, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, h.alerts.rows, 1)
	alert := h.alerts.rows[0]
	assert.Equal(t, models.AlertTargetReached, alert.Type)
	assert.Equal(t, "Target price reached for 4K Monitor!", alert.Message)
	assert.Equal(t, models.PriorityHigh, alert.Priority)
	assert.True(t, alert.TriggeredPrice.Equal(decimal.NewFromFloat(95)))
	assert.Equal(t, int64(1), alert.ID)
	assert.True(t, alert.Notified, "successful delivery marks the row notified")

	assert.Len(t, h.events.alerts, 1)
	assert.Len(t, h.hub.frames, 1)
	assert.Len(t, h.notifier.sent, 1)
	assert.Equal(t, int64(1), h.mon.Status().AlertsSent)
}

func TestMonitorCheckProductDealAndDropTogether(t *testing.T) {
	p := trackedProduct("prod-3")
	h := newMonitorHarness(t, MonitorConfig{}, p)
	for _, prior := range []float64{125, 120} {
		require.NoError(t, h.history.Append(context.Background(), models.PriceObservation{
			ProductID:  p.ID,
			Price:      decimal.NewFromFloat(prior),
			ObservedAt: time.Now().Add(-time.Hour),
		}))
	}
	h.search.result = &models.SearchResult{
		SKU:      p.SKU,
		Price:    decimal.NewFromFloat(95),
		OldPrice: decimal.NewFromFloat(120),
	}

	obs, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 20.833, obs.DiscountPct, 0.01)

	require.Len(t, h.alerts.rows, 2)
	assert.Equal(t, models.AlertDealFound, h.alerts.rows[0].Type)
	assert.Equal(t, "Great deal found for 4K Monitor!", h.alerts.rows[0].Message)
	assert.Equal(t, models.AlertPriceDrop, h.alerts.rows[1].Type)
	assert.Equal(t, "Significant price drop for 4K Monitor!", h.alerts.rows[1].Message)
	assert.Len(t, h.history.obs, 3)
}

func TestMonitorCheckProductNoListing(t *testing.T) {
	p := trackedProduct("prod-4")
	h := newMonitorHarness(t, MonitorConfig{}, p)

	_, err := h.mon.CheckProduct(context.Background(), p)
	require.ErrorContains(t, err, "no priced listing")

	assert.Empty(t, h.history.obs)
	st := h.mon.Status()
	assert.Equal(t, int64(0), st.ChecksCompleted)
	assert.Equal(t, int64(1), st.ChecksFailed)
}

func TestMonitorCheckProductSearchError(t *testing.T) {
	p := trackedProduct("prod-5")
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.search.err = errors.New("upstream throttled")

	_, err := h.mon.CheckProduct(context.Background(), p)
	require.ErrorContains(t, err, "fetch listing")
	assert.Equal(t, int64(1), h.mon.Status().ChecksFailed)
}

func TestMonitorCheckProductBackfillsMetadata(t *testing.T) {
	p := models.Product{
		ID:            "prod-6",
		Title:         "Mechanical Keyboard",
		CheckInterval: "1h",
		IsActive:      true,
	}
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.search.result = &models.SearchResult{
		SKU:       "B0FOUND",
		Title:     "Mechanical Keyboard RGB",
		URL:       "https://shop.example/dp/B0FOUND",
		Thumbnail: "https://img.example/B0FOUND.jpg",
		Price:     decimal.NewFromFloat(79.99),
	}

	_, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mechanical Keyboard"}, h.search.queries, "no SKU means title search")
	stored, err := h.products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "B0FOUND", stored.SKU)
	assert.Equal(t, "https://img.example/B0FOUND.jpg", stored.ImageURL)
	assert.Equal(t, "https://shop.example/dp/B0FOUND", stored.URL)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromFloat(79.99)))
	require.NotNil(t, stored.LastCheckedAt)
}

func TestMonitorCheckByIDNotFound(t *testing.T) {
	h := newMonitorHarness(t, MonitorConfig{})

	_, err := h.mon.CheckByID(context.Background(), "ghost")
	require.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestMonitorCheckAllSkipsInactive(t *testing.T) {
	p1 := trackedProduct("prod-7")
	p2 := trackedProduct("prod-8")
	p3 := trackedProduct("prod-9")
	p3.IsActive = false
	h := newMonitorHarness(t, MonitorConfig{MaxConcurrent: 1}, p1, p2, p3)
	h.search.result = &models.SearchResult{Price: decimal.NewFromFloat(95)}

	n, err := h.mon.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, h.history.obs, 2)
	assert.Equal(t, int64(2), h.mon.Status().ChecksCompleted)
}

func TestMonitorStartStop(t *testing.T) {
	h := newMonitorHarness(t, MonitorConfig{})

	require.NoError(t, h.mon.Start(context.Background()))
	assert.True(t, h.mon.Status().Running)

	// Second start is a no-op.
	require.NoError(t, h.mon.Start(context.Background()))

	h.mon.Stop()
	assert.False(t, h.mon.Status().Running)
	h.mon.Stop()
}

func TestMonitorAlertInsertFailureSkipsFanout(t *testing.T) {
	p := trackedProduct("prod-10")
	p.TargetPrice = decimal.NewFromInt(100)
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.alerts.err = errors.New("alerts table unavailable")
	h.search.result = &models.SearchResult{SKU: p.SKU, Price: decimal.NewFromFloat(95)}

	// The observation is already recorded; a dead alert store must not
	// fail the check.
	_, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)

	assert.Len(t, h.history.obs, 1)
	assert.Empty(t, h.events.alerts)
	assert.Empty(t, h.hub.frames)
	assert.Empty(t, h.notifier.sent)
	st := h.mon.Status()
	assert.Equal(t, int64(1), st.ChecksCompleted)
	assert.Equal(t, int64(0), st.AlertsSent)
}

func TestMonitorAlertWithoutChannelsStaysUnnotified(t *testing.T) {
	p := trackedProduct("prod-11")
	p.TargetPrice = decimal.NewFromInt(100)
	p.NotifySlack = false
	h := newMonitorHarness(t, MonitorConfig{}, p)
	h.search.result = &models.SearchResult{SKU: p.SKU, Price: decimal.NewFromFloat(95)}

	_, err := h.mon.CheckProduct(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, h.alerts.rows, 1)
	assert.False(t, h.alerts.rows[0].Notified)
	assert.Empty(t, h.notifier.sent)
	assert.Len(t, h.events.alerts, 1, "bus publish does not depend on channels")
	assert.Len(t, h.hub.frames, 1)
}
