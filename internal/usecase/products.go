package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgcache "PricePulse/pkg/cache"
	"PricePulse/pkg/logger"
)

// ProductChecker triggers an immediate price check for one product.
type ProductChecker interface {
	CheckByID(ctx context.Context, id string) (*models.PriceObservation, error)
}

const (
	initialCheckTimeout = 45 * time.Second
	dealScanLimit       = 1000
	defaultSearchTTL    = 5 * time.Minute
)

// Products orchestrates tracked-product CRUD plus the read views built
/// on top of the stores: history, deals, stats and search passthrough.
type Products struct {
	store       domrepo.ProductStore
	history     domrepo.PriceHistoryStore
	latest      domrepo.LatestObservationStore
	alerts      domrepo.AlertStore
	search      domrepo.SearchClient
	checker     ProductChecker
	searchCache pkgcache.Service
	searchTTL   time.Duration
	log         *logger.Logger
}

// NewProducts creates the product usecase. checker may be nil, in which
// case newly created products wait for their first scheduled sweep.
func NewProducts(
	store domrepo.ProductStore,
	history domrepo.PriceHistoryStore,
	latest domrepo.LatestObservationStore,
	alerts domrepo.AlertStore,
	search domrepo.SearchClient,
	checker ProductChecker,
	log *logger.Logger,
) *Products {
	return &Products{
		store:     store,
		history:   history,
		latest:    latest,
		alerts:    alerts,
		search:    search,
		checker:   checker,
		searchTTL: defaultSearchTTL,
		log:       log,
	}
}

// Create registers a product for tracking and schedules its first price
// check in the background.
func (u *Products) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	p := &models.Product{
		ID:            uuid.New().String(),
		SKU:           req.SKU,
		Title:         req.Title,
		URL:           req.URL,
		ImageURL:      req.ImageURL,
		CurrentPrice:  decimal.NewFromFloat(req.Price),
		TargetPrice:   decimal.NewFromFloat(req.TargetPrice),
		Currency:      req.Currency,
		CheckInterval: req.CheckInterval,
		IsActive:      true,
		Priority:      req.Priority,
		NotifyEmail:   req.NotifyEmail,
		NotifySlack:   req.NotifySlack,
		NotifyDesktop: req.NotifyDesktop,
	}
	if err := u.store.Create(ctx, p); err != nil {
		return nil, err
	}
	u.log.Info("product added",
		logger.String("product_id", p.ID),
		logger.String("title", p.Title),
		logger.String("check_interval", p.CheckInterval))

	u.scheduleInitialCheck(p.ID)
	return p, nil
}

// Get returns one product by ID.
func (u *Products) Get(ctx context.Context, id string) (*models.Product, error) {
	return u.store.GetByID(ctx, id)
}

// List pages through products and reports the matching total.
func (u *Products) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, int, error) {
	rows, err := u.store.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if activeOnly {
		total, err = u.store.CountActive(ctx)
	} else {
		total, err = u.store.Count(ctx)
	}
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update applies the request's non-nil fields to the stored product.
func (u *Products) Update(ctx context.Context, req *models.UpdateProductRequest) (*models.Product, error) {
	p, err := u.store.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.TargetPrice != nil {
		p.TargetPrice = decimal.NewFromFloat(*req.TargetPrice)
	}
	if req.CheckInterval != nil {
		p.CheckInterval = *req.CheckInterval
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.NotifyEmail != nil {
		p.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifySlack != nil {
		p.NotifySlack = *req.NotifySlack
	}
	if req.NotifyDesktop != nil {
		p.NotifyDesktop = *req.NotifyDesktop
	}

	if err := u.store.Update(ctx, p); err != nil {
		return nil, err
	}
	u.log.Info("product updated", logger.String("product_id", p.ID))
	return p, nil
}

// Deactivate soft-deletes: the product stops being monitored but its
// price history is preserved.
func (u *Products) Deactivate(ctx context.Context, id string) error {
	if err := u.store.SetActive(ctx, id, false); err != nil {
		return err
	}
	u.log.Info("product deactivated", logger.String("product_id", id))
	return nil
}

// History returns the product's observations over the last days.
func (u *Products) History(ctx context.Context, id string, days int) ([]models.PriceObservation, error) {
	if _, err := u.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	obs, err := u.history.ListObservations(ctx, id, days)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return obs, nil
}

// Alerts returns the product's most recent persisted alerts.
func (u *Products) Alerts(ctx context.Context, id string, limit int) ([]models.PriceAlert, error) {
	if _, err := u.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return u.alerts.ListRecent(ctx, id, limit)
}

// Deals lists active products whose latest observation carries a
// discount of at least minDiscount percent, best discount first.
func (u *Products) Deals(ctx context.Context, minDiscount float64, limit int) ([]models.Deal, error) {
	observations, err := u.latest.Latest(ctx, dealScanLimit)
	if err != nil {
		return nil, fmt.Errorf("latest observations: %w", err)
	}
	if len(observations) == 0 {
		return []models.Deal{}, nil
	}

	active, err := u.store.List(ctx, true, dealScanLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	byID := make(map[string]models.Product, len(active))
	for _, p := range active {
		byID[p.ID] = p
	}

	deals := make([]models.Deal, 0, limit)
	for _, obs := range observations {
		p, ok := byID[obs.ProductID]
		if !ok || obs.DiscountPct <= 0 || obs.DiscountPct < minDiscount {
			continue
		}
		deals = append(deals, models.NewDeal(p, obs))
	}
	sort.Slice(deals, func(i, j int) bool {
		if deals[i].DiscountPct != deals[j].DiscountPct {
			return deals[i].DiscountPct > deals[j].DiscountPct
		}
		return deals[i].ProductID < deals[j].ProductID
	})
	if len(deals) > limit {
		deals = deals[:limit]
	}
	return deals, nil
}

// SetSearchCache installs a cache in front of the search API. Upstream
// calls are paced to the provider's rate limit, so repeated dashboard
// queries should not each burn a request.
func (u *Products) SetSearchCache(c pkgcache.Service, ttl time.Duration) {
	u.searchCache = c
	if ttl > 0 {
		u.searchTTL = ttl
	}
}

// Search proxies a free-text query to the upstream search API, serving
// recent identical queries from cache.
func (u *Products) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	key := fmt.Sprintf("search:%s:%d", query, limit)
	if u.searchCache != nil {
		var cached []models.SearchResult
		if err := u.searchCache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := u.search.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("product search: %w", err)
	}

	if u.searchCache != nil {
		if err := u.searchCache.Set(ctx, key, results, u.searchTTL); err != nil {
			u.log.Warn("search cache set failed", logger.Error(err))
		}
	}
	return results, nil
}

// SystemCounts aggregates store counters for the stats endpoint.
type SystemCounts struct {
	Products struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Inactive int `json:"inactive"`
	} `json:"products"`
	Alerts struct {
		Total    int `json:"total"`
		Notified int `json:"notified"`
		Pending  int `json:"pending"`
	} `json:"alerts"`
	CurrentDeals int `json:"current_deals"`
}

// Stats snapshots product, alert and deal counts.
func (u *Products) Stats(ctx context.Context) (*SystemCounts, error) {
	var sc SystemCounts

	total, err := u.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	active, err := u.store.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active products: %w", err)
	}
	sc.Products.Total = total
	sc.Products.Active = active
	sc.Products.Inactive = total - active

	alertTotal, notified, err := u.alerts.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	sc.Alerts.Total = alertTotal
	sc.Alerts.Notified = notified
	sc.Alerts.Pending = alertTotal - notified

	deals, err := u.Deals(ctx, 0, 100)
	if err != nil {
		return nil, err
	}
	sc.CurrentDeals = len(deals)
	return &sc, nil
}

// scheduleInitialCheck prices a new product in the background so the
// create call returns immediately. Detached from the request context.
func (u *Products) scheduleInitialCheck(id string) {
	if u.checker == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), initialCheckTimeout)
		defer cancel()

		obs, err := u.checker.CheckByID(ctx, id)
		if err != nil {
			u.log.Warn("initial price check failed", logger.String("product_id", id), logger.Error(err))
			return
		}
		u.log.Info("initial price check completed",
			logger.String("product_id", id),
			logger.String("price", obs.Price.StringFixed(2)))
	}()
}
