package repository

import (
	"context"
	"errors"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrArtifactNotFound is returned by ArtifactStore when no blob is stored
// under the given product/kind pair.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrNotificationSuppressed is returned by Notifier when a delivery is
// skipped because the product/type pair is still in its cooldown window.
var ErrNotificationSuppressed = errors.New("notification suppressed by cooldown")

// PriceHistoryStore owns the ordered per-product observation series.
// ListObservations returns ascending ObservedAt order; lookbackDays <= 0
// means the full history.
type PriceHistoryStore interface {
	Append(ctx context.Context, obs models.PriceObservation) error
	ListObservations(ctx context.Context, productID string, lookbackDays int) ([]models.PriceObservation, error)
	Health(ctx context.Context) error
	Close() error
}

// ArtifactStore persists opaque model blobs keyed by (productID, kind).
// Load also reports when the blob was last written; Save overwrites.
type ArtifactStore interface {
	Save(ctx context.Context, productID, kind string, blob []byte) error
	Load(ctx context.Context, productID, kind string) ([]byte, time.Time, error)
	Delete(ctx context.Context, productID string) error
}

// PredictionSink records produced predictions for downstream consumers.
// The trend summary is optional context alongside the core result.
type PredictionSink interface {
	Record(ctx context.Context, p models.PredictionResult, trend *models.TrendSummary) error
}

// ProductStore is CRUD over tracked products.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	SetActive(ctx context.Context, id string, active bool) error
	TouchChecked(ctx context.Context, id string, at time.Time, price decimal.Decimal) error
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// AlertStore persists triggered alerts.
type AlertStore interface {
	Insert(ctx context.Context, a *models.PriceAlert) error
	ListRecent(ctx context.Context, productID string, limit int) ([]models.PriceAlert, error)
	MarkNotified(ctx context.Context, id int64) error
	Counts(ctx context.Context) (total, notified int, err error)
}

// LatestObservationStore supplies the newest observation per product.
// Serves the deals view without walking full histories.
type LatestObservationStore interface {
	Latest(ctx context.Context, limit int) ([]models.PriceObservation, error)
}

// EventPublisher emits alert/prediction events onto the bus.
type EventPublisher interface {
	PublishAlert(ctx context.Context, a models.PriceAlert) error
	PublishPrediction(ctx context.Context, p models.PredictionResult) error
	Close() error
}

// Notifier delivers a triggered alert through the product's enabled
// channels.
type Notifier interface {
	Notify(ctx context.Context, product models.Product, alert models.PriceAlert) error
}

// SearchClient queries the upstream shopping-search API for live listings.
// Lookup resolves a single listing by its retailer SKU; BestMatch returns the
// cheapest acceptable listing for a free-text query, or nil when nothing
// usable came back.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
	Lookup(ctx context.Context, sku string) (*models.SearchResult, error)
	BestMatch(ctx context.Context, query string, maxPrice decimal.Decimal) (*models.SearchResult, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordMessageSent(topic, productID string)
	RecordError(kind string)
	RecordLastPrice(productID string, price float64)
	RecordLatency(op string, seconds float64)
	RecordEvent(kind string)
}
