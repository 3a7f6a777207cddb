package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
)

type countingAppender struct {
	mu    sync.Mutex
	count int
}

func (a *countingAppender) Append(_ context.Context, _ models.PriceObservation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return nil
}

func (a *countingAppender) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(topic, productID string)       {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(productID string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordEvent(kind string)                         {}

func obsAt(productID string, at time.Time) *models.PriceObservation {
	return &models.PriceObservation{
		ProductID:  productID,
		Price:      decimal.NewFromFloat(19.99),
		ObservedAt: at,
	}
}

func TestPipelineRejectsInvalidObservations(t *testing.T) {
	store := &countingAppender{}
	p := NewObservationPipeline(store, nopMetrics{})
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))
	assert.Error(t, p.Process(ctx, obsAt("", time.Now())))
	assert.Error(t, p.Process(ctx, obsAt("B0TEST", time.Time{})))

	neg := obsAt("B0TEST", time.Now())
	neg.Price = decimal.NewFromInt(-1)
	assert.Error(t, p.Process(ctx, neg))

	assert.Equal(t, 0, store.Count())
}

func TestPipelineThrottlesPerProductBursts(t *testing.T) {
	store := &countingAppender{}
	p := NewObservationPipeline(store, nopMetrics{}, WithMinGap(50*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, obsAt("B0TEST", time.Now())))
	// inside the gap: dropped silently, not an error
	require.NoError(t, p.Process(ctx, obsAt("B0TEST", time.Now())))
	assert.Equal(t, 1, store.Count())

	// another product is not affected by the first one's window
	require.NoError(t, p.Process(ctx, obsAt("B0OTHER", time.Now())))
	assert.Equal(t, 2, store.Count())

	// past the gap the product is accepted again
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, p.Process(ctx, obsAt("B0TEST", time.Now())))
	assert.Equal(t, 3, store.Count())
}

// The ingest consumer runs a worker pool, so Process must be safe from
// concurrent goroutines touching the throttle state.
func TestPipelineConcurrentProcess(t *testing.T) {
	store := &countingAppender{}
	p := NewObservationPipeline(store, nopMetrics{}, WithMinGap(time.Minute))
	ctx := context.Background()

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				obs := obsAt(fmt.Sprintf("B0W%dN%d", w, i), time.Now())
				assert.NoError(t, p.Process(ctx, obs))
			}
		}(w)
	}
	wg.Wait()

	// distinct product IDs, so nothing is throttled
	assert.Equal(t, workers*perWorker, store.Count())
}
