package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

// Appender is the minimal downstream interface the pipeline needs.
type Appender interface {
	Append(ctx context.Context, obs models.PriceObservation) error
}

// ObservationPipeline sits between the ingest sources (Kafka consumer,
// price monitor) and the history store. It validates observations,
// throttles per-product bursts and buffers when the store is unavailable.
type ObservationPipeline struct {
	store    Appender
	metrics  domrepo.Metrics
	minGap   time.Duration
	bufSize  int
	bufCh    chan *models.PriceObservation
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex           // guards started and lastSeen
	lastSeen map[string]time.Time // per-product last accepted time
}

type PipelineOption func(*ObservationPipeline)

// WithMinGap sets the minimum spacing between accepted observations of
// the same product. Anything inside the gap is dropped as a duplicate
// burst, not an error.
func WithMinGap(d time.Duration) PipelineOption {
	return func(p *ObservationPipeline) {
		if d > 0 {
			p.minGap = d
		}
	}
}

// WithBufferSize sets the temporary buffer size used when the store is
// unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewObservationPipeline creates a new pipeline in front of store.
func NewObservationPipeline(store Appender, metrics domrepo.Metrics, opts ...PipelineOption) *ObservationPipeline {
	p := &ObservationPipeline{
		store:    store,
		metrics:  metrics,
		minGap:   time.Second, // price checks are minutes apart; sub-second repeats are bounce
		bufSize:  1000,
		bufCh:    make(chan *models.PriceObservation, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.PriceObservation, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered observations.
func (p *ObservationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case obs := <-p.bufCh:
				if obs == nil {
					continue
				}
				if err := p.store.Append(ctx, *obs); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- obs:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ObservationPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and throttles one observation, then appends it to
// the store, buffering on append errors.
func (p *ObservationPipeline) Process(ctx context.Context, obs *models.PriceObservation) error {
	start := time.Now()
	if err := validateObservation(obs); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(obs.ProductID, start) {
		// duplicate burst; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.store.Append(ctx, *obs); err != nil {
		p.metrics.RecordError("pipeline_append")
		// buffer non-blocking
		select {
		case p.bufCh <- obs:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLastPrice(obs.ProductID, obs.PriceFloat())
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateObservation(obs *models.PriceObservation) error {
	if obs == nil {
		return fmt.Errorf("observation nil")
	}
	if obs.ProductID == "" {
		return fmt.Errorf("product id empty")
	}
	if obs.ObservedAt.IsZero() {
		return fmt.Errorf("observed_at missing")
	}
	if obs.Price.IsNegative() {
		return fmt.Errorf("negative price")
	}
	return nil
}

func (p *ObservationPipeline) allow(productID string, now time.Time) bool {
	if p.minGap <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[productID]
	if !last.IsZero() && now.Sub(last) < p.minGap {
		return false
	}
	p.lastSeen[productID] = now
	return true
}
