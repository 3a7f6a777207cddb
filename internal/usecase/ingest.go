package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	mid "PricePulse/internal/middleware"
	pkgkafka "PricePulse/pkg/kafka"
)

// ObservationsHandler consumes externally sourced price observations
// from Kafka (scrapers, browser extensions) and feeds them through the
// ingest pipeline into the history store.
type ObservationsHandler struct {
	topic   string
	pipe    *mid.ObservationPipeline
	metrics domrepo.Metrics
}

func NewObservationsHandler(topic string, pipe *mid.ObservationPipeline, metrics domrepo.Metrics) *ObservationsHandler {
	return &ObservationsHandler{topic: topic, pipe: pipe, metrics: metrics}
}

func (h *ObservationsHandler) Topic() string { return h.topic }

// Handle decodes one observation message. The model's JSON tags double
// as the wire schema; observed_at defaults to receive time when absent.
func (h *ObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var obs models.PriceObservation
	if err := json.Unmarshal(b, &obs); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now()
	} else {
		// E2E latency from event time to now (approx)
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(obs.ObservedAt).Seconds())
	}

	start := time.Now()
	err := h.pipe.Process(ctx, &obs)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", obs.ProductID)
	return nil
}

var _ pkgkafka.MessageHandler = (*ObservationsHandler)(nil)
