package repository

import (
	"context"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgkafka "PricePulse/pkg/kafka"
)

// KafkaEventBus implements EventPublisher on the shared Kafka producer.
// Alerts and predictions go to separate topics keyed by product so
// per-product ordering is preserved.
type KafkaEventBus struct {
	producer         *pkgkafka.Producer
	alertsTopic      string
	predictionsTopic string
}

// NewKafkaEventBus creates the Kafka-backed event publisher.
func NewKafkaEventBus(producer *pkgkafka.Producer, alertsTopic, predictionsTopic string) domrepo.EventPublisher {
	return &KafkaEventBus{
		producer:         producer,
		alertsTopic:      alertsTopic,
		predictionsTopic: predictionsTopic,
	}
}

func (b *KafkaEventBus) PublishAlert(ctx context.Context, a models.PriceAlert) error {
	return b.producer.Publish(ctx, b.alertsTopic, []byte(a.ProductID), map[string]interface{}{
		"product_id":      a.ProductID,
		"type":            string(a.Type),
		"message":         a.Message,
		"priority":        string(a.Priority),
		"triggered_price": a.TriggeredPrice.String(),
		"created_at":      a.CreatedAt.Unix(),
	})
}

func (b *KafkaEventBus) PublishPrediction(ctx context.Context, p models.PredictionResult) error {
	return b.producer.Publish(ctx, b.predictionsTopic, []byte(p.ProductID), map[string]interface{}{
		"product_id":      p.ProductID,
		"days_ahead":      p.DaysAhead,
		"predicted_price": p.PredictedPrice,
		"confidence":      p.Confidence,
		"created_at":      p.CreatedAt.Unix(),
	})
}

func (b *KafkaEventBus) Close() error {
	if b.producer != nil {
		return b.producer.Close()
	}
	return nil
}
