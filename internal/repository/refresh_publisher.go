package repository

import (
	"context"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	pkgkafka "MarketLens/pkg/kafka"
)

// KafkaPublisher announces refreshed series on a Kafka topic, keyed by
// symbol so one symbol's events stay ordered.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	origin   string
}

// NewKafkaPublisher creates a publisher. origin identifies this instance so
// its own consumer can skip the echo.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, origin string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, origin: origin}
}

func (p *KafkaPublisher) PublishRefresh(ctx context.Context, ev models.RefreshEvent) error {
	ctx = pkgkafka.WithTraceID(ctx, ev.RunID)
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), models.RefreshMessage{
		Type:   models.EventSeriesRefreshed,
		Origin: p.origin,
		Event:  ev,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ repository.EventPublisher = (*KafkaPublisher)(nil)
