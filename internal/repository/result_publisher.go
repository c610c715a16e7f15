package repository

import (
	"context"
	"fmt"

	"StockPull/internal/domain/models"
	"StockPull/internal/domain/repository"
)

// producer is the part of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaResultPublisher ships enrichment results to a Kafka topic, keyed by
// request id so results for one request stay on one partition.
type KafkaResultPublisher struct {
	producer producer
	topic    string
}

func NewKafkaResultPublisher(p producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

var _ repository.ResultPublisher = (*KafkaResultPublisher)(nil)

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.EnrichmentResult) error {
	if r == nil {
		return fmt.Errorf("nil enrichment result")
	}
	key := r.RequestID
	if key == "" {
		key = r.ID
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(key), r); err != nil {
		return fmt.Errorf("publish enrichment %s: %w", r.ID, err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
