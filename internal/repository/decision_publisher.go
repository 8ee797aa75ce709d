package repository

import (
	"context"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgkafka "TradePulse/pkg/kafka"
)

// KafkaDecisionPublisher emits completed decisions to the decisions topic,
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, d *models.Decision) error {
	return p.producer.Publish(ctx, p.topic, []byte(d.Symbol), d)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
