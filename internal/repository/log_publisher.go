package repository

import (
	"context"

	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
)

// KafkaLogPublisher ships aggregated error logs to the logs topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

var _ applogger.Publisher = (*KafkaLogPublisher)(nil)

func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

// PublishMessage ships one flush of aggregated entries. A batch goes out as
// one message per entry so downstream consumers can filter by level.
func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	if entries, ok := payload.([]applogger.AggregatedLogEntry); ok {
		msgs := make([]pkgkafka.Message, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, pkgkafka.Message{Value: e})
		}
		return p.producer.PublishBatch(ctx, topic, msgs)
	}
	return p.producer.Publish(ctx, topic, nil, payload)
}
