package repository

import (
	"context"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	pkgkafka "AlertRelay/pkg/kafka"
)

// KafkaEventPublisher writes delivery events keyed by signal id.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishDelivery(ctx context.Context, ev *models.DeliveryEvent) error {
	return p.producer.Publish(ctx, p.topic, pkgkafka.Message{
		Key:   []byte(ev.SignalID),
		Value: ev,
		Headers: map[string]string{
			"channel": string(ev.Channel),
			"status":  string(ev.Status),
		},
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopEventPublisher drops events when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishDelivery(context.Context, *models.DeliveryEvent) error { return nil }
func (NopEventPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
)
