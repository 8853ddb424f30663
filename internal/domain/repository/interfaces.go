package repository

import (
	"context"
	"time"

	"AlertRelay/internal/domain/models"
)

// SubscriberStore reads candidate recipients joined with their channel settings.
type SubscriberStore interface {
	// FindCandidates returns subscribers matching q in store order.
	FindCandidates(ctx context.Context, q models.SubscriberQuery) ([]models.Subscriber, error)
}

// LedgerStore persists and queries delivery log rows.
type LedgerStore interface {
	Append(ctx context.Context, entries []models.DeliveryLogEntry) error
	// CountSent counts sent rows for (subscriberID, channel) with from <= ts < to.
	CountSent(ctx context.Context, subscriberID string, channel models.Channel, from, to time.Time) (int, error)
	// Summarize groups rows with from <= ts < to by channel and status.
	Summarize(ctx context.Context, from, to time.Time) ([]models.ChannelSummary, error)
	Health(ctx context.Context) error
}

// Relay sends one batched payload for fan-out by the external relay service.
type Relay interface {
	Send(ctx context.Context, payload *models.DispatchPayload) error
}

// EventPublisher emits delivery events for downstream consumers.
type EventPublisher interface {
	PublishDelivery(ctx context.Context, ev *models.DeliveryEvent) error
	Close() error
}

// DedupeStore guards against dispatching the same (signal, channel) twice.
type DedupeStore interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// MarketClock annotates alerts with the market session at a point in time.
type MarketClock interface {
	Session(t time.Time) models.MarketSession
}

// Metrics records pipeline telemetry.
type Metrics interface {
	RecordOutcome(outcome string)
	RecordDispatch(channel models.Channel, ok bool, recipients int)
	RecordExclusion(channel models.Channel, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDigest(summary models.ChannelSummary)
}
