package usecase

import (
	"context"
	"fmt"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	applogger "AlertRelay/pkg/logger"
	"AlertRelay/pkg/util"

	"github.com/google/uuid"
)

// DeliveryLedger records delivery attempts and answers daily-cap lookups.
type DeliveryLedger struct {
	store   domrepo.LedgerStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	loc     *time.Location
	timeout time.Duration
	newID   func() string
}

// NewDeliveryLedger creates a ledger. loc defines the calendar day used for caps.
func NewDeliveryLedger(store domrepo.LedgerStore, metrics domrepo.Metrics, log *applogger.Logger, loc *time.Location, timeout time.Duration) *DeliveryLedger {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DeliveryLedger{
		store:   store,
		metrics: metrics,
		log:     log,
		loc:     loc,
		timeout: timeout,
		newID:   uuid.NewString,
	}
}

// Location returns the zone that defines "today".
func (l *DeliveryLedger) Location() *time.Location { return l.loc }

// Record appends one entry per recipient. Failures are logged and returned for
// inspection but must not fail the pipeline: the alert has already gone out.
func (l *DeliveryLedger) Record(ctx context.Context, signalID string, recipients []models.Recipient, channel models.Channel, status models.DeliveryStatus, reason string, at time.Time) error {
	if len(recipients) == 0 {
		return nil
	}
	entries := make([]models.DeliveryLogEntry, 0, len(recipients))
	for _, r := range recipients {
		e := models.DeliveryLogEntry{
			ID:           l.newID(),
			SubscriberID: r.SubscriberID,
			SignalID:     signalID,
			Channel:      channel,
			Status:       status,
			Timestamp:    at.UTC(),
		}
		if status == models.DeliveryFailed {
			e.Error = reason
		}
		entries = append(entries, e)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	err := l.store.Append(ctx, entries)
	l.metrics.RecordLatency("ledger_append", time.Since(start).Seconds())
	if err != nil {
		l.metrics.RecordError("ledger_append")
		l.log.Error("ledger append failed",
			applogger.String("signal_id", signalID),
			applogger.String("channel", string(channel)),
			applogger.String("status", string(status)),
			applogger.Int("entries", len(entries)),
			applogger.Error(err),
		)
		return &DependencyError{Dependency: "ledger", Err: err}
	}
	return nil
}

// CountSentToday returns the number of sent rows for subscriberID on channel
// during the calendar day containing now.
func (l *DeliveryLedger) CountSentToday(ctx context.Context, subscriberID string, channel models.Channel, now time.Time) (int, error) {
	from, to := util.DayBounds(now, l.loc)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	n, err := l.store.CountSent(ctx, subscriberID, channel, from, to)
	if err != nil {
		return 0, &DependencyError{Dependency: "ledger", Err: fmt.Errorf("count sent: %w", err)}
	}
	return n, nil
}

// SummarizeDay groups the rows of the calendar day containing t by channel.
func (l *DeliveryLedger) SummarizeDay(ctx context.Context, t time.Time) ([]models.ChannelSummary, error) {
	from, to := util.DayBounds(t, l.loc)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	out, err := l.store.Summarize(ctx, from, to)
	if err != nil {
		return nil, &DependencyError{Dependency: "ledger", Err: fmt.Errorf("summarize: %w", err)}
	}
	return out, nil
}
