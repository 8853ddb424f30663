package usecase

import (
	"context"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	applogger "AlertRelay/pkg/logger"
)

// DeliveryDispatcher sends one batched request per (signal, channel) to the relay.
type DeliveryDispatcher struct {
	relay     domrepo.Relay
	clock     domrepo.MarketClock
	metrics   domrepo.Metrics
	log       *applogger.Logger
	alertType string
}

// NewDeliveryDispatcher creates a dispatcher. clock may be nil, in which case
// payloads carry no market session.
func NewDeliveryDispatcher(relay domrepo.Relay, clock domrepo.MarketClock, metrics domrepo.Metrics, log *applogger.Logger, alertType string) *DeliveryDispatcher {
	if alertType == "" {
		alertType = "trading_signal"
	}
	return &DeliveryDispatcher{relay: relay, clock: clock, metrics: metrics, log: log, alertType: alertType}
}

// BuildPayload assembles the relay request for one channel.
func (d *DeliveryDispatcher) BuildPayload(signal *models.SignalRecord, finalScore int, channel models.Channel, recipients []models.Recipient, now time.Time) *models.DispatchPayload {
	p := &models.DispatchPayload{
		AlertType:  d.alertType,
		Channel:    channel,
		SignalID:   signal.ID,
		Symbol:     signal.Symbol,
		FinalScore: finalScore,
		Strength:   StrengthFor(finalScore),
		EntryPrice: signal.EntryPrice,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		SignalType: signal.SignalType,
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
		Recipients: recipients,
	}
	if d.clock != nil {
		p.MarketSession = string(d.clock.Session(now))
	}
	return p
}

// Dispatch performs exactly one relay call. Relay failures are reported in the
// result, never returned as errors, and are not retried.
func (d *DeliveryDispatcher) Dispatch(ctx context.Context, signal *models.SignalRecord, finalScore int, channel models.Channel, recipients []models.Recipient, now time.Time) models.DispatchResult {
	if len(recipients) == 0 {
		return models.DispatchResult{Success: true}
	}
	payload := d.BuildPayload(signal, finalScore, channel, recipients, now)

	start := time.Now()
	err := d.relay.Send(ctx, payload)
	d.metrics.RecordLatency("relay_send", time.Since(start).Seconds())
	d.metrics.RecordDispatch(channel, err == nil, len(recipients))

	if err != nil {
		d.log.Warn("relay dispatch failed",
			applogger.String("signal_id", signal.ID),
			applogger.String("channel", string(channel)),
			applogger.Int("recipients", len(recipients)),
			applogger.Error(err),
		)
		return models.DispatchResult{Success: false, Error: err.Error()}
	}
	d.log.Info("alert dispatched",
		applogger.String("signal_id", signal.ID),
		applogger.String("symbol", signal.Symbol),
		applogger.String("channel", string(channel)),
		applogger.Int("recipients", len(recipients)),
	)
	return models.DispatchResult{Success: true, DeliveredCount: len(recipients)}
}
