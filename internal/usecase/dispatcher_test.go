package usecase

import (
	"context"
	"testing"
	"time"

	"AlertRelay/internal/domain/models"
	applogger "AlertRelay/pkg/logger"
)

type fixedClock models.MarketSession

func (c fixedClock) Session(time.Time) models.MarketSession { return models.MarketSession(c) }

func TestBuildPayload(t *testing.T) {
	d := NewDeliveryDispatcher(&fakeRelay{}, fixedClock(models.SessionLive), newFakeMetrics(), applogger.NewNop(), "")
	sig := signalEvent(strongScores()).Record
	recipients := []models.Recipient{{SubscriberID: "a", Destination: "a@example.com", Tier: "pro"}}

	p := d.BuildPayload(sig, 95, models.ChannelEmail, recipients, testNow)
	if p.AlertType != "trading_signal" || p.Channel != models.ChannelEmail {
		t.Fatalf("payload header = %+v", p)
	}
	if p.SignalID != "sig-1" || p.Symbol != "AAPL" || p.FinalScore != 95 || p.Strength != models.StrengthVeryStrong {
		t.Fatalf("payload signal fields = %+v", p)
	}
	if p.EntryPrice != 180.5 || p.StopLoss != 175 || p.TakeProfit != 195 || p.SignalType != "long" {
		t.Fatalf("payload prices = %+v", p)
	}
	if p.MarketSession != string(models.SessionLive) {
		t.Fatalf("market session = %q", p.MarketSession)
	}
	if p.Timestamp != "2024-03-14T15:30:00Z" {
		t.Fatalf("timestamp = %q", p.Timestamp)
	}
	if len(p.Recipients) != 1 || p.Recipients[0].Destination != "a@example.com" {
		t.Fatalf("recipients = %+v", p.Recipients)
	}
}

func TestDispatchSendsOneRequest(t *testing.T) {
	relay := &fakeRelay{}
	d := NewDeliveryDispatcher(relay, nil, newFakeMetrics(), applogger.NewNop(), "custom")
	recipients := []models.Recipient{{SubscriberID: "a"}, {SubscriberID: "b"}, {SubscriberID: "c"}}

	res := d.Dispatch(context.Background(), signalEvent(strongScores()).Record, 95, models.ChannelChat, recipients, testNow)
	if !res.Success || res.DeliveredCount != 3 || res.Error != "" {
		t.Fatalf("result = %+v", res)
	}
	if relay.calls(models.ChannelChat) != 1 {
		t.Fatalf("relay calls = %d, want 1", relay.calls(models.ChannelChat))
	}
	if relay.payloads[0].AlertType != "custom" || relay.payloads[0].MarketSession != "" {
		t.Fatalf("payload = %+v", relay.payloads[0])
	}
}

func TestDispatchFailureIsReported(t *testing.T) {
	relay := &fakeRelay{fail: map[models.Channel]error{models.ChannelEmail: errBoom}}
	d := NewDeliveryDispatcher(relay, nil, newFakeMetrics(), applogger.NewNop(), "")

	res := d.Dispatch(context.Background(), signalEvent(strongScores()).Record, 95, models.ChannelEmail,
		[]models.Recipient{{SubscriberID: "a"}}, testNow)
	if res.Success || res.DeliveredCount != 0 || res.Error != "boom" {
		t.Fatalf("result = %+v", res)
	}
	if relay.calls(models.ChannelEmail) != 1 {
		t.Fatalf("relay calls = %d, want exactly 1 (no retry)", relay.calls(models.ChannelEmail))
	}
}

func TestDispatchNoRecipients(t *testing.T) {
	relay := &fakeRelay{}
	d := NewDeliveryDispatcher(relay, nil, newFakeMetrics(), applogger.NewNop(), "")
	res := d.Dispatch(context.Background(), signalEvent(strongScores()).Record, 95, models.ChannelEmail, nil, testNow)
	if !res.Success || len(relay.payloads) != 0 {
		t.Fatalf("result = %+v, payloads = %d", res, len(relay.payloads))
	}
}
