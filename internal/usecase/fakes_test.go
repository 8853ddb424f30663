package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"AlertRelay/internal/domain/models"
	applogger "AlertRelay/pkg/logger"
)

var errBoom = errors.New("boom")

type fakeSubscribers struct {
	subs []models.Subscriber
	err  error
}

func (f *fakeSubscribers) FindCandidates(_ context.Context, q models.SubscriberQuery) ([]models.Subscriber, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Subscriber
	for _, s := range f.subs {
		if s.Settings.Channel == q.Channel {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeLedgerStore struct {
	mu         sync.Mutex
	entries    []models.DeliveryLogEntry
	appendErr  error
	countErr   map[string]error
	summary    []models.ChannelSummary
	summaryErr error
	summarized [][2]time.Time
}

func (f *fakeLedgerStore) Append(_ context.Context, entries []models.DeliveryLogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeLedgerStore) CountSent(_ context.Context, subscriberID string, channel models.Channel, from, to time.Time) (int, error) {
	if err := f.countErr[subscriberID]; err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.SubscriberID == subscriberID && e.Channel == channel && e.Status == models.DeliverySent &&
			!e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLedgerStore) Summarize(_ context.Context, from, to time.Time) ([]models.ChannelSummary, error) {
	f.mu.Lock()
	f.summarized = append(f.summarized, [2]time.Time{from, to})
	f.mu.Unlock()
	return f.summary, f.summaryErr
}

func (f *fakeLedgerStore) Health(context.Context) error { return nil }

func (f *fakeLedgerStore) rows(ch models.Channel) []models.DeliveryLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DeliveryLogEntry
	for _, e := range f.entries {
		if e.Channel == ch {
			out = append(out, e)
		}
	}
	return out
}

// seedSent adds n sent rows for subscriberID at ts.
func (f *fakeLedgerStore) seedSent(subscriberID string, ch models.Channel, ts time.Time, n int) {
	for i := 0; i < n; i++ {
		f.entries = append(f.entries, models.DeliveryLogEntry{
			SubscriberID: subscriberID, Channel: ch, Status: models.DeliverySent, Timestamp: ts,
		})
	}
}

type fakeRelay struct {
	mu       sync.Mutex
	payloads []*models.DispatchPayload
	fail     map[models.Channel]error
	panicMsg string
}

func (f *fakeRelay) Send(_ context.Context, p *models.DispatchPayload) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	return f.fail[p.Channel]
}

func (f *fakeRelay) calls(ch models.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.payloads {
		if p.Channel == ch {
			n++
		}
	}
	return n
}

type fakeDedupe struct {
	mu       sync.Mutex
	held     map[string]bool
	lockErr  error
	unlocked []string
}

func (f *fakeDedupe) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.lockErr != nil {
		return false, f.lockErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeDedupe) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.unlocked = append(f.unlocked, key)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.DeliveryEvent
}

func (f *fakeEvents) PublishDelivery(_ context.Context, ev *models.DeliveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type fakeMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	exclusions map[string]int
	errs       map[string]int
	digests    []models.ChannelSummary
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{exclusions: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
}

func (m *fakeMetrics) RecordDispatch(models.Channel, bool, int) {}

func (m *fakeMetrics) RecordExclusion(_ models.Channel, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exclusions[reason]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordDigest(s models.ChannelSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests = append(m.digests, s)
}

func (m *fakeMetrics) lastOutcome() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outcomes) == 0 {
		return ""
	}
	return m.outcomes[len(m.outcomes)-1]
}

func subscriber(id string, ch models.Channel, minScore int, maxPerDay *int) models.Subscriber {
	s := models.Subscriber{
		ID:                 id,
		SubscriptionTier:   "pro",
		SubscriptionStatus: "active",
		Settings: models.AlertSettings{
			Channel:         ch,
			Enabled:         true,
			MinSignalScore:  minScore,
			MaxAlertsPerDay: maxPerDay,
		},
	}
	switch ch {
	case models.ChannelEmail:
		s.EmailAddress = id + "@example.com"
	case models.ChannelChat:
		s.ChatHandle = "@" + id
	}
	return s
}

func intPtr(n int) *int { return &n }

var testNow = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type harness struct {
	subs     *fakeSubscribers
	store    *fakeLedgerStore
	relay    *fakeRelay
	dedupe   *fakeDedupe
	events   *fakeEvents
	metrics  *fakeMetrics
	ledger   *DeliveryLedger
	pipeline *AlertPipeline
}

func newHarness(subs ...models.Subscriber) *harness {
	h := &harness{
		subs:    &fakeSubscribers{subs: subs},
		store:   &fakeLedgerStore{},
		relay:   &fakeRelay{fail: map[models.Channel]error{}},
		dedupe:  &fakeDedupe{},
		events:  &fakeEvents{},
		metrics: newFakeMetrics(),
	}
	log := applogger.NewNop()
	h.ledger = NewDeliveryLedger(h.store, h.metrics, log, time.UTC, time.Second)
	filter := NewEligibilityFilter(h.subs, h.ledger, h.metrics, log)
	dispatcher := NewDeliveryDispatcher(h.relay, nil, h.metrics, log, "")
	h.pipeline = NewAlertPipeline(
		PipelineConfig{DedupeTTL: time.Hour},
		filter, dispatcher, h.ledger, h.metrics, log,
		WithDedupe(h.dedupe),
		WithEventPublisher(h.events),
		WithClock(func() time.Time { return testNow }),
	)
	return h
}

func signalEvent(scores models.TimeframeScores) *models.TriggerEvent {
	return &models.TriggerEvent{
		Type:  "INSERT",
		Table: "trading_signals",
		Record: &models.SignalRecord{
			ID:         "sig-1",
			Symbol:     "AAPL",
			EntryPrice: 180.5,
			StopLoss:   175,
			TakeProfit: 195,
			SignalType: "long",
			Scores:     scores,
		},
	}
}

func strongScores() models.TimeframeScores {
	return models.TimeframeScores{
		models.TF1H: models.Score(90),
		models.TF4H: models.Score(95),
		models.TF1D: models.Score(100),
		models.TF1W: models.Score(92),
	}
}
