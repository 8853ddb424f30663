package usecase

import (
	"context"
	"sync"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	applogger "AlertRelay/pkg/logger"
)

// Exclusion reasons.
const (
	ExcludedDailyCap     = "daily_cap"
	ExcludedLookupFailed = "lookup_failed"
	ExcludedIneligible   = "ineligible"
	ExcludedDuplicateRow = "duplicate_row"
)

// Exclusion is a candidate dropped after the store query.
type Exclusion struct {
	SubscriberID string
	Reason       string
	Count        int
	Err          error
}

// EligibilityBatch is the result of one eligibility pass for one channel.
type EligibilityBatch struct {
	Channel  models.Channel
	Eligible []models.Recipient
	Excluded []Exclusion
}

// EligibilityFilter selects the subscribers allowed to receive an alert now.
type EligibilityFilter struct {
	store        domrepo.SubscriberStore
	ledger       *DeliveryLedger
	metrics      domrepo.Metrics
	log          *applogger.Logger
	statuses     []string
	defaultCap   int
	concurrency  int
	storeTimeout time.Duration
}

// FilterOption configures EligibilityFilter.
type FilterOption func(*EligibilityFilter)

// WithActiveStatuses sets the subscription statuses treated as active.
func WithActiveStatuses(statuses ...string) FilterOption {
	return func(f *EligibilityFilter) {
		if len(statuses) > 0 {
			f.statuses = statuses
		}
	}
}

// WithDefaultDailyCap sets the cap used when a subscriber has none.
func WithDefaultDailyCap(n int) FilterOption {
	return func(f *EligibilityFilter) {
		if n > 0 {
			f.defaultCap = n
		}
	}
}

// WithLookupConcurrency bounds concurrent ledger count lookups.
func WithLookupConcurrency(n int) FilterOption {
	return func(f *EligibilityFilter) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithStoreTimeout bounds the subscriber store query.
func WithStoreTimeout(d time.Duration) FilterOption {
	return func(f *EligibilityFilter) {
		if d > 0 {
			f.storeTimeout = d
		}
	}
}

// NewEligibilityFilter creates a filter over store, counting sends via ledger.
func NewEligibilityFilter(store domrepo.SubscriberStore, ledger *DeliveryLedger, metrics domrepo.Metrics, log *applogger.Logger, opts ...FilterOption) *EligibilityFilter {
	f := &EligibilityFilter{
		store:        store,
		ledger:       ledger,
		metrics:      metrics,
		log:          log,
		statuses:     []string{"active", "trial"},
		defaultCap:   10,
		concurrency:  8,
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type capCheck struct {
	count int
	err   error
}

// SelectEligible returns the recipients for channel at finalScore, in store
// order. now fixes the "today" window for every lookup in the batch. A lookup
// failure excludes only that candidate; a store query failure fails the batch.
func (f *EligibilityFilter) SelectEligible(ctx context.Context, finalScore int, channel models.Channel, now time.Time) (*EligibilityBatch, error) {
	qctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := f.store.FindCandidates(qctx, models.SubscriberQuery{
		Channel:    channel,
		Statuses:   f.statuses,
		FinalScore: finalScore,
	})
	f.metrics.RecordLatency("subscriber_query", time.Since(start).Seconds())
	if err != nil {
		f.metrics.RecordError("subscriber_query")
		return nil, &DependencyError{Dependency: "subscriber store", Err: err}
	}

	batch := &EligibilityBatch{Channel: channel}
	candidates, dups := uniqueByID(candidates)
	for _, id := range dups {
		f.metrics.RecordExclusion(channel, ExcludedDuplicateRow)
		batch.Excluded = append(batch.Excluded, Exclusion{SubscriberID: id, Reason: ExcludedDuplicateRow})
	}
	checks := f.countAll(ctx, candidates, channel, now)

	for i, s := range candidates {
		if !f.matches(s, channel, finalScore) {
			batch.Excluded = append(batch.Excluded, Exclusion{SubscriberID: s.ID, Reason: ExcludedIneligible})
			continue
		}
		c := checks[i]
		if c.err != nil {
			f.log.Warn("daily count lookup failed, excluding subscriber",
				applogger.String("subscriber_id", s.ID),
				applogger.String("channel", string(channel)),
				applogger.Error(c.err),
			)
			f.metrics.RecordExclusion(channel, ExcludedLookupFailed)
			batch.Excluded = append(batch.Excluded, Exclusion{SubscriberID: s.ID, Reason: ExcludedLookupFailed, Err: c.err})
			continue
		}
		if c.count >= f.capFor(s) {
			f.metrics.RecordExclusion(channel, ExcludedDailyCap)
			batch.Excluded = append(batch.Excluded, Exclusion{SubscriberID: s.ID, Reason: ExcludedDailyCap, Count: c.count})
			continue
		}
		batch.Eligible = append(batch.Eligible, models.Recipient{
			SubscriberID: s.ID,
			Destination:  s.Destination(channel),
			Tier:         s.SubscriptionTier,
		})
	}
	return batch, nil
}

// uniqueByID keeps the first row for each subscriber ID and returns the IDs of
// the rows it dropped. Unmerged upserts can return a subscriber more than once.
func uniqueByID(candidates []models.Subscriber) ([]models.Subscriber, []string) {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]models.Subscriber, 0, len(candidates))
	var dups []string
	for _, s := range candidates {
		if _, ok := seen[s.ID]; ok {
			dups = append(dups, s.ID)
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out, dups
}

// countAll looks up today's sent counts with bounded concurrency. Results are
// indexed like candidates.
func (f *EligibilityFilter) countAll(ctx context.Context, candidates []models.Subscriber, channel models.Channel, now time.Time) []capCheck {
	out := make([]capCheck, len(candidates))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			n, err := f.ledger.CountSentToday(ctx, candidates[i].ID, channel, now)
			out[i] = capCheck{count: n, err: err}
		}(i)
	}
	wg.Wait()
	return out
}

// matches re-checks the store filter so a loose store cannot leak a recipient.
func (f *EligibilityFilter) matches(s models.Subscriber, channel models.Channel, finalScore int) bool {
	if s.Destination(channel) == "" || !s.Settings.Enabled || s.Settings.MinSignalScore > finalScore {
		return false
	}
	for _, st := range f.statuses {
		if s.SubscriptionStatus == st {
			return true
		}
	}
	return false
}

func (f *EligibilityFilter) capFor(s models.Subscriber) int {
	if s.Settings.MaxAlertsPerDay == nil {
		return f.defaultCap
	}
	return *s.Settings.MaxAlertsPerDay
}
