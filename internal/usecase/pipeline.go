package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	applogger "AlertRelay/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// State is a step of one pipeline run.
type State string

const (
	StateReceived       State = "received"
	StateValidated      State = "validated"
	StateScored         State = "scored"
	StateBelowThreshold State = "below_threshold"
	StateEligible       State = "eligible"
	StateDispatched     State = "dispatched"
	StateLogged         State = "logged"
	StateCompleted      State = "completed"
	StateErrored        State = "errored"
)

// Skip reasons reported per channel.
const (
	SkipNoEligible = "no_eligible"
	SkipDuplicate  = "duplicate"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Response models.AlertResponse
	State    State
	// Path lists the states visited, in order.
	Path []State
}

func (r *Result) advance(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}

// PipelineConfig holds the pipeline's static settings.
type PipelineConfig struct {
	SignalsTable string
	Channels     []models.Channel
	// DedupeTTL is how long a (signal, channel) dispatch lock is held. Zero disables dedupe.
	DedupeTTL time.Duration
}

// AlertPipeline turns one trigger event into zero or more channel dispatches.
type AlertPipeline struct {
	cfg        PipelineConfig
	filter     *EligibilityFilter
	dispatcher *DeliveryDispatcher
	ledger     *DeliveryLedger
	dedupe     domrepo.DedupeStore
	events     domrepo.EventPublisher
	metrics    domrepo.Metrics
	log        *applogger.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// PipelineOption configures AlertPipeline.
type PipelineOption func(*AlertPipeline)

// WithDedupe guards each (signal, channel) dispatch with store.
func WithDedupe(store domrepo.DedupeStore) PipelineOption {
	return func(p *AlertPipeline) { p.dedupe = store }
}

// WithEventPublisher publishes one event per dispatched channel.
func WithEventPublisher(pub domrepo.EventPublisher) PipelineOption {
	return func(p *AlertPipeline) { p.events = pub }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *AlertPipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewAlertPipeline wires the pipeline stages together.
func NewAlertPipeline(cfg PipelineConfig, filter *EligibilityFilter, dispatcher *DeliveryDispatcher, ledger *DeliveryLedger, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *AlertPipeline {
	if cfg.SignalsTable == "" {
		cfg.SignalsTable = "trading_signals"
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []models.Channel{models.ChannelEmail, models.ChannelChat}
	}
	cfg.Channels = uniqueChannels(cfg.Channels)
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	p := &AlertPipeline{
		cfg:        cfg,
		filter:     filter,
		dispatcher: dispatcher,
		ledger:     ledger,
		metrics:    metrics,
		log:        log,
		validate:   v,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one trigger through the pipeline. The returned error is nil for
// every well-formed outcome, including below-threshold, no recipients and
// failed dispatches. It is a *ClientInputError, *DataShapeError or
// *InternalFault otherwise; the Result is always populated.
func (p *AlertPipeline) Process(ctx context.Context, ev *models.TriggerEvent) (res *Result, err error) {
	res = &Result{}
	res.advance(StateReceived)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			fault := &InternalFault{Err: fmt.Errorf("panic: %v", r)}
			p.log.Error("alert pipeline panicked", applogger.Error(fault))
			p.metrics.RecordOutcome("internal_fault")
			res.advance(StateErrored)
			res.Response = models.AlertResponse{Success: false, Error: "internal server error"}
			err = fault
		}
		p.metrics.RecordLatency("pipeline", time.Since(start).Seconds())
	}()

	if err := p.validateTrigger(ev); err != nil {
		p.metrics.RecordOutcome("client_error")
		res.advance(StateErrored)
		res.Response = models.AlertResponse{Success: false, Error: err.Error()}
		return res, err
	}
	res.advance(StateValidated)

	signal := ev.Record
	if err := p.validateRecord(ctx, signal); err != nil {
		p.metrics.RecordOutcome("data_shape")
		p.log.Warn("signal record rejected",
			applogger.String("signal_id", signal.ID),
			applogger.Error(err),
		)
		res.advance(StateErrored)
		res.Response = models.AlertResponse{Success: false, Processed: false, Error: err.Error()}
		return res, err
	}

	score := Aggregate(signal.Scores)
	strength := StrengthFor(score)
	res.advance(StateScored)
	res.Response = models.AlertResponse{Success: true, Score: score, Strength: strength}

	if score < AlertThreshold {
		p.metrics.RecordOutcome("below_threshold")
		res.advance(StateBelowThreshold)
		res.Response.Message = fmt.Sprintf("Score %d below threshold %d", score, AlertThreshold)
		return res, nil
	}

	now := p.now()
	runs := p.runChannels(context.WithoutCancel(ctx), signal, score, now)
	p.summarize(res, runs)
	res.advance(StateCompleted)

	p.log.Info("alert pipeline completed",
		applogger.String("signal_id", signal.ID),
		applogger.String("symbol", signal.Symbol),
		applogger.Int("score", score),
		applogger.Bool("processed", res.Response.Processed),
		applogger.Int("user_count", res.Response.UserCount),
	)
	return res, nil
}

func (p *AlertPipeline) validateTrigger(ev *models.TriggerEvent) error {
	if ev == nil {
		return &ClientInputError{Reason: "empty body"}
	}
	switch op := ev.Operation(); op {
	case models.OperationInsert, models.OperationUpdate:
	case "":
		return &ClientInputError{Field: "operationType", Reason: "is required"}
	default:
		return &ClientInputError{Field: "operationType", Reason: fmt.Sprintf("%q is not supported", op)}
	}
	if ev.Entity() != p.cfg.SignalsTable {
		return &ClientInputError{Field: "entityType", Reason: fmt.Sprintf("must be %q", p.cfg.SignalsTable)}
	}
	if ev.Record == nil {
		return &ClientInputError{Field: "record", Reason: "is required"}
	}
	return nil
}

func (p *AlertPipeline) validateRecord(ctx context.Context, r *models.SignalRecord) error {
	var fields []string
	if err := p.validate.StructCtx(ctx, r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &DataShapeError{Fields: []string{err.Error()}}
		}
		for _, fe := range verrs {
			fields = append(fields, fieldMessage(fe))
		}
	}
	if len(r.Scores) > 0 && !hasScore(r.Scores) {
		fields = append(fields, "signals has no scores")
	}
	if len(fields) > 0 {
		return &DataShapeError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " cannot be empty"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func hasScore(scores models.TimeframeScores) bool {
	for tf, v := range scores {
		if _, ok := timeframeWeights[tf]; ok && v != nil {
			return true
		}
	}
	return false
}

// channelRun is the internal outcome of one channel.
type channelRun struct {
	outcome    models.ChannelOutcome
	dispatched bool
	logged     bool
	depErr     bool
}

func (p *AlertPipeline) runChannels(ctx context.Context, signal *models.SignalRecord, score int, now time.Time) []channelRun {
	runs := make([]channelRun, len(p.cfg.Channels))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicked interface{}
	)
	for i, ch := range p.cfg.Channels {
		wg.Add(1)
		go func(i int, ch models.Channel) {
			defer wg.Done()
			// surface channel panics on the caller's goroutine so Process can recover them
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panicked = r
					mu.Unlock()
				}
			}()
			runs[i] = p.runChannel(ctx, signal, score, ch, now)
		}(i, ch)
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return runs
}

func (p *AlertPipeline) runChannel(ctx context.Context, signal *models.SignalRecord, score int, ch models.Channel, now time.Time) channelRun {
	run := channelRun{outcome: models.ChannelOutcome{Channel: ch}}

	batch, err := p.filter.SelectEligible(ctx, score, ch, now)
	if err != nil {
		p.log.Error("eligibility query failed",
			applogger.String("signal_id", signal.ID),
			applogger.String("channel", string(ch)),
			applogger.Error(err),
		)
		run.depErr = true
		run.outcome.Error = err.Error()
		return run
	}
	run.outcome.Eligible = len(batch.Eligible)
	run.outcome.Excluded = len(batch.Excluded)
	if len(batch.Eligible) == 0 {
		run.outcome.Skipped = SkipNoEligible
		return run
	}

	key := DedupeKey(signal.ID, ch)
	locked := false
	if p.dedupe != nil && p.cfg.DedupeTTL > 0 {
		ok, err := p.dedupe.TryLock(ctx, key, p.cfg.DedupeTTL)
		switch {
		case err != nil:
			p.metrics.RecordError("dedupe_lock")
			p.log.Warn("dedupe lock unavailable, dispatching anyway",
				applogger.String("key", key),
				applogger.Error(err),
			)
		case !ok:
			run.outcome.Skipped = SkipDuplicate
			p.log.Info("duplicate dispatch skipped", applogger.String("key", key))
			return run
		default:
			locked = true
		}
	}

	result := p.dispatcher.Dispatch(ctx, signal, score, ch, batch.Eligible, now)
	run.dispatched = true
	run.outcome.Sent = result.Success
	run.outcome.Delivered = result.DeliveredCount
	run.outcome.Error = result.Error

	status := models.DeliverySent
	if !result.Success {
		status = models.DeliveryFailed
		if locked {
			if err := p.dedupe.Unlock(ctx, key); err != nil {
				p.log.Warn("dedupe unlock failed", applogger.String("key", key), applogger.Error(err))
			}
		}
	}

	run.logged = p.ledger.Record(ctx, signal.ID, batch.Eligible, ch, status, result.Error, now) == nil
	p.publish(ctx, signal, score, ch, status, len(batch.Eligible), result.Error, now)
	return run
}

func (p *AlertPipeline) publish(ctx context.Context, signal *models.SignalRecord, score int, ch models.Channel, status models.DeliveryStatus, recipients int, reason string, now time.Time) {
	if p.events == nil {
		return
	}
	err := p.events.PublishDelivery(ctx, &models.DeliveryEvent{
		SignalID:   signal.ID,
		Symbol:     signal.Symbol,
		Channel:    ch,
		FinalScore: score,
		Status:     status,
		Recipients: recipients,
		Error:      reason,
		Timestamp:  now.UTC(),
	})
	if err != nil {
		p.metrics.RecordError("event_publish")
		p.log.Warn("delivery event publish failed",
			applogger.String("signal_id", signal.ID),
			applogger.String("channel", string(ch)),
			applogger.Error(err),
		)
	}
}

func (p *AlertPipeline) summarize(res *Result, runs []channelRun) {
	r := &res.Response
	var eligible, dispatched, sent, duplicates, logged int
	var errs []string
	for _, run := range runs {
		o := run.outcome
		r.Channels = append(r.Channels, o)
		eligible += o.Eligible
		if o.Skipped == SkipDuplicate {
			duplicates++
		}
		if o.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", o.Channel, o.Error))
		}
		if !run.dispatched {
			continue
		}
		dispatched++
		r.UserCount += o.Eligible
		if run.logged {
			logged++
		}
		if o.Sent {
			sent++
			switch o.Channel {
			case models.ChannelEmail:
				r.EmailSent = true
			case models.ChannelChat:
				r.ChatSent = true
			}
		}
	}
	if len(errs) > 0 {
		r.Error = strings.Join(errs, "; ")
	}

	if eligible > 0 {
		res.advance(StateEligible)
	}
	if dispatched > 0 {
		res.advance(StateDispatched)
	}
	if logged > 0 {
		res.advance(StateLogged)
	}

	switch {
	case sent > 0:
		r.Processed = true
		r.Message = fmt.Sprintf("Alert sent to %d subscribers", r.UserCount)
		p.metrics.RecordOutcome("sent")
	case dispatched > 0:
		r.Message = "Alert dispatch failed"
		p.metrics.RecordOutcome("dispatch_failed")
	case duplicates > 0:
		r.Message = "Alert already dispatched"
		p.metrics.RecordOutcome("duplicate")
	case len(errs) > 0:
		r.Message = "Subscriber lookup failed"
		p.metrics.RecordOutcome("dependency_error")
	default:
		r.Message = "No eligible subscribers"
		p.metrics.RecordOutcome("no_eligible")
	}
}

// DedupeKey is the lock key guarding one (signal, channel) dispatch.
func DedupeKey(signalID string, ch models.Channel) string {
	return fmt.Sprintf("dispatch:%s:%s", signalID, ch)
}

func uniqueChannels(chs []models.Channel) []models.Channel {
	seen := make(map[models.Channel]struct{}, len(chs))
	out := make([]models.Channel, 0, len(chs))
	for _, ch := range chs {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}
