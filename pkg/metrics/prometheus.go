package metrics

import (
	"strconv"

	"AlertRelay/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	outcomes    *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	recipients  *prometheus.CounterVec
	exclusions  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	digestSent  *prometheus.GaugeVec
	digestFail  *prometheus.GaugeVec
}

// New creates a recorder registered on reg. A nil reg leaves the collectors unregistered.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertrelay_pipeline_outcomes_total",
				Help: "Pipeline runs by terminal outcome",
			},
			[]string{"outcome"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertrelay_dispatches_total",
				Help: "Relay dispatch attempts by channel and result",
			},
			[]string{"channel", "success"},
		),
		recipients: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertrelay_dispatch_recipients_total",
				Help: "Recipients included in relay dispatches",
			},
			[]string{"channel", "success"},
		),
		exclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertrelay_eligibility_exclusions_total",
				Help: "Candidates excluded after the store query",
			},
			[]string{"channel", "reason"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertrelay_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertrelay_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		digestSent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alertrelay_digest_sent",
				Help: "Sent deliveries on the last summarized day",
			},
			[]string{"channel"},
		),
		digestFail: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alertrelay_digest_failed",
				Help: "Failed deliveries on the last summarized day",
			},
			[]string{"channel"},
		),
	}
	if reg != nil {
		reg.MustRegister(r.outcomes, r.dispatches, r.recipients, r.exclusions,
			r.errorsTotal, r.latency, r.digestSent, r.digestFail)
	}
	return r
}

// RecordOutcome counts one pipeline run ending in outcome.
func (r *Recorder) RecordOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

// RecordDispatch counts one relay call and its recipients.
func (r *Recorder) RecordDispatch(channel models.Channel, ok bool, recipients int) {
	s := strconv.FormatBool(ok)
	r.dispatches.WithLabelValues(string(channel), s).Inc()
	r.recipients.WithLabelValues(string(channel), s).Add(float64(recipients))
}

// RecordExclusion counts one excluded candidate.
func (r *Recorder) RecordExclusion(channel models.Channel, reason string) {
	r.exclusions.WithLabelValues(string(channel), reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordDigest exports one channel's daily totals.
func (r *Recorder) RecordDigest(s models.ChannelSummary) {
	r.digestSent.WithLabelValues(string(s.Channel)).Set(float64(s.Sent))
	r.digestFail.WithLabelValues(string(s.Channel)).Set(float64(s.Failed))
}
