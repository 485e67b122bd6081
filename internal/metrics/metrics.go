// Package metrics defines the Prometheus collectors for the reminder engine.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sprout"

// Send outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics groups the collectors recorded by the tick and the dispatcher.
type Metrics struct {
	ticks             prometheus.Counter
	tickDuration      prometheus.Histogram
	ownersEvaluated   prometheus.Counter
	ownerFailures     prometheus.Counter
	sends             *prometheus.CounterVec
	claims            *prometheus.CounterVec
	tokensDeactivated prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of reminder ticks run.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a reminder tick.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ownersEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_owners_evaluated_total",
			Help:      "Owners with at least one reminder enabled evaluated by ticks.",
		}),
		ownerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_owner_failures_total",
			Help:      "Owner evaluations that ended with an error.",
		}),
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Reminder send attempts by channel, kind and outcome.",
		}, []string{"channel", "kind", "outcome"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_claims_total",
			Help:      "Delivery ledger claims by channel, kind and result.",
		}, []string{"channel", "kind", "result"}),
		tokensDeactivated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_tokens_deactivated_total",
			Help:      "Push tokens deactivated after a permanent delivery failure.",
		}),
	}
}

// ObserveTick records one completed tick.
func (m *Metrics) ObserveTick(d time.Duration, owners, failures int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.ownersEvaluated.Add(float64(owners))
	m.ownerFailures.Add(float64(failures))
}

// Send records a send attempt.
func (m *Metrics) Send(channel, kind, outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(channel, kind, outcome).Inc()
}

// Claim records a ledger claim attempt.
func (m *Metrics) Claim(channel, kind string, claimed bool) {
	if m == nil {
		return
	}
	result := "claimed"
	if !claimed {
		result = "duplicate"
	}
	m.claims.WithLabelValues(channel, kind, result).Inc()
}

// TokensDeactivated records dead push tokens removed from rotation.
func (m *Metrics) TokensDeactivated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensDeactivated.Add(float64(n))
}
