package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for SubmissionsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeAuthFailed   = "auth_failed"
	OutcomeProfileFail  = "profile_failed"
	OutcomeInFlight     = "in_flight"
	OutcomeInvalidInput = "invalid_input"
)

// Metrics tracks registration submissions and their remote latency.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	SubmitDuration   prometheus.Histogram
	OrphanedAccounts prometheus.Counter
	RolledBack       prometheus.Counter
}

// New registers the registration metrics with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signup_submit_duration_seconds",
			Help:    "Duration of the create-account plus insert-profile sequence",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		OrphanedAccounts: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_orphaned_accounts_total",
			Help: "Identity accounts created without a profile row",
		}),
		RolledBack: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_accounts_rolled_back_total",
			Help: "Orphaned identity accounts deleted by compensation",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSubmit records the duration since start.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementOrphaned() {
	m.OrphanedAccounts.Inc()
}

func (m *Metrics) IncrementRolledBack() {
	m.RolledBack.Inc()
}
