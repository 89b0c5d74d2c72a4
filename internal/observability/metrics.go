package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Signup outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidInput = "invalid_input"
	OutcomeConflict     = "conflict"
	OutcomeFull         = "full"
	OutcomeError        = "error"
)

var (
	signupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "registry",
		Name:      "signups_total",
		Help:      "Signup attempts grouped by outcome.",
	}, []string{"outcome"})

	participantsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mergington",
		Subsystem: "registry",
		Name:      "participants",
		Help:      "Current number of participants per activity.",
	}, []string{"activity"})

	capacityGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mergington",
		Subsystem: "registry",
		Name:      "capacity",
		Help:      "Maximum number of participants per activity.",
	}, []string{"activity"})

	lastSignupGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mergington",
		Subsystem: "registry",
		Name:      "last_signup_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed signup.",
	})
)

func init() {
	prometheus.MustRegister(signupCounter, participantsGauge, capacityGauge, lastSignupGauge)
}

// RecordSignup counts a signup attempt.
func RecordSignup(outcome string) {
	signupCounter.WithLabelValues(outcome).Inc()
}

// RecordRoster publishes the roster size and capacity of an activity.
func RecordRoster(activity string, participants, capacity int) {
	participantsGauge.WithLabelValues(activity).Set(float64(participants))
	capacityGauge.WithLabelValues(activity).Set(float64(capacity))
}

// RecordSignupCommitted updates the signup watermark gauge.
func RecordSignupCommitted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSignupGauge.Set(float64(ts.Unix()))
}
