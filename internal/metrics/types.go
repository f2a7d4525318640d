package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Transitions         *prometheus.CounterVec
	WaitlistOps         *prometheus.CounterVec
	Payments            *prometheus.CounterVec
	NotifSent           *prometheus.CounterVec
	NotifFailed         *prometheus.CounterVec
	IntegrityViolations *prometheus.CounterVec
	ProcessingDuration  prometheus.Histogram
	StartupTimeSeconds  prometheus.Gauge
}

// Outcome labels used with IncTransition.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)
