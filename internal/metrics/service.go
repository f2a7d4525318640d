package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_registration_transitions_total",
			Help: "Registration state machine actions by action and outcome.",
		}, []string{"action", "outcome"}),
		WaitlistOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_waitlist_operations_total",
			Help: "Waitlist joins, leaves and promotions.",
		}, []string{"op"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_payments_total",
			Help: "Payment intents and gateway outcomes.",
		}, []string{"outcome"}),
		NotifSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}, []string{"channel"}),
		NotifFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}, []string{"channel"}),
		IntegrityViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padel_integrity_violations_total",
			Help: "Data integrity violations found by the consistency audit.",
		}, []string{"kind"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "padel_message_processing_duration_seconds",
			Help:    "The duration of lifecycle message processing.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "padel_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Transitions,
		s.WaitlistOps,
		s.Payments,
		s.NotifSent,
		s.NotifFailed,
		s.IntegrityViolations,
		s.ProcessingDuration,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncTransition(action, outcome string) {
	s.Transitions.WithLabelValues(action, outcome).Inc()
}

func (s *Service) IncWaitlist(op string) {
	s.WaitlistOps.WithLabelValues(op).Inc()
}

func (s *Service) IncPayment(outcome string) {
	s.Payments.WithLabelValues(outcome).Inc()
}

func (s *Service) IncNotifSent(channel string) {
	s.NotifSent.WithLabelValues(channel).Inc()
}

func (s *Service) IncNotifFailed(channel string) {
	s.NotifFailed.WithLabelValues(channel).Inc()
}

func (s *Service) IncIntegrityViolation(kind string) {
	s.IntegrityViolations.WithLabelValues(kind).Inc()
}

func (s *Service) ObserveProcessingDuration(duration float64) {
	s.ProcessingDuration.Observe(duration)
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
