package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	// IncTransition counts an applied or rejected state machine action.
	IncTransition(action, outcome string)
	IncWaitlist(op string)
	IncPayment(outcome string)
	IncNotifSent(channel string)
	IncNotifFailed(channel string)
	IncIntegrityViolation(kind string)
	ObserveProcessingDuration(duration float64)
	SetStartupTime(duration float64)
}
