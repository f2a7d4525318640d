package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	transitions         map[string]int
	waitlist            map[string]int
	payments            map[string]int
	notifSent           map[string]int
	notifFailed         map[string]int
	violations          map[string]int
	processingDurations []float64
	startupTime         float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		transitions:         make(map[string]int),
		waitlist:            make(map[string]int),
		payments:            make(map[string]int),
		notifSent:           make(map[string]int),
		notifFailed:         make(map[string]int),
		violations:          make(map[string]int),
		processingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncTransition(action, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[action+"/"+outcome]++
}

func (m *Mock) IncWaitlist(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitlist[op]++
}

func (m *Mock) IncPayment(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[outcome]++
}

func (m *Mock) IncNotifSent(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent[channel]++
}

func (m *Mock) IncNotifFailed(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed[channel]++
}

func (m *Mock) IncIntegrityViolation(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[kind]++
}

func (m *Mock) ObserveProcessingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processingDurations = append(m.processingDurations, duration)
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Transitions returns how often action was counted with outcome.
func (m *Mock) Transitions(action, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[action+"/"+outcome]
}

// Waitlist returns how often op was counted.
func (m *Mock) Waitlist(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitlist[op]
}

// Payments returns how often outcome was counted.
func (m *Mock) Payments(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[outcome]
}

// NotifSent returns the number of sent notifications on channel.
func (m *Mock) NotifSent(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent[channel]
}

// NotifFailed returns the number of failed notifications on channel.
func (m *Mock) NotifFailed(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed[channel]
}

// IntegrityViolations returns the number of violations counted for kind.
func (m *Mock) IntegrityViolations(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations[kind]
}

// ProcessedMessages returns the number of observed processing durations.
func (m *Mock) ProcessedMessages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.processingDurations)
}
