package notifier

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	NotifyFunc  func(ctx context.Context, n Notification) error
	NotifyCalls []Notification
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = nil
}

func (m *Mock) Notify(ctx context.Context, n Notification) error {
	m.mu.Lock()
	m.NotifyCalls = append(m.NotifyCalls, n)
	fn := m.NotifyFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, n)
	}
	return nil
}

// Calls returns the recorded notifications of the given kind.
func (m *Mock) Calls(kind Kind) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.NotifyCalls {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
