package yookassa

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a mock implementation of the YooKassaClient interface for testing.
// Without spies it behaves like a provider that keeps payments pending.
// It is safe for concurrent use.
type MockClient struct {
	mu       sync.Mutex
	payments map[string]Payment
	byKey    map[string]string

	// Spies for method calls
	CreatePaymentFunc func(req CreatePaymentRequest, idempotenceKey string) (Payment, error)
	GetPaymentFunc    func(paymentID string) (Payment, error)

	// Call records
	CreatePaymentCalls []CreatePaymentRequest
	GetPaymentCalls    []string
}

var _ YooKassaClient = (*MockClient)(nil)

// NewMockClient creates a new mock instance.
func NewMockClient() *MockClient {
	return &MockClient{payments: make(map[string]Payment), byKey: make(map[string]string)}
}

// Reset clears all call records.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePaymentCalls = nil
	m.GetPaymentCalls = nil
}

// SetStatus changes the provider-side status of a payment.
func (m *MockClient) SetStatus(paymentID string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.payments[paymentID]
	p.Status = status
	p.Paid = status == StatusSucceeded
	m.payments[paymentID] = p
}

func (m *MockClient) CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotenceKey string) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePaymentCalls = append(m.CreatePaymentCalls, req)
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(req, idempotenceKey)
	}
	if id, ok := m.byKey[idempotenceKey]; ok {
		return m.payments[id], nil
	}
	id := fmt.Sprintf("mock-%d", len(m.payments)+1)
	p := Payment{
		ID:              id,
		Status:          StatusPending,
		Amount:          req.Amount,
		Currency:        req.Currency,
		ConfirmationURL: "https://pay.example.test/" + id,
		Metadata:        req.Metadata,
	}
	m.payments[id] = p
	m.byKey[idempotenceKey] = id
	return p, nil
}

func (m *MockClient) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPaymentCalls = append(m.GetPaymentCalls, paymentID)
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(paymentID)
	}
	p, ok := m.payments[paymentID]
	if !ok {
		return Payment{}, fmt.Errorf("payment %s not found", paymentID)
	}
	return p, nil
}
