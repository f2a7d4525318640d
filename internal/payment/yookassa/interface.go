package yookassa

import "context"

// YooKassaClient defines the interface for interacting with the payment provider.
// This allows for mock implementations to be used in tests.
type YooKassaClient interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotenceKey string) (Payment, error)
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
}
