package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/payment"
	"github.com/shampsdev/gopadel-sub001/internal/payment/yookassa"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	*testdb.Fixture
	regs    registration.Service
	coord   *payment.Coordinator
	gateway *yookassa.MockClient
	pubsub  *pubsub.MockPubSubClient
	metrics *metrics.Mock
}

func setup(t *testing.T) *harness {
	t.Helper()
	f := testdb.New(t)
	ps := pubsub.NewMock()
	m := metrics.NewMock()
	gw := yookassa.NewMockClient()
	return &harness{
		Fixture: f,
		regs:    registration.New(f.Store, ps, m),
		coord:   payment.New(f.Store, gw, ps, m, "RUB"),
		gateway: gw,
		pubsub:  ps,
		metrics: m,
	}
}

// pending registers userID for a fresh paid tournament.
func (h *harness) pending(t *testing.T, userID string) *lifecycle.Event {
	t.Helper()
	e := h.Event(t)
	h.Member(t, userID, 3)
	reg, err := h.regs.Register(context.Background(), testdb.Actor(userID), e.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusPending, reg.Status)
	return e
}

func TestSucceededCallbackIsIdempotent(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")

	intent, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "https://app.example/return")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.PaymentLink)

	for range 2 {
		p, err := h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentSucceeded)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.PaymentSucceeded, p.Status)
	}

	reg, err := h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, reg.Status)
	require.NotNil(t, reg.PaymentID)
	assert.Equal(t, intent.PaymentID, *reg.PaymentID)

	assert.Equal(t, 1, h.metrics.Transitions(string(lifecycle.ActionPay), metrics.OutcomeApplied))
	assert.Len(t, h.pubsub.Messages(pubsub.EventPaymentSettled), 1)
}

func TestCreatePaymentIntentReusesPendingPayment(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")

	first, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)
	second, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)

	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Len(t, h.gateway.CreatePaymentCalls, 1)
	assert.True(t, e.Price.Equal(h.gateway.CreatePaymentCalls[0].Amount))
}

func TestNewIntentSupersedesFailedPayment(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")

	first, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)
	_, err = h.coord.OnGatewayCallback(ctx, first.ConfirmationToken, lifecycle.PaymentFailed)
	require.NoError(t, err)

	reg, err := h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)

	second, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentID, second.PaymentID)

	reg, err = h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	require.NotNil(t, reg.PaymentID)
	assert.Equal(t, second.PaymentID, *reg.PaymentID)

	// The old payment can no longer confirm the registration.
	_, err = h.coord.OnGatewayCallback(ctx, first.ConfirmationToken, lifecycle.PaymentSucceeded)
	assert.ErrorIs(t, err, lifecycle.ErrPaymentConflict)
	reg, err = h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)
}

func TestCreatePaymentIntentRequiresPendingRegistration(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")
	h.Member(t, "B", 3)

	_, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("B"), e.ID, "")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = h.regs.CancelBeforePayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	_, err = h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Empty(t, h.gateway.CreatePaymentCalls)
}

func TestGatewayErrorLeavesNothingBehind(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")
	h.gateway.CreatePaymentFunc = func(req yookassa.CreatePaymentRequest, key string) (yookassa.Payment, error) {
		return yookassa.Payment{}, errors.New("provider down")
	}

	_, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.Error(t, err)

	reg, err := h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Nil(t, reg.PaymentID)
	assert.Equal(t, 1, h.metrics.Payments("gateway_error"))
}

func TestCallbackEdgeCases(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")
	intent, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)

	_, err = h.coord.OnGatewayCallback(ctx, "unknown-token", lifecycle.PaymentSucceeded)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentPending)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	_, err = h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentSucceeded)
	require.NoError(t, err)
	_, err = h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentFailed)
	assert.ErrorIs(t, err, lifecycle.ErrPaymentConflict)
}

func TestSucceededAfterCancellationIsConflict(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")
	intent, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)

	_, err = h.regs.CancelBeforePayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	p, err := h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentSucceeded)
	assert.ErrorIs(t, err, lifecycle.ErrPaymentConflict)
	require.NotNil(t, p)
	assert.Equal(t, lifecycle.PaymentSucceeded, p.Status)

	reg, err := h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelledBeforePayment, reg.Status)
}

func TestPaymentsOnCancelledEvent(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.pending(t, "A")
	intent, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	require.NoError(t, err)

	_, err = catalog.New(h.Store).Cancel(ctx, testdb.Actor("org"), e.ID)
	require.NoError(t, err)

	_, err = h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e.ID, "")
	assert.ErrorIs(t, err, lifecycle.ErrEventClosed)

	p, err := h.coord.OnGatewayCallback(ctx, intent.ConfirmationToken, lifecycle.PaymentSucceeded)
	assert.ErrorIs(t, err, lifecycle.ErrPaymentConflict)
	require.NotNil(t, p)
	assert.Equal(t, lifecycle.PaymentSucceeded, p.Status, "the money is recorded for refund")

	reg, err := h.regs.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)
	for _, msg := range h.pubsub.Messages(pubsub.EventRegistrationChanged) {
		assert.NotEqual(t, string(lifecycle.StatusConfirmed), msg.Status)
	}
}

func TestReconcile(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e1 := h.pending(t, "A")
	e2 := h.pending(t, "B")

	paid, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("A"), e1.ID, "")
	require.NoError(t, err)
	open, err := h.coord.CreatePaymentIntent(ctx, testdb.Actor("B"), e2.ID, "")
	require.NoError(t, err)
	h.gateway.SetStatus(paid.ConfirmationToken, yookassa.StatusSucceeded)

	settled, err := h.coord.Reconcile(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.ElementsMatch(t, []string{paid.ConfirmationToken, open.ConfirmationToken}, h.gateway.GetPaymentCalls)

	reg, err := h.regs.Get(ctx, e1.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, reg.Status)
	reg, err = h.regs.Get(ctx, e2.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)
}
