// Package payment opens gateway payments for pending registrations and applies
// gateway outcomes to them.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/payment/yookassa"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

// idempotenceNamespace derives stable gateway idempotence keys from registration attempts.
var idempotenceNamespace = uuid.MustParse("9b0c6f2e-5d1a-4c3e-8f47-2a6d1e9c7b10")

// Coordinator links registrations to gateway payments.
type Coordinator struct {
	store    store.Store
	gateway  yookassa.YooKassaClient
	pubsub   pubsub.PubSubClient
	metrics  metrics.Metrics
	currency string
	now      func() time.Time
}

// Intent is what a client needs to send the user to the checkout.
type Intent struct {
	PaymentID         string `json:"paymentId"`
	PaymentLink       string `json:"paymentLink"`
	ConfirmationToken string `json:"confirmationToken"`
}

// New creates a Coordinator charging in currency.
func New(s store.Store, gateway yookassa.YooKassaClient, ps pubsub.PubSubClient, m metrics.Metrics, currency string) *Coordinator {
	return &Coordinator{
		store:    s,
		gateway:  gateway,
		pubsub:   ps,
		metrics:  m,
		currency: currency,
		now:      time.Now,
	}
}

// CreatePaymentIntent opens a payment for the actor's PENDING registration. A
// payment that is still pending is reused.
func (c *Coordinator) CreatePaymentIntent(ctx context.Context, actor lifecycle.Actor, eventID, returnURL string) (*Intent, error) {
	e, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status.Closed() {
		return nil, fmt.Errorf("payment for a %s event: %w", e.Status, lifecycle.ErrEventClosed)
	}
	reg, err := c.store.GetRegistration(ctx, eventID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if reg.Status != lifecycle.StatusPending {
		return nil, &lifecycle.TransitionError{Type: e.Type, From: reg.Status, Action: lifecycle.ActionPay}
	}
	if current, err := c.currentPending(ctx, c.store, reg); err != nil || current != nil {
		return intentOf(current), err
	}

	previous, err := c.store.ListRegistrationPayments(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	key := uuid.NewSHA1(idempotenceNamespace, fmt.Appendf(nil, "%s/%d", reg.ID, len(previous))).String()
	gp, err := c.gateway.CreatePayment(ctx, yookassa.CreatePaymentRequest{
		Amount:      e.Price,
		Currency:    c.currency,
		Description: e.Name,
		ReturnURL:   returnURL,
		Metadata:    map[string]string{"registration_id": reg.ID, "event_id": e.ID},
	}, key)
	if err != nil {
		c.metrics.IncPayment("gateway_error")
		return nil, fmt.Errorf("failed to create gateway payment: %w", err)
	}

	now := c.now()
	p := &lifecycle.Payment{
		ID:                uuid.NewString(),
		RegistrationID:    reg.ID,
		Amount:            e.Price,
		Currency:          c.currency,
		Status:            lifecycle.PaymentPending,
		ConfirmationToken: gp.ID,
		PaymentLink:       gp.ConfirmationURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = c.store.Atomically(ctx, func(q store.Queries) error {
		reg, err := q.GetRegistrationByID(ctx, reg.ID)
		if err != nil {
			return err
		}
		if reg.Status != lifecycle.StatusPending {
			return &lifecycle.TransitionError{Type: e.Type, From: reg.Status, Action: lifecycle.ActionPay}
		}
		// A concurrent request may have stored the same gateway payment already.
		if existing, err := q.GetPaymentByToken(ctx, gp.ID); err == nil {
			p = existing
			return nil
		}
		if err := q.InsertPayment(ctx, p); err != nil {
			return err
		}
		olds, err := q.ListRegistrationPayments(ctx, reg.ID)
		if err != nil {
			return err
		}
		for _, old := range olds {
			if old.ID != p.ID && old.Status == lifecycle.PaymentPending {
				if err := q.UpdatePaymentStatus(ctx, old.ID, lifecycle.PaymentCancelled); err != nil {
					return err
				}
				log.Info("Superseded pending payment", "paymentID", old.ID, "registrationID", reg.ID)
			}
		}
		reg.PaymentID = &p.ID
		reg.UpdatedAt = now
		return q.UpdateRegistration(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.IncPayment("created")
	log.Info("Created payment intent", "paymentID", p.ID, "registrationID", reg.ID, "amount", p.Amount)
	return intentOf(p), nil
}

// currentPending returns the registration's current payment if it is still pending.
func (c *Coordinator) currentPending(ctx context.Context, q store.Queries, reg *lifecycle.Registration) (*lifecycle.Payment, error) {
	if reg.PaymentID == nil {
		return nil, nil
	}
	p, err := q.GetPayment(ctx, *reg.PaymentID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Status != lifecycle.PaymentPending {
		return nil, nil
	}
	return p, nil
}

// OnGatewayCallback applies a gateway outcome to the payment identified by its
// confirmation token. Repeating an outcome is a no-op.
func (c *Coordinator) OnGatewayCallback(ctx context.Context, token string, outcome lifecycle.PaymentStatus) (*lifecycle.Payment, error) {
	if !outcome.Final() {
		return nil, fmt.Errorf("outcome %q is not final: %w", outcome, lifecycle.ErrInvalidInput)
	}
	logger := log.With("token", token, "outcome", outcome)

	var (
		p        *lifecycle.Payment
		change   *registration.Change
		changed  bool
		conflict bool
	)
	err := c.store.Atomically(ctx, func(q store.Queries) error {
		var err error
		p, err = q.GetPaymentByToken(ctx, token)
		if err != nil {
			return err
		}
		if p.Status == outcome {
			return nil
		}
		if p.Status.Final() && (p.Status == lifecycle.PaymentSucceeded || outcome != lifecycle.PaymentSucceeded) {
			return fmt.Errorf("payment %s is %s, got %s: %w", p.ID, p.Status, outcome, lifecycle.ErrPaymentConflict)
		}
		if err := q.UpdatePaymentStatus(ctx, p.ID, outcome); err != nil {
			return err
		}
		p.Status = outcome
		changed = true
		if outcome != lifecycle.PaymentSucceeded {
			return nil
		}

		reg, err := q.GetRegistrationByID(ctx, p.RegistrationID)
		if err != nil {
			return err
		}
		e, err := q.GetEvent(ctx, reg.EventID)
		if err != nil {
			return err
		}
		// The money is kept on record and refunded outside the service.
		if e.Status.Closed() || reg.Status != lifecycle.StatusPending || reg.PaymentID == nil || *reg.PaymentID != p.ID {
			conflict = true
			return nil
		}
		if err := registration.ApplyPay(ctx, q, e, reg, p.ID, c.now()); err != nil {
			return err
		}
		change = &registration.Change{
			Registration: reg,
			From:         lifecycle.StatusPending,
			Action:       lifecycle.ActionPay,
			ActorID:      lifecycle.SystemActor.UserID,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrPaymentConflict) {
			c.metrics.IncPayment("conflict")
		}
		logger.Warn("Gateway callback rejected", "error", err)
		return nil, err
	}
	if !changed {
		logger.Debug("Gateway callback already applied", "paymentID", p.ID)
		return p, nil
	}

	c.metrics.IncPayment(string(outcome))
	c.publishSettled(ctx, p)
	if change != nil {
		c.metrics.IncTransition(string(lifecycle.ActionPay), metrics.OutcomeApplied)
		registration.Publish(ctx, c.pubsub, change)
		logger.Info("Registration paid", "registrationID", change.Registration.ID, "paymentID", p.ID)
	}
	if conflict {
		c.metrics.IncPayment("conflict")
		logger.Warn("Payment succeeded for a registration or event that no longer awaits it, refund required", "paymentID", p.ID, "registrationID", p.RegistrationID)
		return p, fmt.Errorf("payment %s succeeded for registration %s that no longer awaits it: %w", p.ID, p.RegistrationID, lifecycle.ErrPaymentConflict)
	}
	return p, nil
}

// Reconcile polls the gateway for payments pending longer than olderThan and
// applies their outcomes. It returns the number of payments settled.
func (c *Coordinator) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := c.store.ListPendingPayments(ctx, c.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		gp, err := c.gateway.GetPayment(ctx, p.ConfirmationToken)
		if err != nil {
			log.Warn("Failed to poll payment", "paymentID", p.ID, "error", err)
			continue
		}
		outcome, ok := outcomeOf(gp.Status)
		if !ok {
			continue
		}
		if _, err := c.OnGatewayCallback(ctx, p.ConfirmationToken, outcome); err != nil && !errors.Is(err, lifecycle.ErrPaymentConflict) {
			log.Error("Failed to apply polled payment outcome", "paymentID", p.ID, "error", err)
			continue
		}
		settled++
	}
	if settled > 0 {
		log.Info("Reconciled payments", "checked", len(stale), "settled", settled)
	}
	return settled, nil
}

// outcomeOf maps a provider status to a final payment status.
func outcomeOf(s yookassa.Status) (lifecycle.PaymentStatus, bool) {
	switch s {
	case yookassa.StatusSucceeded:
		return lifecycle.PaymentSucceeded, true
	case yookassa.StatusCanceled:
		return lifecycle.PaymentCancelled, true
	}
	return "", false
}

func (c *Coordinator) publishSettled(ctx context.Context, p *lifecycle.Payment) {
	msg := pubsub.LifecycleMessage{
		Type:           pubsub.EventPaymentSettled,
		RegistrationID: p.RegistrationID,
		PaymentID:      p.ID,
		Status:         string(p.Status),
		OccurredAt:     c.now(),
	}
	if reg, err := c.store.GetRegistrationByID(ctx, p.RegistrationID); err == nil {
		msg.EventID = reg.EventID
		msg.UserID = reg.UserID
	}
	if err := c.pubsub.SendMessage(ctx, pubsub.EventPaymentSettled, msg); err != nil {
		log.Error("Failed to publish payment outcome", "error", err, "paymentID", p.ID)
	}
}

func intentOf(p *lifecycle.Payment) *Intent {
	if p == nil {
		return nil
	}
	return &Intent{PaymentID: p.ID, PaymentLink: p.PaymentLink, ConfirmationToken: p.ConfirmationToken}
}
