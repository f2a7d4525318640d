package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
)

// New creates a new Processor. With autoPromote set, a freed slot is offered
// to the head of the waitlist right away instead of waiting for the organizer.
func New(store Store, promoter Promoter, notifier Notifier, metrics metrics.Metrics, autoPromote bool) *Processor {
	return &Processor{
		store:       store,
		promoter:    promoter,
		notifier:    notifier,
		metrics:     metrics,
		autoPromote: autoPromote,
	}
}

// Handle reacts to one lifecycle message. It satisfies pubsub.Handler.
func (p *Processor) Handle(ctx context.Context, msg pubsub.LifecycleMessage) error {
	startTime := time.Now()
	defer func() {
		p.metrics.ObserveProcessingDuration(float64(time.Since(startTime).Milliseconds()))
	}()
	log.Debug("Processing lifecycle message", "type", msg.Type, "eventID", msg.EventID, "userID", msg.UserID, "status", msg.Status)

	switch msg.Type {
	case pubsub.EventSlotFreed:
		return p.slotFreed(ctx, msg)
	case pubsub.EventApprovalRequested:
		return p.approvalRequested(ctx, msg)
	case pubsub.EventRegistrationChanged:
		return p.registrationChanged(ctx, msg)
	case pubsub.EventPaymentSettled:
		return p.paymentSettled(ctx, msg)
	default:
		log.Warn("Unknown lifecycle message type", "type", msg.Type)
		return nil
	}
}

func (p *Processor) slotFreed(ctx context.Context, msg pubsub.LifecycleMessage) error {
	e, err := p.store.GetEvent(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event for freed slot: %w", err)
	}
	if e.Status.Closed() {
		log.Debug("Slot freed on closed event, nothing to do", "eventID", e.ID)
		return nil
	}

	if p.autoPromote {
		reg, err := p.promoter.Promote(ctx, lifecycle.SystemActor, e.ID)
		switch {
		case err == nil:
			log.Info("Auto-promoted from waitlist", "eventID", e.ID, "userID", reg.UserID, "status", reg.Status)
		case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, lifecycle.ErrEventFull):
			log.Debug("No auto-promotion", "eventID", e.ID, "reason", err)
		default:
			log.Warn("Auto-promotion failed", "eventID", e.ID, "error", err)
		}
	}

	entries, err := p.store.ListWaitlist(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list waitlist: %w", err)
	}
	var errs []error
	if err := p.notifier.Notify(ctx, notifier.Notification{Kind: notifier.KindSlotFreed, Event: e}); err != nil {
		errs = append(errs, err)
	}
	for i, entry := range entries {
		u, err := p.store.GetUser(ctx, entry.UserID)
		if err != nil {
			log.Warn("Skipping waitlisted user", "eventID", e.ID, "userID", entry.UserID, "error", err)
			continue
		}
		n := notifier.Notification{Kind: notifier.KindSlotFreed, Event: e, Recipient: u, WaitlistPosition: i + 1}
		if err := p.notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) approvalRequested(ctx context.Context, msg pubsub.LifecycleMessage) error {
	e, err := p.store.GetEvent(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event for approval request: %w", err)
	}
	subject, err := p.store.GetUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load requesting user: %w", err)
	}
	organizer, err := p.store.GetUser(ctx, e.OrganizerID)
	if err != nil {
		log.Warn("Organizer not found, posting to feed only", "eventID", e.ID, "organizerID", e.OrganizerID)
		organizer = nil
	}
	return p.notifier.Notify(ctx, notifier.Notification{
		Kind:      notifier.KindApprovalRequested,
		Event:     e,
		Subject:   subject,
		Recipient: organizer,
	})
}

func (p *Processor) registrationChanged(ctx context.Context, msg pubsub.LifecycleMessage) error {
	var kind notifier.Kind
	switch {
	case msg.Status == string(lifecycle.StatusConfirmed) && msg.PreviousStatus != string(lifecycle.StatusConfirmed):
		kind = notifier.KindConfirmed
	case msg.Status == string(lifecycle.StatusCancelled) && msg.PreviousStatus == string(lifecycle.StatusInvited):
		kind = notifier.KindRejected
	default:
		return nil
	}
	return p.notifyUser(ctx, kind, msg)
}

func (p *Processor) paymentSettled(ctx context.Context, msg pubsub.LifecycleMessage) error {
	log.Info("Payment settled", "paymentID", msg.PaymentID, "registrationID", msg.RegistrationID, "status", msg.Status)
	if msg.Status != string(lifecycle.PaymentSucceeded) || msg.EventID == "" {
		return nil
	}
	return p.notifyUser(ctx, notifier.KindPaymentSettled, msg)
}

func (p *Processor) notifyUser(ctx context.Context, kind notifier.Kind, msg pubsub.LifecycleMessage) error {
	e, err := p.store.GetEvent(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	u, err := p.store.GetUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	return p.notifier.Notify(ctx, notifier.Notification{Kind: kind, Event: e, Subject: u, Recipient: u})
}
