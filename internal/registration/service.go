package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

var _ Service = (*service)(nil)

// New creates a registration Service.
func New(s store.Store, ps pubsub.PubSubClient, m metrics.Metrics) Service {
	return &service{
		store:   s,
		pubsub:  ps,
		metrics: m,
		now:     time.Now,
	}
}

func (s *service) Register(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	logger := log.With("eventID", eventID, "userID", actor.UserID)

	var ch *Change
	err := s.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status.Closed() {
			return lifecycle.ErrEventClosed
		}
		existing, err := lookup(ctx, q, eventID, actor.UserID)
		if err != nil {
			return err
		}

		action := lifecycle.ActionRegister
		if existing != nil {
			switch {
			case existing.Status.Active():
				ch = &Change{Registration: existing, From: existing.Status, Action: action, ActorID: actor.UserID}
				return nil
			case existing.Status.Reactivatable():
				action = lifecycle.ActionReactivate
			default:
				return &lifecycle.TransitionError{Type: e.Type, From: existing.Status, Action: action}
			}
		}

		// Rank is gated once, on the first registration. Reactivation only
		// goes through the capacity check.
		if existing == nil {
			u, err := q.GetUser(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if err := lifecycle.CheckEligibility(e, u); err != nil {
				return err
			}
		}
		ch, err = s.apply(ctx, q, e, existing, actor.UserID, action)
		if ch != nil {
			ch.ActorID = actor.UserID
		}
		return err
	})
	if err != nil {
		s.metrics.IncTransition(string(lifecycle.ActionRegister), metrics.OutcomeRejected)
		logger.Info("Registration rejected", "error", err)
		return nil, err
	}
	if !ch.Applied() {
		logger.Debug("Registration already active", "status", ch.Registration.Status)
		return ch.Registration, nil
	}
	logger.Info("Registered", "status", ch.Registration.Status, "action", ch.Action)
	s.committed(ctx, ch)
	return ch.Registration, nil
}

func (s *service) Approve(ctx context.Context, actor lifecycle.Actor, eventID, userID string) (*lifecycle.Registration, error) {
	return s.organizerAction(ctx, actor, eventID, userID, lifecycle.ActionApprove)
}

func (s *service) Reject(ctx context.Context, actor lifecycle.Actor, eventID, userID string) (*lifecycle.Registration, error) {
	return s.organizerAction(ctx, actor, eventID, userID, lifecycle.ActionReject)
}

func (s *service) CancelBeforePayment(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	return s.ownAction(ctx, actor, eventID, func(lifecycle.EventType, lifecycle.RegistrationStatus) (lifecycle.Action, error) {
		return lifecycle.ActionCancelBeforePayment, nil
	})
}

func (s *service) CancelAfterPayment(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	return s.ownAction(ctx, actor, eventID, func(lifecycle.EventType, lifecycle.RegistrationStatus) (lifecycle.Action, error) {
		return lifecycle.ActionCancelAfterPayment, nil
	})
}

func (s *service) Leave(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	return s.ownAction(ctx, actor, eventID, func(lifecycle.EventType, lifecycle.RegistrationStatus) (lifecycle.Action, error) {
		return lifecycle.ActionLeave, nil
	})
}

func (s *service) Cancel(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	return s.ownAction(ctx, actor, eventID, lifecycle.CancelAction)
}

func (s *service) Reactivate(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	return s.ownAction(ctx, actor, eventID, func(lifecycle.EventType, lifecycle.RegistrationStatus) (lifecycle.Action, error) {
		return lifecycle.ActionReactivate, nil
	})
}

func (s *service) Get(ctx context.Context, eventID, userID string) (*lifecycle.Registration, error) {
	return s.store.GetRegistration(ctx, eventID, userID)
}

func (s *service) ListForEvent(ctx context.Context, eventID string) ([]lifecycle.Registration, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListRegistrations(ctx, eventID)
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]lifecycle.Registration, error) {
	return s.store.ListUserRegistrations(ctx, userID)
}

// organizerAction runs approve or reject on another user's registration.
func (s *service) organizerAction(ctx context.Context, actor lifecycle.Actor, eventID, userID string, action lifecycle.Action) (*lifecycle.Registration, error) {
	var ch *Change
	err := s.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !actor.CanManage(e) {
			return lifecycle.ErrNotAuthorized
		}
		if e.Status.Closed() {
			return lifecycle.ErrEventClosed
		}
		reg, err := q.GetRegistration(ctx, eventID, userID)
		if err != nil {
			return err
		}
		ch, err = s.apply(ctx, q, e, reg, userID, action)
		if ch != nil {
			ch.ActorID = actor.UserID
		}
		return err
	})
	if err != nil {
		s.metrics.IncTransition(string(action), metrics.OutcomeRejected)
		log.Info("Organizer action rejected", "action", action, "eventID", eventID, "userID", userID, "error", err)
		return nil, err
	}
	log.Info("Organizer action applied", "action", action, "eventID", eventID, "userID", userID, "status", ch.Registration.Status)
	s.committed(ctx, ch)
	return ch.Registration, nil
}

// ownAction runs an action on the actor's own registration. pick chooses the
// action from the event type and current status.
func (s *service) ownAction(ctx context.Context, actor lifecycle.Actor, eventID string, pick func(lifecycle.EventType, lifecycle.RegistrationStatus) (lifecycle.Action, error)) (*lifecycle.Registration, error) {
	var (
		ch     *Change
		action lifecycle.Action
	)
	err := s.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status.Closed() {
			return lifecycle.ErrEventClosed
		}
		reg, err := q.GetRegistration(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		action, err = pick(e.Type, reg.Status)
		if err != nil {
			return err
		}
		ch, err = s.apply(ctx, q, e, reg, actor.UserID, action)
		if ch != nil {
			ch.ActorID = actor.UserID
		}
		return err
	})
	if err != nil {
		s.metrics.IncTransition(string(action), metrics.OutcomeRejected)
		log.Info("Registration action rejected", "action", action, "eventID", eventID, "userID", actor.UserID, "error", err)
		return nil, err
	}
	log.Info("Registration action applied", "action", action, "eventID", eventID, "userID", actor.UserID, "status", ch.Registration.Status)
	s.committed(ctx, ch)
	return ch.Registration, nil
}

// apply moves reg (nil for a first registration) through action inside q's
// transaction, running admission and re-deriving the event status.
func (s *service) apply(ctx context.Context, q store.Queries, e *lifecycle.Event, reg *lifecycle.Registration, userID string, action lifecycle.Action) (*Change, error) {
	from := lifecycle.StatusNone
	if reg != nil {
		from = reg.Status
	}
	to, err := lifecycle.Next(e.Type, from, action)
	if err != nil {
		return nil, err
	}

	admitted := lifecycle.Admits(from, to)
	released := lifecycle.Releases(from, to)
	if admitted {
		if err := tryOccupySlot(ctx, q, e); err != nil {
			return nil, err
		}
		if to == lifecycle.StatusPending && e.Free() {
			to = lifecycle.StatusConfirmed
		}
	}

	now := s.now()
	if reg == nil {
		reg = &lifecycle.Registration{
			ID:        uuid.NewString(),
			EventID:   e.ID,
			UserID:    userID,
			Status:    to,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.InsertRegistration(ctx, reg); err != nil {
			return nil, err
		}
	} else {
		reg.Status = to
		reg.UpdatedAt = now
		if to == lifecycle.StatusPending {
			reg.PaymentID = nil
		}
		if err := q.UpdateRegistration(ctx, reg); err != nil {
			return nil, err
		}
	}

	if admitted {
		if _, err := q.DeleteWaitlistEntry(ctx, e.ID, userID); err != nil {
			return nil, err
		}
	}
	if admitted || released {
		if err := rederive(ctx, q, e); err != nil {
			return nil, err
		}
	}

	return &Change{Registration: reg, From: from, Action: action, Admitted: admitted, Released: released}, nil
}

// tryOccupySlot counts the occupying registrations of e inside the current
// transaction and fails with ErrEventFull when none is left.
func tryOccupySlot(ctx context.Context, q store.Queries, e *lifecycle.Event) error {
	occupied, err := q.CountOccupying(ctx, e.ID)
	if err != nil {
		return err
	}
	return lifecycle.Admit(occupied, e.MaxUsers)
}

func rederive(ctx context.Context, q store.Queries, e *lifecycle.Event) error {
	occupied, err := q.CountOccupying(ctx, e.ID)
	if err != nil {
		return err
	}
	status := lifecycle.DeriveStatus(e.Status, occupied, e.MaxUsers)
	if status == e.Status {
		return nil
	}
	if err := q.SetEventStatus(ctx, e.ID, status); err != nil {
		return err
	}
	log.Info("Event status derived", "eventID", e.ID, "from", e.Status, "to", status, "occupied", occupied)
	e.Status = status
	return nil
}

// ApplyPay confirms a PENDING registration paid with paymentID. It must run
// inside the caller's transaction.
func ApplyPay(ctx context.Context, q store.Queries, e *lifecycle.Event, reg *lifecycle.Registration, paymentID string, now time.Time) error {
	to, err := lifecycle.Next(e.Type, reg.Status, lifecycle.ActionPay)
	if err != nil {
		return err
	}
	reg.Status = to
	reg.PaymentID = &paymentID
	reg.UpdatedAt = now
	if err := q.UpdateRegistration(ctx, reg); err != nil {
		return fmt.Errorf("failed to confirm registration %s: %w", reg.ID, err)
	}
	return nil
}

func lookup(ctx context.Context, q store.Queries, eventID, userID string) (*lifecycle.Registration, error) {
	reg, err := q.GetRegistration(ctx, eventID, userID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, nil
	}
	return reg, err
}

// committed records and publishes a change after its transaction has committed.
func (s *service) committed(ctx context.Context, ch *Change) {
	s.metrics.IncTransition(string(ch.Action), metrics.OutcomeApplied)
	Publish(ctx, s.pubsub, ch)
}

// Publish sends the lifecycle messages implied by ch. Failures are logged, the
// change itself is already durable.
func Publish(ctx context.Context, ps pubsub.PubSubClient, ch *Change) {
	reg := ch.Registration
	base := pubsub.LifecycleMessage{
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		RegistrationID: reg.ID,
		Status:         string(reg.Status),
		PreviousStatus: string(ch.From),
		ActorID:        ch.ActorID,
		OccurredAt:     reg.UpdatedAt,
	}
	if reg.PaymentID != nil {
		base.PaymentID = *reg.PaymentID
	}

	topics := []pubsub.EventType{pubsub.EventRegistrationChanged}
	if ch.Released {
		topics = append(topics, pubsub.EventSlotFreed)
	}
	if reg.Status == lifecycle.StatusInvited {
		topics = append(topics, pubsub.EventApprovalRequested)
	}
	for _, topic := range topics {
		msg := base
		msg.Type = topic
		if err := ps.SendMessage(ctx, topic, msg); err != nil {
			log.Error("Failed to publish lifecycle message", "error", err, "topic", topic, "registrationID", reg.ID)
		}
	}
}
