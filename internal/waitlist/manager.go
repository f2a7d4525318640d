// Package waitlist queues users for full events and promotes them on request.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

// Manager is the waitlist of full events. Entries are never promoted
// automatically, Promote must be called explicitly.
type Manager struct {
	store         store.Store
	registrations registration.Service
	metrics       metrics.Metrics
	now           func() time.Time
}

// New creates a waitlist Manager.
func New(s store.Store, registrations registration.Service, m metrics.Metrics) *Manager {
	return &Manager{
		store:         s,
		registrations: registrations,
		metrics:       m,
		now:           time.Now,
	}
}

// Join queues the actor for a full event. An existing entry is returned unchanged.
func (m *Manager) Join(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.WaitlistEntry, error) {
	var (
		entry   *lifecycle.WaitlistEntry
		created bool
	)
	err := m.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		u, err := q.GetUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckEligibility(e, u); err != nil {
			return err
		}

		reg, err := q.GetRegistration(ctx, eventID, actor.UserID)
		if err != nil && !errors.Is(err, lifecycle.ErrNotFound) {
			return err
		}
		if reg != nil && reg.Status.Occupying() {
			return lifecycle.ErrAlreadyParticipating
		}

		existing, err := q.GetWaitlistEntry(ctx, eventID, actor.UserID)
		if err == nil {
			entry = existing
			return nil
		}
		if !errors.Is(err, lifecycle.ErrNotFound) {
			return err
		}

		occupied, err := q.CountOccupying(ctx, eventID)
		if err != nil {
			return err
		}
		if lifecycle.Admit(occupied, e.MaxUsers) == nil {
			return lifecycle.ErrSlotsAvailable
		}

		entry = &lifecycle.WaitlistEntry{EventID: eventID, UserID: actor.UserID, JoinedAt: m.now()}
		created = true
		return q.InsertWaitlistEntry(ctx, entry)
	})
	if err != nil {
		log.Info("Waitlist join rejected", "eventID", eventID, "userID", actor.UserID, "error", err)
		return nil, err
	}
	if created {
		m.metrics.IncWaitlist("join")
		log.Info("Joined waitlist", "eventID", eventID, "userID", actor.UserID)
	}
	return entry, nil
}

// Leave removes the actor's entry. Leaving without an entry is not an error.
func (m *Manager) Leave(ctx context.Context, actor lifecycle.Actor, eventID string) error {
	removed, err := m.store.DeleteWaitlistEntry(ctx, eventID, actor.UserID)
	if err != nil {
		return err
	}
	if removed {
		m.metrics.IncWaitlist("leave")
		log.Info("Left waitlist", "eventID", eventID, "userID", actor.UserID)
	}
	return nil
}

// List returns the entries of an event in join order.
func (m *Manager) List(ctx context.Context, eventID string) ([]lifecycle.WaitlistEntry, error) {
	if _, err := m.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return m.store.ListWaitlist(ctx, eventID)
}

// Position returns the 1-based place of the user in the queue, or 0 when the
// user is not waiting.
func (m *Manager) Position(ctx context.Context, eventID, userID string) (int, error) {
	entries, err := m.store.ListWaitlist(ctx, eventID)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if e.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Promote registers the earliest waiting user. The entry is removed by the
// admission itself. A user who can never be admitted (rank outside the range,
// a registration the organizer cancelled) is dropped from the queue and the
// next entry is tried. On any other failure the entry stays queued.
func (m *Manager) Promote(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error) {
	e, err := m.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(e) {
		return nil, lifecycle.ErrNotAuthorized
	}
	entries, err := m.store.ListWaitlist(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for _, next := range entries {
		reg, err := m.registrations.Register(ctx, lifecycle.Actor{UserID: next.UserID}, eventID)
		if unpromotable(err) {
			log.Warn("Dropping unpromotable waitlist entry", "eventID", eventID, "userID", next.UserID, "error", err)
			if _, err := m.store.DeleteWaitlistEntry(ctx, eventID, next.UserID); err != nil {
				return nil, err
			}
			m.metrics.IncWaitlist("drop")
			continue
		}
		if err != nil {
			log.Warn("Waitlist promotion failed", "eventID", eventID, "userID", next.UserID, "error", err)
			return nil, err
		}
		// A game registration lands in INVITED without admission, so the entry is still there.
		if !reg.Status.Occupying() {
			if _, err := m.store.DeleteWaitlistEntry(ctx, eventID, next.UserID); err != nil {
				return nil, err
			}
		}
		m.metrics.IncWaitlist("promote")
		log.Info("Promoted from waitlist", "eventID", eventID, "userID", next.UserID, "status", reg.Status, "by", actor.UserID)
		return reg, nil
	}
	return nil, fmt.Errorf("waitlist of event %s is empty: %w", eventID, lifecycle.ErrNotFound)
}

// unpromotable reports errors that will not go away by retrying later.
func unpromotable(err error) bool {
	return errors.Is(err, lifecycle.ErrRankNotAllowed) || errors.Is(err, lifecycle.ErrInvalidTransition)
}
