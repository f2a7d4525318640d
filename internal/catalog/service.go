// Package catalog manages events and computes the participation view clients render.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shampsdev/gopadel-sub001/internal/leaderboard"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

// Service creates, edits and describes events.
type Service struct {
	store store.Store
	now   func() time.Time
}

// New creates a catalog Service.
func New(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Create stores a new event open for registration.
func (s *Service) Create(ctx context.Context, actor lifecycle.Actor, in CreateInput) (*lifecycle.Event, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	now := s.now()
	e := &lifecycle.Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Status:      lifecycle.EventStatusRegistration,
		RankMin:     in.RankMin,
		RankMax:     in.RankMax,
		MaxUsers:    in.MaxUsers,
		Price:       in.Price,
		OrganizerID: actor.UserID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		ClubID:      in.ClubID,
		CourtID:     in.CourtID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	log.Info("Created event", "eventID", e.ID, "type", e.Type, "maxUsers", e.MaxUsers, "organizerID", e.OrganizerID)
	return e, nil
}

func validateCreate(in CreateInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("name is required: %w", lifecycle.ErrInvalidInput)
	case !in.Type.Valid():
		return fmt.Errorf("unknown event type %q: %w", in.Type, lifecycle.ErrInvalidInput)
	case in.MaxUsers <= 0:
		return fmt.Errorf("maxUsers must be positive: %w", lifecycle.ErrInvalidInput)
	case in.Price.IsNegative():
		return fmt.Errorf("price must not be negative: %w", lifecycle.ErrInvalidInput)
	case !in.EndTime.IsZero() && in.EndTime.Before(in.StartTime):
		return fmt.Errorf("event ends before it starts: %w", lifecycle.ErrInvalidInput)
	}
	return validateRange(in.RankMin, in.RankMax)
}

func validateRange(lo, hi *float64) error {
	if lo != nil && hi != nil && *lo >= *hi {
		return fmt.Errorf("rankMin must be below rankMax: %w", lifecycle.ErrInvalidInput)
	}
	return nil
}

// Get describes an event as seen by actor.
func (s *Service) Get(ctx context.Context, actor lifecycle.Actor, eventID string) (*EventView, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, e)
}

// List describes all events, earliest first.
func (s *Service) List(ctx context.Context, actor lifecycle.Actor) ([]EventView, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for i := range events {
		v, err := s.view(ctx, actor, &events[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, actor lifecycle.Actor, e *lifecycle.Event) (*EventView, error) {
	occupied, err := s.store.CountOccupying(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	v := &EventView{
		Event:    *e,
		Occupied: occupied,
		IsFull:   lifecycle.Admit(occupied, e.MaxUsers) != nil,
	}

	if u, err := s.store.GetUser(ctx, actor.UserID); err == nil {
		v.CanRegister = lifecycle.CanRegister(e, u) && (!v.IsFull || lifecycle.FlowOf(e.Type) == lifecycle.FlowApproval)
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		return nil, err
	}

	reg, err := s.store.GetRegistration(ctx, e.ID, actor.UserID)
	switch {
	case err == nil:
		v.UserStatus = reg.Status
		if reg.Status.Active() {
			v.CanRegister = false
		}
	case !errors.Is(err, lifecycle.ErrNotFound):
		return nil, err
	}

	waitlist, err := s.store.ListWaitlist(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	for i, w := range waitlist {
		if w.UserID == actor.UserID {
			v.WaitlistPosition = i + 1
			break
		}
	}

	if e.Status == lifecycle.EventStatusCompleted {
		if v.Leaderboard, err = s.store.GetLeaderboard(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Update applies an organizer edit. A rank range change does not touch
// existing registrations.
func (s *Service) Update(ctx context.Context, actor lifecycle.Actor, eventID string, p Patch) (*lifecycle.Event, error) {
	return s.UpdateWithPlaces(ctx, actor, eventID, p, nil)
}

// UpdateWithPlaces applies an organizer edit and, when placements is not nil,
// the podium in the same transaction. Either both are stored or neither is.
func (s *Service) UpdateWithPlaces(ctx context.Context, actor lifecycle.Actor, eventID string, p Patch, placements map[int]string) (*lifecycle.Event, error) {
	var updated *lifecycle.Event
	err := s.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !actor.CanManage(e) {
			return lifecycle.ErrNotAuthorized
		}
		if p != (Patch{}) || placements == nil {
			if err := s.patch(ctx, q, e, p); err != nil {
				return err
			}
		}
		if placements != nil {
			if _, err := leaderboard.ApplyPlaces(ctx, q, actor, e, placements); err != nil {
				return err
			}
		}
		updated = e
		return nil
	})
	if err != nil {
		log.Info("Event update rejected", "eventID", eventID, "error", err)
		return nil, err
	}
	log.Info("Updated event", "eventID", eventID, "status", updated.Status, "places", len(placements), "by", actor.UserID)
	return updated, nil
}

// patch applies p to e, re-derives its status and stores it.
func (s *Service) patch(ctx context.Context, q store.Queries, e *lifecycle.Event, p Patch) error {
	if err := applyPatch(e, p); err != nil {
		return err
	}

	occupied, err := q.CountOccupying(ctx, e.ID)
	if err != nil {
		return err
	}
	if p.MaxUsers != nil && *p.MaxUsers < occupied {
		return fmt.Errorf("maxUsers %d below %d occupied: %w", *p.MaxUsers, occupied, lifecycle.ErrCapacityBelowOccupied)
	}
	if p.Status != nil {
		if e.Status.Closed() {
			return fmt.Errorf("event is already %s: %w", e.Status, lifecycle.ErrInvalidTransition)
		}
		if !p.Status.Closed() {
			return fmt.Errorf("status %s is derived, not set: %w", *p.Status, lifecycle.ErrInvalidTransition)
		}
		e.Status = *p.Status
	}
	e.Status = lifecycle.DeriveStatus(e.Status, occupied, e.MaxUsers)
	e.UpdatedAt = s.now()
	return q.UpdateEvent(ctx, e)
}

func applyPatch(e *lifecycle.Event, p Patch) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("name is required: %w", lifecycle.ErrInvalidInput)
		}
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.RankMin != nil {
		e.RankMin = p.RankMin
	}
	if p.RankMax != nil {
		e.RankMax = p.RankMax
	}
	if err := validateRange(e.RankMin, e.RankMax); err != nil {
		return err
	}
	if p.MaxUsers != nil {
		if *p.MaxUsers <= 0 {
			return fmt.Errorf("maxUsers must be positive: %w", lifecycle.ErrInvalidInput)
		}
		e.MaxUsers = *p.MaxUsers
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return fmt.Errorf("price must not be negative: %w", lifecycle.ErrInvalidInput)
		}
		e.Price = *p.Price
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.ClubID != nil {
		e.ClubID = *p.ClubID
	}
	if p.CourtID != nil {
		e.CourtID = *p.CourtID
	}
	return nil
}

// Cancel moves the event to CANCELLED. Registrations keep their status.
func (s *Service) Cancel(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Event, error) {
	cancelled := lifecycle.EventStatusCancelled
	return s.Update(ctx, actor, eventID, Patch{Status: &cancelled})
}
