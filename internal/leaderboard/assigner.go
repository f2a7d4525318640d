// Package leaderboard assigns podium places of completed events.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

const maxPlace = 3

// Assigner stores the podium of completed events.
type Assigner struct {
	store store.Store
}

// New creates an Assigner.
func New(s store.Store) *Assigner {
	return &Assigner{store: s}
}

// SetPlaces merges placements (place -> userID) into the event's podium. An
// empty userID clears the place; a user assigned to a new place leaves the old one.
func (a *Assigner) SetPlaces(ctx context.Context, actor lifecycle.Actor, eventID string, placements map[int]string) ([]lifecycle.LeaderboardEntry, error) {
	var board []lifecycle.LeaderboardEntry
	err := a.store.Atomically(ctx, func(q store.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		board, err = ApplyPlaces(ctx, q, actor, e, placements)
		return err
	})
	if err != nil {
		log.Info("Leaderboard update rejected", "eventID", eventID, "error", err)
		return nil, err
	}
	log.Info("Leaderboard updated", "eventID", eventID, "places", len(board), "by", actor.UserID)
	return board, nil
}

// ApplyPlaces is SetPlaces inside the caller's transaction, for edits that
// change the event and its podium together.
func ApplyPlaces(ctx context.Context, q store.Queries, actor lifecycle.Actor, e *lifecycle.Event, placements map[int]string) ([]lifecycle.LeaderboardEntry, error) {
	if err := validate(placements); err != nil {
		return nil, err
	}
	if !actor.CanManage(e) {
		return nil, lifecycle.ErrNotAuthorized
	}
	if e.Status != lifecycle.EventStatusCompleted {
		return nil, fmt.Errorf("leaderboard of a %s event: %w", e.Status, lifecycle.ErrInvalidTransition)
	}

	current, err := q.GetLeaderboard(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	places := make(map[int]string, maxPlace)
	for _, entry := range current {
		places[entry.Place] = entry.UserID
	}

	for _, place := range sortedPlaces(placements) {
		userID := placements[place]
		if userID == "" {
			delete(places, place)
			continue
		}
		reg, err := q.GetRegistration(ctx, e.ID, userID)
		if errors.Is(err, lifecycle.ErrNotFound) || (err == nil && reg.Status != lifecycle.StatusConfirmed) {
			return nil, fmt.Errorf("user %s: %w", userID, lifecycle.ErrNotConfirmed)
		}
		if err != nil {
			return nil, err
		}
		for p, u := range places {
			if u == userID {
				delete(places, p)
			}
		}
		places[place] = userID
	}

	board := make([]lifecycle.LeaderboardEntry, 0, len(places))
	for _, place := range sortedPlaces(places) {
		board = append(board, lifecycle.LeaderboardEntry{EventID: e.ID, Place: place, UserID: places[place]})
	}
	return board, q.ReplaceLeaderboard(ctx, e.ID, board)
}

// Get returns the podium ordered by place.
func (a *Assigner) Get(ctx context.Context, eventID string) ([]lifecycle.LeaderboardEntry, error) {
	if _, err := a.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return a.store.GetLeaderboard(ctx, eventID)
}

func validate(placements map[int]string) error {
	seen := make(map[string]int, len(placements))
	for place, userID := range placements {
		if place < 1 || place > maxPlace {
			return fmt.Errorf("place %d out of 1..%d: %w", place, maxPlace, lifecycle.ErrInvalidPlacement)
		}
		if userID == "" {
			continue
		}
		if other, ok := seen[userID]; ok {
			return fmt.Errorf("user %s given places %d and %d: %w", userID, other, place, lifecycle.ErrInvalidPlacement)
		}
		seen[userID] = place
	}
	return nil
}

func sortedPlaces(m map[int]string) []int {
	places := make([]int, 0, len(m))
	for p := range m {
		places = append(places, p)
	}
	sort.Ints(places)
	return places
}
