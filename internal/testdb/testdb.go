// Package testdb builds migrated in-memory databases and fixtures for package tests.
package testdb

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/database"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Fixture is a migrated in-memory database with its stores.
type Fixture struct {
	Store   store.Store
	Members club.ClubStore
}

// MigrationsDir returns the absolute path of the repository migrations.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// New opens a fresh database that is closed when the test ends.
func New(t testing.TB) *Fixture {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "", MigrationsDir())
	require.NoError(t, err)
	t.Cleanup(teardown)
	return &Fixture{Store: store.New(db), Members: club.New(db)}
}

// Member adds a club member with the given rank.
func (f *Fixture) Member(t testing.TB, id string, rank float64) lifecycle.User {
	t.Helper()
	m := club.Member{ID: id, Name: "Player " + id, Rank: rank, CreatedAt: time.Now()}
	require.NoError(t, f.Members.AddMember(context.Background(), m))
	return m
}

// EventOption customizes an event created by Event.
type EventOption func(e *lifecycle.Event)

func WithType(t lifecycle.EventType) EventOption {
	return func(e *lifecycle.Event) { e.Type = t }
}

func WithMaxUsers(n int) EventOption {
	return func(e *lifecycle.Event) { e.MaxUsers = n }
}

func WithPrice(price string) EventOption {
	return func(e *lifecycle.Event) { e.Price = decimal.RequireFromString(price) }
}

func WithRankRange(lo, hi float64) EventOption {
	return func(e *lifecycle.Event) { e.RankMin, e.RankMax = &lo, &hi }
}

// WithoutRankRange leaves the rank range unset.
func WithoutRankRange() EventOption {
	return func(e *lifecycle.Event) { e.RankMin, e.RankMax = nil, nil }
}

func WithOrganizer(id string) EventOption {
	return func(e *lifecycle.Event) { e.OrganizerID = id }
}

func WithStatus(s lifecycle.EventStatus) EventOption {
	return func(e *lifecycle.Event) { e.Status = s }
}

// Event stores a tournament open for ranks [0, 10) with two slots and a price,
// organized by "org". The organizer is created when missing.
func (f *Fixture) Event(t testing.TB, opts ...EventOption) *lifecycle.Event {
	t.Helper()
	ctx := context.Background()
	lo, hi := 0.0, 10.0
	now := time.Now().UTC().Truncate(time.Millisecond)
	e := &lifecycle.Event{
		ID:          uuid.NewString(),
		Name:        "Evening americano",
		Type:        lifecycle.EventTypeTournament,
		Status:      lifecycle.EventStatusRegistration,
		RankMin:     &lo,
		RankMax:     &hi,
		MaxUsers:    2,
		Price:       decimal.RequireFromString("1000"),
		OrganizerID: "org",
		StartTime:   now.Add(48 * time.Hour),
		EndTime:     now.Add(50 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !f.Members.IsKnownMember(ctx, e.OrganizerID) {
		f.Member(t, e.OrganizerID, 5)
	}
	require.NoError(t, f.Store.InsertEvent(ctx, e))
	return e
}

// Status returns the current status of an event.
func (f *Fixture) Status(t testing.TB, eventID string) lifecycle.EventStatus {
	t.Helper()
	e, err := f.Store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	return e.Status
}

// Occupied returns the number of occupying registrations of an event.
func (f *Fixture) Occupied(t testing.TB, eventID string) int {
	t.Helper()
	n, err := f.Store.CountOccupying(context.Background(), eventID)
	require.NoError(t, err)
	return n
}

// Actor returns a plain member actor.
func Actor(userID string) lifecycle.Actor {
	return lifecycle.Actor{UserID: userID}
}
