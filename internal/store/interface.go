package store

import (
	"context"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// Queries are the entity operations available both inside and outside a transaction.
type Queries interface {
	InsertEvent(ctx context.Context, e *lifecycle.Event) error
	UpdateEvent(ctx context.Context, e *lifecycle.Event) error
	SetEventStatus(ctx context.Context, eventID string, status lifecycle.EventStatus) error
	GetEvent(ctx context.Context, eventID string) (*lifecycle.Event, error)
	ListEvents(ctx context.Context) ([]lifecycle.Event, error)

	GetUser(ctx context.Context, userID string) (*lifecycle.User, error)

	// CountOccupying counts registrations of the event that hold a slot.
	CountOccupying(ctx context.Context, eventID string) (int, error)
	InsertRegistration(ctx context.Context, r *lifecycle.Registration) error
	UpdateRegistration(ctx context.Context, r *lifecycle.Registration) error
	GetRegistration(ctx context.Context, eventID, userID string) (*lifecycle.Registration, error)
	GetRegistrationByID(ctx context.Context, registrationID string) (*lifecycle.Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]lifecycle.Registration, error)
	ListUserRegistrations(ctx context.Context, userID string) ([]lifecycle.Registration, error)

	InsertWaitlistEntry(ctx context.Context, w *lifecycle.WaitlistEntry) error
	GetWaitlistEntry(ctx context.Context, eventID, userID string) (*lifecycle.WaitlistEntry, error)
	// DeleteWaitlistEntry reports whether an entry was removed.
	DeleteWaitlistEntry(ctx context.Context, eventID, userID string) (bool, error)
	// ListWaitlist returns entries in join order.
	ListWaitlist(ctx context.Context, eventID string) ([]lifecycle.WaitlistEntry, error)

	InsertPayment(ctx context.Context, p *lifecycle.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*lifecycle.Payment, error)
	GetPaymentByToken(ctx context.Context, token string) (*lifecycle.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status lifecycle.PaymentStatus) error
	ListRegistrationPayments(ctx context.Context, registrationID string) ([]lifecycle.Payment, error)
	ListPendingPayments(ctx context.Context, createdBefore time.Time) ([]lifecycle.Payment, error)

	GetLeaderboard(ctx context.Context, eventID string) ([]lifecycle.LeaderboardEntry, error)
	ReplaceLeaderboard(ctx context.Context, eventID string, entries []lifecycle.LeaderboardEntry) error
}

// Auditor exposes the read-only scans used by the consistency check.
type Auditor interface {
	OccupancyReport(ctx context.Context) ([]Occupancy, error)
	DuplicateRegistrations(ctx context.Context) ([]Duplicate, error)
	WaitlistConflicts(ctx context.Context) ([]lifecycle.WaitlistEntry, error)
	LeaderboardViolations(ctx context.Context) ([]lifecycle.LeaderboardEntry, error)
}

// Store is the durable entity store.
type Store interface {
	Queries
	Auditor
	// Atomically runs fn in one transaction. Writers are serialized and
	// transient lock conflicts are retried a bounded number of times.
	Atomically(ctx context.Context, fn func(q Queries) error) error
}
