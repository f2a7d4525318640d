package lifecycle

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the kind of event a user can register for.
type EventType string

const (
	EventTypeTournament EventType = "tournament"
	EventTypeGame       EventType = "game"
	EventTypeTraining   EventType = "training"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeTournament, EventTypeGame, EventTypeTraining:
		return true
	}
	return false
}

// EventStatus is the status of an event. REGISTRATION and FULL are derived from
// occupancy, COMPLETED and CANCELLED are set by the organizer and are terminal.
type EventStatus string

const (
	EventStatusRegistration EventStatus = "REGISTRATION"
	EventStatusFull         EventStatus = "FULL"
	EventStatusCompleted    EventStatus = "COMPLETED"
	EventStatusCancelled    EventStatus = "CANCELLED"
)

// Closed reports whether the event no longer accepts participation changes.
func (s EventStatus) Closed() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// RegistrationStatus is a state of the registration state machine.
type RegistrationStatus string

const (
	StatusNone                   RegistrationStatus = ""
	StatusPending                RegistrationStatus = "PENDING"
	StatusInvited                RegistrationStatus = "INVITED"
	StatusConfirmed              RegistrationStatus = "CONFIRMED"
	StatusCancelledBeforePayment RegistrationStatus = "CANCELLED_BEFORE_PAYMENT"
	StatusCancelledAfterPayment  RegistrationStatus = "CANCELLED_AFTER_PAYMENT"
	StatusCancelled              RegistrationStatus = "CANCELLED"
	StatusLeft                   RegistrationStatus = "LEFT"
)

// OccupyingStatuses are the statuses that count against an event's maxUsers.
// INVITED is not among them: admission for games happens at approval.
var OccupyingStatuses = []RegistrationStatus{StatusPending, StatusConfirmed}

// Occupying reports whether a registration in this status holds one of the event's slots.
func (s RegistrationStatus) Occupying() bool {
	return slices.Contains(OccupyingStatuses, s)
}

// Active reports whether the registration is live, that is occupying or awaiting approval.
func (s RegistrationStatus) Active() bool {
	return s.Occupying() || s == StatusInvited
}

// Reactivatable reports whether the registration may re-enter the lifecycle.
func (s RegistrationStatus) Reactivatable() bool {
	switch s {
	case StatusCancelledBeforePayment, StatusCancelledAfterPayment, StatusLeft:
		return true
	}
	return false
}

// PaymentStatus is the status of a payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Final reports whether the payment has reached an outcome.
func (s PaymentStatus) Final() bool {
	return s != PaymentPending
}

// Event is a tournament, game or training that users can register for.
type Event struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        EventType       `json:"type"`
	Status      EventStatus     `json:"status"`
	RankMin     *float64        `json:"rankMin"`
	RankMax     *float64        `json:"rankMax"`
	MaxUsers    int             `json:"maxUsers"`
	Price       decimal.Decimal `json:"price"`
	OrganizerID string          `json:"organizerId"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	ClubID      string          `json:"clubId,omitempty"`
	CourtID     string          `json:"courtId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Free reports whether the event has nothing to pay.
func (e *Event) Free() bool {
	return e.Price.IsZero()
}

// User is a club member as seen by the participation lifecycle.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rank       float64   `json:"rank"`
	TelegramID *int64    `json:"telegramId,omitempty"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Registration is the single participation record of a user for an event.
type Registration struct {
	ID        string             `json:"id"`
	EventID   string             `json:"eventId"`
	UserID    string             `json:"userId"`
	Status    RegistrationStatus `json:"status"`
	PaymentID *string            `json:"paymentId,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// WaitlistEntry is a user queued for a full event.
type WaitlistEntry struct {
	Seq      int64     `json:"-"`
	EventID  string    `json:"eventId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Payment is one attempt at paying for a registration.
type Payment struct {
	ID                string          `json:"id"`
	RegistrationID    string          `json:"registrationId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	ConfirmationToken string          `json:"confirmationToken"`
	PaymentLink       string          `json:"paymentLink"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LeaderboardEntry is a podium place of a completed event.
type LeaderboardEntry struct {
	EventID string `json:"eventId"`
	Place   int    `json:"place"`
	UserID  string `json:"userId"`
}

// Actor is the caller of an operation, resolved from the request token.
type Actor struct {
	UserID  string
	IsAdmin bool
	System  bool
}

// SystemActor is used by background jobs acting on behalf of the service.
var SystemActor = Actor{UserID: "system", System: true}

// CanManage reports whether the actor may perform organizer-only actions on the event.
func (a Actor) CanManage(e *Event) bool {
	return a.System || a.IsAdmin || a.UserID == e.OrganizerID
}
