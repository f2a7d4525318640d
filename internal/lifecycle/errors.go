package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrRankNotAllowed        = errors.New("rank not allowed for this event")
	ErrRankRangeUnset        = fmt.Errorf("%w: rank range not configured", ErrRankNotAllowed)
	ErrEventFull             = errors.New("event is full")
	ErrEventClosed           = errors.New("event is closed")
	ErrInvalidTransition     = errors.New("invalid registration transition")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrDuplicateRegistration = errors.New("registration already exists")
	ErrPaymentConflict       = errors.New("payment conflict")

	ErrNotFound              = errors.New("not found")
	ErrSlotsAvailable        = errors.New("event has free slots, register instead")
	ErrAlreadyParticipating  = errors.New("user already participates in this event")
	ErrCapacityBelowOccupied = errors.New("capacity below occupied slots")
	ErrNotConfirmed          = errors.New("user has no confirmed registration")
	ErrInvalidPlacement      = errors.New("invalid leaderboard placement")
	ErrInvalidInput          = errors.New("invalid input")
)

// TransitionError describes a rejected state machine move.
type TransitionError struct {
	Type   EventType
	From   RegistrationStatus
	Action Action
}

func (e *TransitionError) Error() string {
	from := e.From
	if from == StatusNone {
		from = "NONE"
	}
	return fmt.Sprintf("cannot %s from %s for %s", e.Action, from, e.Type)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
