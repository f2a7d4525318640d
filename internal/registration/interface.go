package registration

import (
	"context"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// Service applies the registration state machine to stored registrations.
type Service interface {
	// Register creates or reactivates the actor's registration. An active
	// registration is returned unchanged.
	Register(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
	Approve(ctx context.Context, actor lifecycle.Actor, eventID, userID string) (*lifecycle.Registration, error)
	Reject(ctx context.Context, actor lifecycle.Actor, eventID, userID string) (*lifecycle.Registration, error)
	CancelBeforePayment(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
	CancelAfterPayment(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
	Leave(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
	// Cancel applies whichever cancel action is legal for the current status.
	Cancel(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
	Reactivate(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)

	Get(ctx context.Context, eventID, userID string) (*lifecycle.Registration, error)
	ListForEvent(ctx context.Context, eventID string) ([]lifecycle.Registration, error)
	ListForUser(ctx context.Context, userID string) ([]lifecycle.Registration, error)
}
