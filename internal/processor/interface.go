package processor

import (
	"context"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

// Store defines the database operations required by the processor.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*lifecycle.Event, error)
	GetUser(ctx context.Context, userID string) (*lifecycle.User, error)
	ListWaitlist(ctx context.Context, eventID string) ([]lifecycle.WaitlistEntry, error)
	store.Auditor
}

// Promoter moves the head of an event's waitlist into the event.
type Promoter interface {
	Promote(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)
}

// Notifier defines the notification operations required by the processor.
// It embeds the notifier interface so tests can pass notifier.Mock.
type Notifier interface {
	notifier.Notifier
}
