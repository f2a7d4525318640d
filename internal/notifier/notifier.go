package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// Kind says what happened to the participation the notification is about.
type Kind string

const (
	KindApprovalRequested Kind = "approval-requested"
	KindSlotFreed         Kind = "slot-freed"
	KindConfirmed         Kind = "confirmed"
	KindRejected          Kind = "rejected"
	KindPaymentSettled    Kind = "payment-settled"
)

// Notification is one message about an event. Subject is the user the change
// happened to, Recipient the user that should read it directly (may be nil for
// organizer feed messages).
type Notification struct {
	Kind      Kind
	Event     *lifecycle.Event
	Subject   *lifecycle.User
	Recipient *lifecycle.User
	// WaitlistPosition is set for slot-freed messages addressed to waitlisted users.
	WaitlistPosition int
}

// Notifier defines a high-level interface for sending notifications about participation changes.
// This decouples the rest of the application from the specific notification provider.
type Notifier interface {
	// Notify delivers n on the notifier's channel. A notifier that has nothing
	// to say about n returns nil.
	Notify(ctx context.Context, n Notification) error
}

// Multi fans a notification out to every notifier and joins the errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Text renders n as a plain text line.
func Text(n Notification) string {
	event := "the event"
	if n.Event != nil {
		event = fmt.Sprintf("%q", n.Event.Name)
	}
	who := "A player"
	if n.Subject != nil && n.Subject.Name != "" {
		who = n.Subject.Name
	}
	switch n.Kind {
	case KindApprovalRequested:
		return fmt.Sprintf("%s asks to join %s. Approve or reject the request.", who, event)
	case KindSlotFreed:
		if n.WaitlistPosition > 0 {
			return fmt.Sprintf("A slot opened up in %s. You are #%d on the waitlist.", event, n.WaitlistPosition)
		}
		return fmt.Sprintf("A slot opened up in %s.", event)
	case KindConfirmed:
		return fmt.Sprintf("You are confirmed for %s. See you on court!", event)
	case KindRejected:
		return fmt.Sprintf("Your request to join %s was rejected.", event)
	case KindPaymentSettled:
		return fmt.Sprintf("Payment for %s received.", event)
	default:
		return fmt.Sprintf("Update for %s.", event)
	}
}
