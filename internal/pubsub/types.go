package pubsub

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/nats-io/nats.go"
)

type client struct {
	client   *pubsub.Client
	teardown func()
}

// NATSClient publishes and consumes lifecycle messages over NATS.
type NATSClient struct {
	conn   *nats.Conn
	prefix string
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventRegistrationChanged EventType = "registration-changed"
	EventSlotFreed           EventType = "slot-freed"
	EventApprovalRequested   EventType = "approval-requested"
	EventPaymentSettled      EventType = "payment-settled"
)

// AllEventTypes lists every topic the service publishes.
var AllEventTypes = []EventType{
	EventRegistrationChanged,
	EventSlotFreed,
	EventApprovalRequested,
	EventPaymentSettled,
}

// LifecycleMessage is published after a participation change has been committed.
type LifecycleMessage struct {
	Type           EventType `msgpack:"type"`
	EventID        string    `msgpack:"event_id"`
	UserID         string    `msgpack:"user_id"`
	RegistrationID string    `msgpack:"registration_id,omitempty"`
	Status         string    `msgpack:"status,omitempty"`
	PreviousStatus string    `msgpack:"previous_status,omitempty"`
	PaymentID      string    `msgpack:"payment_id,omitempty"`
	ActorID        string    `msgpack:"actor_id,omitempty"`
	OccurredAt     time.Time `msgpack:"occurred_at"`
}

// Handler consumes a decoded lifecycle message.
type Handler func(ctx context.Context, msg LifecycleMessage) error
