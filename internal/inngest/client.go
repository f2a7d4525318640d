package inngest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
)

// New registers the consistency audit (on auditCron) and the slot-freed
// handler with the Inngest client.
func New(inngestClient inngestgo.Client, worker Worker, auditCron string) (InngestClient, error) {
	c := &client{
		inngestClient: inngestClient,
		worker:        worker,
	}
	if _, err := c.createAuditFunction(auditCron); err != nil {
		return nil, err
	}
	if _, err := c.createSlotFreedFunction(); err != nil {
		return nil, err
	}
	return c, nil
}

func (i *client) createAuditFunction(cron string) (inngestgo.ServableFunction, error) {
	config := inngestgo.FunctionOpts{
		ID:   "consistency-audit",
		Name: "Audit participation consistency",
	}
	f, err := inngestgo.CreateFunction(
		i.inngestClient,
		config,
		inngestgo.CronTrigger(cron),
		func(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
			violations, err := step.Run(ctx, "scan", func(ctx context.Context) (int, error) {
				report, err := i.worker.Audit(ctx)
				if err != nil {
					return 0, err
				}
				return len(report.Violations), nil
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"violations": violations}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit function: %w", err)
	}
	return f, nil
}

func (i *client) createSlotFreedFunction() (inngestgo.ServableFunction, error) {
	config := inngestgo.FunctionOpts{
		ID:   "slot-freed-handler",
		Name: "Offer a freed slot to the waitlist",
	}
	f, err := inngestgo.CreateFunction(
		i.inngestClient,
		config,
		inngestgo.EventTrigger(SlotFreedEvent, nil),
		func(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
			msg, err := MessageFromData(input.Event.Data)
			if err != nil {
				return nil, err
			}
			// Retried by Inngest on failure.
			_, err = step.Run(ctx, "notify-waitlist", func(ctx context.Context) (string, error) {
				return "OK", i.worker.Handle(ctx, msg)
			})
			if err != nil {
				return nil, err
			}
			return "OK", nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot-freed function: %w", err)
	}
	return f, nil
}

func (i *client) Serve() http.Handler {
	return i.inngestClient.Serve()
}

func (i *client) SendEvent(ctx context.Context, name string, data map[string]any) error {
	id, err := i.inngestClient.Send(ctx, inngestgo.Event{Name: name, Data: data})
	if err != nil {
		log.Error("Failed to send Inngest event", "name", name, "error", err)
		return fmt.Errorf("failed to send inngest event %s: %w", name, err)
	}
	log.Debug("Sent Inngest event", "name", name, "id", id)
	return nil
}

// Forwarder returns a pubsub.Handler that hands freed slots to the durable
// slot-freed function and everything else straight to the worker.
func Forwarder(sender EventSender, worker Worker) pubsub.Handler {
	return func(ctx context.Context, msg pubsub.LifecycleMessage) error {
		if msg.Type != pubsub.EventSlotFreed {
			return worker.Handle(ctx, msg)
		}
		return sender.SendEvent(ctx, SlotFreedEvent, MessageData(msg))
	}
}

// MessageData flattens a lifecycle message into an Inngest event payload.
func MessageData(msg pubsub.LifecycleMessage) map[string]any {
	return map[string]any{
		"type":           string(msg.Type),
		"eventId":        msg.EventID,
		"userId":         msg.UserID,
		"registrationId": msg.RegistrationID,
		"status":         msg.Status,
		"previousStatus": msg.PreviousStatus,
		"paymentId":      msg.PaymentID,
		"actorId":        msg.ActorID,
		"occurredAt":     msg.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// MessageFromData is the inverse of MessageData.
func MessageFromData(data map[string]any) (pubsub.LifecycleMessage, error) {
	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}
	msg := pubsub.LifecycleMessage{
		Type:           pubsub.EventType(str("type")),
		EventID:        str("eventId"),
		UserID:         str("userId"),
		RegistrationID: str("registrationId"),
		Status:         str("status"),
		PreviousStatus: str("previousStatus"),
		PaymentID:      str("paymentId"),
		ActorID:        str("actorId"),
	}
	if msg.EventID == "" {
		return msg, fmt.Errorf("inngest event has no eventId")
	}
	if msg.Type == "" {
		msg.Type = pubsub.EventSlotFreed
	}
	if at := str("occurredAt"); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return msg, fmt.Errorf("invalid occurredAt: %w", err)
		}
		msg.OccurredAt = t
	}
	return msg, nil
}
