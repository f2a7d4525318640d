package inngest

import (
	"context"
	"net/http"

	"github.com/shampsdev/gopadel-sub001/internal/processor"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
)

type InngestClient interface {
	EventSender
	Serve() http.Handler
}

// EventSender emits Inngest events.
type EventSender interface {
	SendEvent(ctx context.Context, name string, data map[string]any) error
}

// Worker is the part of the lifecycle processor the durable functions drive.
type Worker interface {
	Handle(ctx context.Context, msg pubsub.LifecycleMessage) error
	Audit(ctx context.Context) (processor.AuditReport, error)
}
