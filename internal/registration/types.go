package registration

import (
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/store"
)

type service struct {
	store   store.Store
	pubsub  pubsub.PubSubClient
	metrics metrics.Metrics
	now     func() time.Time
}

// Change is the committed effect of one state machine move.
type Change struct {
	Registration *lifecycle.Registration
	From         lifecycle.RegistrationStatus
	Action       lifecycle.Action
	ActorID      string
	// Admitted and Released report whether the move took or freed a slot.
	Admitted bool
	Released bool
}

// Applied reports whether the registration status changed.
func (c *Change) Applied() bool {
	return c.Registration != nil && c.From != c.Registration.Status
}
