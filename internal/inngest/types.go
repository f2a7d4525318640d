package inngest

import (
	"github.com/inngest/inngestgo"
)

// SlotFreedEvent is the Inngest event emitted when a participation change freed a slot.
const SlotFreedEvent = "participation/slot.freed"

type client struct {
	inngestClient inngestgo.Client
	worker        Worker
}
