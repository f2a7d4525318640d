package pubsub

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Local delivers messages in-process to a handler. It encodes and decodes every
// message so handlers see exactly what a remote subscriber would.
type Local struct {
	mu      sync.RWMutex
	handler Handler
}

var _ PubSubClient = (*Local)(nil)

// NewLocal returns a Local publisher. Messages sent before SetHandler is called are dropped.
func NewLocal() *Local {
	return &Local{}
}

// SetHandler binds the consumer.
func (l *Local) SetHandler(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *Local) SendMessage(ctx context.Context, topic EventType, data any) error {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}

	l.mu.RLock()
	h := l.handler
	l.mu.RUnlock()
	if h == nil {
		log.Debug("No local handler bound, dropping message", "topic", topic)
		return nil
	}

	var msg LifecycleMessage
	if err := l.ProcessMessage(payload, &msg); err != nil {
		return err
	}
	return h(ctx, msg)
}

func (l *Local) ProcessMessage(data []byte, returnValue any) error {
	return decode(data, returnValue)
}

func (l *Local) Close() error {
	return nil
}
