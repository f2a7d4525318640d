package pubsub

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultSubjectPrefix = "padel.lifecycle"

// NewNATS connects to a NATS server. Messages are published on
// "<prefix>.<topic>" subjects.
func NewNATS(url, token string) (*NATSClient, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("gopadel lifecycle"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	log.Info("Connected to NATS", "url", conn.ConnectedUrl())
	return &NATSClient{conn: conn, prefix: defaultSubjectPrefix}, nil
}

func (c *NATSClient) subject(topic EventType) string {
	return c.prefix + "." + string(topic)
}

func (c *NATSClient) SendMessage(ctx context.Context, topic EventType, data any) error {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}
	if err := c.conn.Publish(c.subject(topic), payload); err != nil {
		log.Error("Failed to publish message", "error", err, "topic", topic)
		return err
	}
	log.Debug("SendMessage", "subject", c.subject(topic))
	return nil
}

func (c *NATSClient) ProcessMessage(data []byte, returnValue any) error {
	return decode(data, returnValue)
}

// Consume subscribes to all lifecycle subjects and feeds decoded messages to h
// until ctx is done.
func (c *NATSClient) Consume(ctx context.Context, h Handler) error {
	sub, err := c.conn.Subscribe(c.prefix+".>", func(m *nats.Msg) {
		var msg LifecycleMessage
		if err := c.ProcessMessage(m.Data, &msg); err != nil {
			return
		}
		if err := h(ctx, msg); err != nil {
			log.Error("Failed to handle lifecycle message", "error", err, "subject", m.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Info("Consuming lifecycle messages", "subject", sub.Subject)

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		log.Warn("Failed to unsubscribe", "error", err)
	}
	return nil
}

func (c *NATSClient) Close() error {
	return c.conn.Drain()
}
var _ PubSubClient = (*NATSClient)(nil)
