package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bayni/apiserver/config"
)

// AttrContentType is the message attribute carrying the payload's media type.
const AttrContentType = "content-type"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Connect builds the backend selected by cfg.Backend: "rabbitmq", "pubsub"
// or "local" for an in-process broker.
func Connect(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "rabbitmq":
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	case "local":
		backend = NewLocalBroker()
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// PublishJSON encodes v as JSON and sends it to the named channel.
func (m *MQ) PublishJSON(ctx context.Context, channel string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", channel, err)
	}
	return m.backend.Publish(ctx, channel, data, map[string]string{AttrContentType: "application/json"})
}

// Subscribe consumes messages from the named channel.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
