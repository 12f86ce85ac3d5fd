package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const localBufferSize = 64

// ErrBrokerClosed is returned by LocalBroker after Close.
var ErrBrokerClosed = errors.New("broker closed")

// LocalBroker delivers messages to subscribers in the same process. Every
// subscriber of a channel receives every message published after it
// subscribed, unless its buffer is full, in which case the message is
// dropped for that subscriber.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan Message
	closed bool
	done   chan struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs: make(map[string][]chan Message),
		done: make(chan struct{}),
	}
}

func (b *LocalBroker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("local channel is required")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return "", ErrBrokerClosed
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, ch := range b.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe blocks, calling handler for each message, until ctx is done or
// the broker is closed.
func (b *LocalBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("local channel is required")
	}

	ch := make(chan Message, localBufferSize)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	defer b.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrBrokerClosed
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}

func (b *LocalBroker) unsubscribe(channel string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[channel]
	for i, c := range subs {
		if c == ch {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
