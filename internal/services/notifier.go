package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"golang.org/x/sync/errgroup"
)

// Subscriber is the consuming side of a broker.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Notification is what the worker would push to a device.
type Notification struct {
	UserID string
	Title  string
	Body   string
}

// Notifier turns domain events into per-user notifications.
type Notifier struct {
	users  UserLookup
	send   func(ctx context.Context, n Notification) error
	logger *slog.Logger
}

// NewNotifier builds a Notifier. A nil send logs each notification instead.
func NewNotifier(users UserLookup, send func(ctx context.Context, n Notification) error, logger *slog.Logger) *Notifier {
	logger = loggerOrDefault(logger)
	if send == nil {
		send = func(ctx context.Context, n Notification) error {
			logger.InfoContext(ctx, "notification", "user_id", n.UserID, "title", n.Title, "body", n.Body)
			return nil
		}
	}
	return &Notifier{users: users, send: send, logger: logger}
}

// HandleConsultationEvent is an mq.Handler for the consultation channels.
// Payloads that cannot be decoded are dropped rather than retried.
func (n *Notifier) HandleConsultationEvent(ctx context.Context, msg mq.Message) error {
	var event mq.ConsultationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		n.logger.WarnContext(ctx, "dropping malformed consultation event", "message_id", msg.ID, "error", err)
		return nil
	}

	var (
		recipient string
		title     string
	)
	switch types.ConsultationStatus(event.Status) {
	case types.ConsultationAnswered:
		recipient, title = event.UserID, "Your consultation was answered"
	case types.ConsultationClosed:
		recipient, title = event.DoctorID, "A consultation was closed"
	default:
		// New consultations are picked up from the pending list.
		return nil
	}
	if recipient == "" {
		return nil
	}

	// The account may have been deleted since the event was published.
	if _, err := n.users.GetByID(ctx, recipient); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return n.send(ctx, Notification{UserID: recipient, Title: title, Body: event.Topic})
}

// Run subscribes to every consultation channel and handles events until ctx
// is cancelled, which is not reported as an error.
func (n *Notifier) Run(ctx context.Context, sub Subscriber) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, channel := range mq.ConsultationChannels {
		group.Go(func() error {
			n.logger.InfoContext(ctx, "subscribing", "channel", channel)
			return sub.Subscribe(ctx, channel, n.HandleConsultationEvent)
		})
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
