package services

import (
	"context"
	"log/slog"
)

// EventPublisher sends domain events to the message broker. A nil
// publisher disables events.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// publishEvent sends an event without failing the caller. The write that
// produced the event has already been stored.
func publishEvent(ctx context.Context, logger *slog.Logger, events EventPublisher, channel string, event any) {
	if events == nil {
		return
	}
	if _, err := events.PublishJSON(ctx, channel, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "channel", channel, "error", err)
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
