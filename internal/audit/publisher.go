package audit

import (
	"context"
	"log/slog"

	"kyc-gateway/pkg/requestcontext"
)

// Publisher hands events to the background worker over a buffered channel.
// Emit never blocks request handling: if the buffer is full the event is
// dropped and logged, since audit capture must not take down verification.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the channel the worker drains.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit enriches the event with request-scoped metadata and queues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"user_id", event.UserID,
			)
		}
	}
}
