package audit

import (
	"context"
	"log/slog"
)

// Broadcaster delivers events to live subscribers (publish-only; this core
// never subscribes).
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// NopBroadcaster discards events. Used when no live transport is configured.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(ctx context.Context, event Event) error { return nil }

// Worker drains the publisher's inbox into the live broadcaster. Broadcast
// failures are logged and never propagate back to the transition that
// produced the event.
type Worker struct {
	inbox       <-chan Event
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewWorker wires an inbox to a broadcaster.
func NewWorker(inbox <-chan Event, broadcaster Broadcaster, logger *slog.Logger) *Worker {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{inbox: inbox, broadcaster: broadcaster, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.broadcaster.Broadcast(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit broadcast failed",
					"event_type", string(event.Type),
					"applicant_number", event.ApplicantNumber,
					"error", err,
				)
			}
		}
	}
}
