package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplicant(ctx context.Context, applicantNumber string) ([]Event, error)
}

// Publisher persists audit events and offers them to the live pipeline. The
// append is the durable guarantee; the channel hand-off never blocks the
// triggering transition, events are dropped under backpressure instead.
type Publisher struct {
	store   Store
	inbox   chan Event
	logger  *slog.Logger
	dropped func() // metrics hook, may be nil
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithDropHook registers a callback invoked when a live event is dropped.
func WithDropHook(hook func()) PublisherOption {
	return func(p *Publisher) { p.dropped = hook }
}

const defaultInboxSize = 256

// NewPublisher constructs a Publisher with a buffered live-event inbox.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		inbox:  make(chan Event, defaultInboxSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event and offers it to live subscribers.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}

	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		p.logger.WarnContext(ctx, "live audit event dropped",
			"event_type", string(event.Type),
			"applicant_number", event.ApplicantNumber,
		)
	}
	return nil
}

// List returns the audit trail of one applicant, oldest first.
func (p *Publisher) List(ctx context.Context, applicantNumber string) ([]Event, error) {
	return p.store.ListByApplicant(ctx, applicantNumber)
}

// Inbox exposes the live event channel for the broadcast worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }
