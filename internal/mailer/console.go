package mailer

import (
	"context"
	"log/slog"
	"sync"
)

// Console logs messages instead of delivering them. Default in development;
// it also records sent messages so tests can assert on them.
type Console struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsole returns a console mailer writing through the given logger.
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Send(ctx context.Context, msg Message) error {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "mail (console)",
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}

// Sent returns a copy of everything sent so far. Test helper.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

var _ Mailer = (*Console)(nil)
