// Package mailer is the boundary to the mail transport. The lifecycle core
// only hands a Message to the port; delivery mechanics live behind it.
package mailer

import "context"

// Message is one outbound notification.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers messages. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
