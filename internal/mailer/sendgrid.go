package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sendgrid delivers messages through the SendGrid v3 API.
type Sendgrid struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	subjPref string
}

// NewSendgrid builds a SendGrid-backed mailer. appName prefixes subjects so
// applicants recognize the sender.
func NewSendgrid(apiKey, appName, fromEmail string) *Sendgrid {
	return &Sendgrid{
		client:   sendgrid.NewSendClient(apiKey),
		from:     sgmail.NewEmail(appName, fromEmail),
		subjPref: "[" + appName + "] ",
	}
}

func (s *Sendgrid) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	html := msg.HTMLBody
	if html == "" {
		html = "<pre>" + msg.TextBody + "</pre>"
	}
	m := sgmail.NewSingleEmail(s.from, s.subjPref+msg.Subject, to, msg.TextBody, html)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

var _ Mailer = (*Sendgrid)(nil)
