// Package notification delivers workflow emails to applicants over SMTP.
package notification

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/openbanco/account-server/internal/logger"
	"github.com/openbanco/account-server/internal/model"
)

var _ model.Notifier = (*Mailer)(nil)

// Mailer sends mail through an SMTP relay. A Mailer constructed without a
// host is disabled: it logs the message and reports success, which keeps
// local development working without a relay.
type Mailer struct {
	client *mail.Client
	from   string
	logger *logger.Logger
}

// NewMailer creates a Mailer for the given relay. An empty host yields a
// disabled mailer.
func NewMailer(host string, port int, username, password, from string, logger *logger.Logger) (*Mailer, error) {
	m := &Mailer{
		from:   from,
		logger: logger,
	}

	if host == "" {
		return m, nil
	}

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	m.client = client
	return m, nil
}

// Send delivers a single message. The html flag selects the body content type.
func (m *Mailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	if m.client == nil {
		m.logger.Info("mail delivery disabled, skipping message", "to", to, "subject", subject)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("failed to set mail sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}
	msg.Subject(subject)

	if html {
		msg.SetBodyString(mail.TypeTextHTML, body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, body)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
