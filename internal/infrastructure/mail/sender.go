// Package mail sends run notifications over SMTP.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/ports"
)

const implicitTLSPort = 465

// Sender delivers one message per Send call. Port 465 speaks implicit
// TLS; any other port attempts STARTTLS and continues in the clear when
// the server cannot upgrade. That fallback is a compatibility choice for
// legacy relays, not a security guarantee.
type Sender struct {
	cfg config.MailConfig
}

var _ ports.Mailer = (*Sender)(nil)

// NewSender wires transport settings from configuration.
func NewSender(cfg config.MailConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Send builds and dispatches a single plain-text message. Missing
// credentials surface as a configuration error at the point of send.
func (s *Sender) Send(ctx context.Context, msg domain.Mail) error {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("%w: smtp host/credentials missing", domain.ErrConfig)
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return fmt.Errorf("set from %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Port == implicitTLSPort {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return nil
}
