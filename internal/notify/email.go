package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"nexo-alert/internal/config"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email sends the plain-text body with the chart attached over SMTP with
// mandatory STARTTLS.
type Email struct {
	client mailSender
	from   string
	to     string
}

func NewEmail(cfg config.EmailConfig) (*Email, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &Email{client: client, from: cfg.From, to: cfg.To}, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, msg Message) error {
	m, err := e.build(msg)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (e *Email) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.from, err)
	}
	if err := m.To(e.to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", e.to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if len(msg.Image) > 0 {
		if err := m.AttachReader(msg.ImageName, bytes.NewReader(msg.Image)); err != nil {
			return nil, fmt.Errorf("failed to attach chart: %w", err)
		}
	}
	return m, nil
}
