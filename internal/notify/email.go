package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailConfig holds SMTP relay settings.
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	Timeout    time.Duration
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// Email sends one multipart message per recipient over a single STARTTLS session.
type Email struct {
	cfg  EmailConfig
	dial func() (mailSender, error)
}

// NewEmail creates the channel.
func NewEmail(cfg EmailConfig) *Email {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	e := &Email{cfg: cfg}
	e.dial = e.smtpClient
	return e
}

// Name implements Channel.
func (e *Email) Name() string { return "email" }

// Send implements Channel.
func (e *Email) Send(ctx context.Context, n Notice) error {
	if e.cfg.Username == "" || e.cfg.Password == "" {
		return fmt.Errorf("email: %w", ErrNotConfigured)
	}
	if len(e.cfg.Recipients) == 0 {
		return fmt.Errorf("email: no recipients: %w", ErrNotConfigured)
	}
	msgs, err := e.messages(n)
	if err != nil {
		return err
	}
	client, err := e.dial()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msgs...); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}

func (e *Email) messages(n Notice) ([]*mail.Msg, error) {
	body, err := emailHTML(n)
	if err != nil {
		return nil, err
	}
	plain := emailPlain(n)
	subject := emailSubject(n)

	msgs := make([]*mail.Msg, 0, len(e.cfg.Recipients))
	for _, rcpt := range e.cfg.Recipients {
		m := mail.NewMsg()
		if err := m.From(e.cfg.From); err != nil {
			return nil, fmt.Errorf("email from: %w", err)
		}
		if err := m.To(rcpt); err != nil {
			return nil, fmt.Errorf("email to %q: %w", rcpt, err)
		}
		m.Subject(subject)
		m.SetDate()
		m.SetBodyString(mail.TypeTextHTML, body)
		m.AddAlternativeString(mail.TypeTextPlain, plain)
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (e *Email) smtpClient() (mailSender, error) {
	client, err := mail.NewClient(e.cfg.Host,
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		// WithTLSPortPolicy resets the port, so it must come first.
		mail.WithPort(e.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.cfg.Username),
		mail.WithPassword(e.cfg.Password),
		mail.WithTimeout(e.cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("email client: %w", err)
	}
	return client, nil
}
