package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"valuescout/config"

	"github.com/wneessen/go-mail"
)

// ErrMailDisabled is returned when no SMTP credentials are configured
var ErrMailDisabled = errors.New("email not configured")

// Mailer delivers one HTML message
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends through an authenticated SMTP server
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

// NewMailer returns an SMTP mailer, or a no-op one when credentials are missing
func NewMailer(cfg config.MailConfig) Mailer {
	if !cfg.IsValid() {
		return &NoopMailer{}
	}
	return NewSMTPMailer(cfg)
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(m.cfg.Timeout),
	}
	if m.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// NoopMailer refuses every message with ErrMailDisabled. Used when EMAIL_USER/EMAIL_PASSWORD are not set.
type NoopMailer struct {
	once sync.Once
}

func (m *NoopMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.once.Do(func() {
		log.Printf("⚠️ Email not configured (EMAIL_USER/EMAIL_PASSWORD missing), skipping email send")
	})
	return ErrMailDisabled
}
