package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"coachfit/internal/auth"
	"coachfit/internal/config"
	"coachfit/internal/i18n"
)

var ErrNotConfigured = errors.New("email is not configured")

// Sender delivers one-time codes over SMTP.
type Sender struct {
	cfg config.EmailConfig
}

func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) SendCode(ctx context.Context, msg auth.CodeMessage) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	if msg.Recipient.Channel != auth.ChannelEmail {
		return fmt.Errorf("email sender cannot deliver to %s", msg.Recipient.Channel)
	}

	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (s *Sender) buildMessage(msg auth.CodeMessage) (*mail.Msg, error) {
	content := i18n.CodeEmail(msg.Locale, string(msg.Purpose), msg.FirstName, msg.Code, int(msg.TTL.Minutes()))

	m := mail.NewMsg()
	if s.cfg.FromName != "" {
		if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := m.To(msg.Recipient.Value); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	m.Subject(content.Subject)
	m.SetBodyString(mail.TypeTextPlain, content.Text)
	return m, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}

	if s.cfg.Secure {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// 465 is implicit TLS, everything else upgrades with STARTTLS.
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
