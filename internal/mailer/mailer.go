package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Options — настройки SMTP-доставки.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Mailer шлёт письма по SMTP через go-mail.
type Mailer struct{ opts Options }

func New(opts Options) (*Mailer, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if opts.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &Mailer{opts: opts}, nil
}

// SendMagicLink отправляет письмо со ссылкой для входа.
func (m *Mailer) SendMagicLink(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`Sign in to your account

Click the link below to securely sign in to your account. This link will expire in 15 minutes.

%s

If you didn't request this email, you can safely ignore it.
`, link)

	return m.send(ctx, to, "Sign in to your account", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if m.opts.FromName != "" {
		if err := msg.FromFormat(m.opts.FromName, m.opts.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(m.opts.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(m.opts.Port)}
	if m.opts.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// 465 — implicit TLS, остальные порты — STARTTLS
		if m.opts.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.opts.Username != "" && m.opts.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password),
		)
	}

	client, err := mail.NewClient(m.opts.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
