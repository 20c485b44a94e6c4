package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"staffdesk/internal/config"
)

// ErrMailDisabled is returned by Send when no SMTP host is configured.
var ErrMailDisabled = errors.New("mailer: SMTP not configured")

// Mailer sends plain-text notification mails through an SMTP relay.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send:     func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (m *Mailer) Enabled() bool { return m.host != "" }

func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return ErrMailDisabled
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := m.send(e, m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
