package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"staffdesk/internal/infra"
)

// WelcomeEmailPayload is the job payload on QueueEmail.
type WelcomeEmailPayload struct {
	ToEmail  string `json:"to_email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Sender is satisfied by *infra.Mailer.
type Sender interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// EmailWorker delivers welcome mails through the SMTP circuit breaker.
type EmailWorker struct {
	mailer  Sender
	breaker *infra.CircuitBreaker
}

func NewEmailWorker(mailer Sender, breaker *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, breaker: breaker}
}

// HandleWelcome is a Handler for JobWelcomeEmail.
func (w *EmailWorker) HandleWelcome(_ context.Context, raw json.RawMessage) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// retrying cannot fix a bad payload
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if p.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Enabled() {
		log.Debug().Str("to", p.ToEmail).Msg("email_worker: SMTP not configured, skipping")
		return nil
	}

	subject := "Welcome to staffdesk"
	body := fmt.Sprintf("Hello %s,\n\nyour account %q is ready. Sign in with %s.\n", p.Name, p.Username, p.ToEmail)
	err := w.breaker.Do(func() error { return w.mailer.Send(p.ToEmail, subject, body) })
	if errors.Is(err, infra.ErrBreakerOpen) {
		log.Warn().Str("to", p.ToEmail).Msg("email_worker: SMTP breaker open")
	}
	if err != nil {
		return err
	}
	log.Info().Str("to", p.ToEmail).Msg("email_worker: welcome mail sent")
	return nil
}
