package infra

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/config"
)

func TestMailer_Disabled(t *testing.T) {
	m := NewMailer(&config.Config{})
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send("a@x.com", "hi", "body"), ErrMailDisabled)
}

func TestMailer_Send(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "smtp.local", SMTPPort: 2525, SMTPUser: "bot@x.com"})

	var got *email.Email
	var gotAddr string
	m.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		got, gotAddr = e, addr
		return nil
	}

	require.NoError(t, m.Send("ann@x.com", "Welcome", "hello"))
	assert.Equal(t, "smtp.local:2525", gotAddr)
	assert.Equal(t, "bot@x.com", got.From)
	assert.Equal(t, []string{"ann@x.com"}, got.To)
	assert.Equal(t, "hello", string(got.Text))

	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("421 busy") }
	assert.ErrorContains(t, m.Send("ann@x.com", "Welcome", "hello"), "421 busy")
}
