package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerRendersVerificationCode(t *testing.T) {
	m, err := NewMailer(SMTPConfig{From: "no-reply@talent.local"}, nil)
	require.NoError(t, err)

	body, err := m.render("verification_code", map[string]any{
		"code":        "042519",
		"ttl_minutes": 10,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "042519")
	assert.Contains(t, body, "10")
}

func TestMailerRendersPasswordReset(t *testing.T) {
	m, err := NewMailer(SMTPConfig{From: "no-reply@talent.local"}, nil)
	require.NoError(t, err)

	body, err := m.render("password_reset", map[string]any{
		"name":        "Reset Person",
		"reset_url":   "https://app.example.com/reset?token=abc",
		"ttl_minutes": 30,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Reset Person")
	assert.Contains(t, body, "https://app.example.com/reset?token=abc")
}

func TestMailerRendersPasswordResetWithoutName(t *testing.T) {
	m, err := NewMailer(SMTPConfig{From: "no-reply@talent.local"}, nil)
	require.NoError(t, err)

	body, err := m.render("password_reset", map[string]any{
		"name":        "",
		"reset_url":   "https://app.example.com/reset?token=abc",
		"ttl_minutes": 30,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "https://app.example.com/reset?token=abc")
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := buildMIMEMessage("from@talent.local", "to@example.com", "Hello", "<p>Hi</p>")

	assert.Contains(t, msg, "From: from@talent.local\r\n")
	assert.Contains(t, msg, "To: to@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<p>Hi</p>")
}
