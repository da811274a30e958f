package auth

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// SMTPConfig carries the relay settings for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers lifecycle email over SMTP. Bodies are rendered from the
// embedded django templates under views/emails.
type Mailer struct {
	cfg    SMTPConfig
	engine *django.Engine
	logger Logger
}

var _ Notifier = (*Mailer)(nil)

// NewMailer builds a Mailer and loads the embedded templates once.
func NewMailer(cfg SMTPConfig, logger Logger) (*Mailer, error) {
	if logger == nil {
		logger = defLogger{}
	}

	sub, err := fs.Sub(GetViewsFS(), "views/emails")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open email templates")
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Mailer{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}, nil
}

// SendVerificationCode emails a registration code.
func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	body, err := m.render("verification_code", map[string]any{
		"code":        code,
		"ttl_minutes": int(VerificationCodeTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Your verification code", body)
}

// SendPasswordReset emails a single-use reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	body, err := m.render("password_reset", map[string]any{
		"name":        name,
		"reset_url":   resetURL,
		"ttl_minutes": int(PasswordResetTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Reset your password", body)
}

func (m *Mailer) render(template string, binding map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := m.engine.Render(&buf, template, binding); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": template})
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to reach SMTP relay")
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to start SMTP session")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to negotiate STARTTLS")
		}
	}

	if m.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP authentication failed")
			}
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP relay rejected sender")
	}
	if err := client.Rcpt(to); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP relay rejected recipient")
	}

	w, err := client.Data()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open SMTP data stream")
	}

	msg := buildMIMEMessage(m.cfg.From, to, subject, htmlBody)
	if _, err := w.Write([]byte(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to write SMTP message")
	}
	if err := w.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to finish SMTP message")
	}

	return client.Quit()
}

func buildMIMEMessage(from, to, subject, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.String()
}
