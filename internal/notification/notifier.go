package notification

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/model"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailNotifier implements the Notifier interface for sending emails.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		// PlainAuth will not send credentials until the server identifies itself as a trusted one.
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailNotifier{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Recipients returns the configured To addresses.
func (n *EmailNotifier) Recipients() []string {
	var out []string
	for _, r := range strings.Split(n.cfg.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Message builds the raw HTML e-mail.
func (n *EmailNotifier) Message(subject, body string) []byte {
	return []byte("To: " + strings.Join(n.Recipients(), ", ") + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + headerValue(subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)
}

// headerValue keeps a header on one line.
func headerValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	recipients := n.Recipients()
	if n.cfg.Host == "" || len(recipients) == 0 {
		return fmt.Errorf("smtp host and recipients must be configured")
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	if err := n.send(addr, n.auth, n.cfg.From, recipients, n.Message(subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
