package notification

import (
	"NetProfiler/internal/config"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmailNotifier_Send(t *testing.T) {
	cfg := config.SMTPConfig{Host: "mail.local", Port: 587, From: "np@example.com", To: "a@example.com, b@example.com"}
	n := NewEmailNotifier(cfg).(*EmailNotifier)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, n.Send("Alert", "<h1>hi</h1>"))
	require.Equal(t, "mail.local:587", gotAddr)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)

	msg := string(gotMsg)
	require.True(t, strings.HasPrefix(msg, "To: a@example.com, b@example.com\r\n"))
	require.Contains(t, msg, "Subject: Alert\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\n<h1>hi</h1>"))
}

func TestEmailNotifier_Unconfigured(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{})
	require.Error(t, n.Send("Alert", "body"))
}

func TestEmailNotifier_SubjectStaysOneLine(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{From: "np@example.com", To: "a@example.com"}).(*EmailNotifier)
	msg := string(n.Message("Alert for x\r\nBcc: evil@example.com", "<p>body</p>"))
	require.NotContains(t, msg, "\r\nBcc:")
	require.Contains(t, msg, "Subject: Alert for x  Bcc: evil@example.com\r\n")
}
