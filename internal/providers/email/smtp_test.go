package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendTemplateRendersAndEscapes(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "desk@newsexpress.local"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	p.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"reader@example.com"}, "notification", map[string]any{
		"subject":       "Payment due",
		"customer_name": "Ada <Reader>",
		"message":       "Your payment is due.",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"reader@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Payment due\r\n")
	assert.Contains(t, gotMsg, "Ada &lt;Reader&gt;")
	assert.Contains(t, gotMsg, "Your payment is due.")
}

func TestSendRequiresRecipient(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25})
	assert.ErrorIs(t, p.Send(context.Background(), nil, "s", "b"), ErrNoRecipients)
}

func TestSendKeepsSubjectOnOneHeaderLine(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25, From: "desk@newsexpress.local"})

	var gotMsg string
	p.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}

	err := p.Send(context.Background(), []string{"reader@example.com"}, "Hello\r\nBcc: victim@example.com", "<p>hi</p>")
	require.NoError(t, err)
	assert.Contains(t, gotMsg, "Subject: Hello Bcc: victim@example.com\r\n")
	assert.NotContains(t, gotMsg, "\r\nBcc:")

	require.NoError(t, p.Send(context.Background(), []string{"reader@example.com"}, "Tagihan bulan Mei é", "<p>hi</p>"))
	assert.Contains(t, gotMsg, "Subject: =?UTF-8?q?")
}

func TestNewFromConfigWithoutHostRejectsEveryMessage(t *testing.T) {
	p := NewFromConfig(config.Config{}, zap.NewNop())

	assert.ErrorIs(t, p.Send(context.Background(), []string{"reader@example.com"}, "s", "b"), ErrNotConfigured)
	assert.ErrorIs(t, p.SendTemplate(context.Background(), []string{"reader@example.com"}, "notification", nil), ErrNotConfigured)
}
