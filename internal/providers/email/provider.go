package email

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the disabled provider for every message.
var ErrNotConfigured = errors.New("email: smtp not configured")

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// DisabledProvider rejects every message. It is used when no SMTP host is
// configured so that email delivery shows up as failed.
type DisabledProvider struct{}

func (p *DisabledProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return ErrNotConfigured
}

func (p *DisabledProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	return ErrNotConfigured
}
