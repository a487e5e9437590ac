// Package sms holds the text message provider. There is no carrier
// integration; messages are written to the log.
package sms

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewLogProvider),
)

type Provider interface {
	Send(ctx context.Context, phone string, text string) error
}

type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) Provider {
	return &LogProvider{log: log.Named("providers.sms")}
}

// Send never fails.
func (p *LogProvider) Send(ctx context.Context, phone string, text string) error {
	p.log.Info("sms dispatched",
		zap.String("phone", phone),
		zap.Int("length", len(text)),
	)
	return nil
}
