package pdf

import (
	"context"

	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider renders printable documents.
type Provider interface {
	Receipt(ctx context.Context, receipt paymentdomain.Receipt) ([]byte, error)
	Table(ctx context.Context, table reportdomain.Table) ([]byte, error)
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}
