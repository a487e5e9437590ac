package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CompletedPaymentsSince(ctx context.Context, db *gorm.DB, since time.Time) ([]PaymentLine, error)
	CommissionSummaries(ctx context.Context, db *gorm.DB) ([]CommissionSummary, error)
	PublicationSummaries(ctx context.Context, db *gorm.DB) ([]PublicationSummary, error)
}
