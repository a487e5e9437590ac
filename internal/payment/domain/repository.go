package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SubscriptionRef, error)
	FindReceipt(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Receipt, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payment, error)
	// UpdateStatus writes fields only while the row still holds one of from.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, fields map[string]any) (int64, error)
	MarkOverdue(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error)
}
