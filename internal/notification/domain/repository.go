package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, notification *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Notification, error)
	CountUnread(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	// MarkRead only moves a sent notification owned by userID.
	MarkRead(ctx context.Context, db *gorm.DB, id, userID snowflake.ID, now time.Time) (int64, error)
	Recipients(ctx context.Context, db *gorm.DB, filter RecipientFilter) ([]Recipient, error)
}
