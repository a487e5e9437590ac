package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository writes are guarded by the state they expect and return the
// number of rows changed, so zero means the precondition no longer held.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CustomerRef, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Subscription, error)

	RequestPause(ctx context.Context, db *gorm.DB, subscription *Subscription) (int64, error)
	ApprovePause(ctx context.Context, db *gorm.DB, subscription *Subscription) (int64, error)
	RejectPause(ctx context.Context, db *gorm.DB, subscription *Subscription) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, subscription *Subscription, from Status) (int64, error)

	ExpireEnded(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error)
	ResumeFinishedPauses(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error)
}
