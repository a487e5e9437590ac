package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns 0 when the person already has a commission for the
	// same period.
	Insert(ctx context.Context, db *gorm.DB, commission *Commission) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Commission, error)
	// Tally sums completed deliveries dated within [start, end] per person.
	Tally(ctx context.Context, db *gorm.DB, start, end time.Time) ([]Tally, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (int64, error)
}
