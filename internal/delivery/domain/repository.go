package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns 0 when a delivery already exists for the same
	// subscription and date.
	Insert(ctx context.Context, db *gorm.DB, delivery *Delivery) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Delivery, error)
	FindSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SubscriptionRef, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Delivery, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	Workload(ctx context.Context, db *gorm.DB, date time.Time) ([]Workload, error)

	InsertIssue(ctx context.Context, db *gorm.DB, issue *IssueReport) error
	FindIssueByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*IssueReport, error)
	ListIssues(ctx context.Context, db *gorm.DB, filter IssueFilter) ([]*IssueReport, error)
	UpdateIssue(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error)
}
