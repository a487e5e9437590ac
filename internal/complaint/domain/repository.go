package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, complaint *Complaint) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Complaint, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Complaint, error)
	// Resolve only touches a complaint still in one of from.
	Resolve(ctx context.Context, db *gorm.DB, complaint *Complaint, from []Status) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, complaint *Complaint, from Status) (int64, error)
}
