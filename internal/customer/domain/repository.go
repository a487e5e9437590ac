package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Customer, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error)
}
