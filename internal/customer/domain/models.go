package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a subscriber account. Email and DisplayName come from the
// owning user and ActiveSubscriptionCount is computed when the row is read.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex" json:"user_id"`
	Address   string       `gorm:"not null" json:"address"`
	Phone     string       `gorm:"not null" json:"phone"`
	IsActive  bool         `gorm:"not null" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`

	Email                   string `gorm:"->;-:migration" json:"email"`
	DisplayName             string `gorm:"->;-:migration" json:"display_name"`
	ActiveSubscriptionCount int64  `gorm:"->;-:migration" json:"active_subscription_count"`
}

func (Customer) TableName() string { return "customers" }

type ListFilter struct {
	Query    string
	IsActive *bool
	Cursor   *Cursor
	Limit    int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
