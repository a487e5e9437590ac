package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Position string

const (
	PositionClerk    Position = "clerk"
	PositionManager  Position = "manager"
	PositionDelivery Position = "delivery"
)

func (p Position) Valid() bool {
	switch p {
	case PositionClerk, PositionManager, PositionDelivery:
		return true
	}
	return false
}

// Employee is an agency staff member. Email and DisplayName are read from the
// owning user.
type Employee struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex" json:"user_id"`
	Position  Position     `gorm:"not null" json:"position"`
	Zone      string       `gorm:"not null" json:"zone"`
	Salary    int64        `gorm:"not null" json:"salary"`
	IsActive  bool         `gorm:"not null" json:"is_active"`
	HiredAt   time.Time    `gorm:"type:date;not null" json:"hired_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`

	Email       string `gorm:"->;-:migration" json:"email"`
	DisplayName string `gorm:"->;-:migration" json:"display_name"`
}

func (Employee) TableName() string { return "employees" }

type ListFilter struct {
	Position Position
	IsActive *bool
	Cursor   *Cursor
	Limit    int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
