package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPaid:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusApproved:
		return 1
	case StatusPaid:
		return 2
	}
	return -1
}

// CanMoveTo reports whether a commission in s may move to next. Statuses
// only move forward.
func (s Status) CanMoveTo(next Status) bool {
	return s.Valid() && next.Valid() && next.rank() > s.rank()
}

// Commission is what a delivery person earned over one period. Its figures
// are fixed when it is generated.
type Commission struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	DeliveryPersonID snowflake.ID `gorm:"not null" json:"delivery_person_id"`
	PeriodStart      time.Time    `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd        time.Time    `gorm:"type:date;not null" json:"period_end"`
	TotalDeliveries  int64        `gorm:"not null" json:"total_deliveries"`
	TotalCollections int64        `gorm:"not null" json:"total_collections"`
	RateBps          int64        `gorm:"not null" json:"rate_bps"`
	Amount           int64        `gorm:"not null" json:"amount"`
	Status           Status       `gorm:"not null" json:"status"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`

	DeliveryPersonName string `gorm:"->;-:migration" json:"delivery_person_name"`
}

func (Commission) TableName() string { return "commissions" }

// Amount applies rateBps to collections, rounding half up to the cent.
func Amount(collections, rateBps int64) int64 {
	return (collections*rateBps + 5000) / 10000
}

// Tally is one delivery person's completed work in a period.
type Tally struct {
	DeliveryPersonID snowflake.ID
	TotalDeliveries  int64
	TotalCollections int64
}

type ListFilter struct {
	DeliveryPersonID snowflake.ID
	Status           Status
	Cursor           *Cursor
	Limit            int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
