package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeNewspaper Type = "newspaper"
	TypeMagazine  Type = "magazine"
)

func (t Type) Valid() bool {
	return t == TypeNewspaper || t == TypeMagazine
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Publication is a title the agency sells. MonthlyPrice is in cents.
type Publication struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	Slug         string       `gorm:"not null;uniqueIndex" json:"slug"`
	Type         Type         `gorm:"not null" json:"type"`
	MonthlyPrice int64        `gorm:"not null" json:"monthly_price"`
	Frequency    Frequency    `gorm:"not null" json:"frequency"`
	Publisher    string       `gorm:"not null" json:"publisher"`
	Description  string       `gorm:"not null" json:"description"`
	ImageURL     string       `gorm:"column:image_url;not null" json:"image_url"`
	IsAvailable  bool         `gorm:"not null" json:"is_available"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (Publication) TableName() string { return "publications" }

type ListFilter struct {
	AvailableOnly bool
	Type          Type
	Query         string
	Cursor        *Cursor
	Limit         int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
