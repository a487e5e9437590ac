package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// transitions lists the moves UpdateStatus allows. Resolving goes through
// Resolve so the resolver and notes are recorded.
var transitions = map[Status]Status{
	StatusOpen:     StatusInProgress,
	StatusResolved: StatusClosed,
}

func (s Status) CanMoveTo(next Status) bool {
	return transitions[s] == next && next != ""
}

type Complaint struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID  `gorm:"not null" json:"customer_id"`
	Subject         string        `gorm:"not null" json:"subject"`
	Description     string        `gorm:"not null" json:"description"`
	Status          Status        `gorm:"not null" json:"status"`
	ResolvedBy      *snowflake.ID `json:"resolved_by,omitempty"`
	ResolutionNotes string        `gorm:"not null" json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`

	CustomerName string `gorm:"->;-:migration" json:"customer_name"`
}

func (Complaint) TableName() string { return "complaints" }

type ListFilter struct {
	CustomerID snowflake.ID
	Status     Status
	Cursor     *Cursor
	Limit      int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
