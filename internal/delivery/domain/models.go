package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusDelayed   Status = "delayed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSkipped, StatusDelayed, StatusFailed:
		return true
	}
	return false
}

// Delivery is one drop of a subscription on a given day. There is at most
// one per subscription and date.
type Delivery struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	SubscriptionID   snowflake.ID  `gorm:"not null" json:"subscription_id"`
	DeliveryPersonID *snowflake.ID `json:"delivery_person_id,omitempty"`
	DeliveryDate     time.Time     `gorm:"type:date;not null" json:"delivery_date"`
	Status           Status        `gorm:"not null" json:"status"`
	DeliveredAt      *time.Time    `json:"delivered_at,omitempty"`
	Notes            string        `gorm:"not null" json:"notes,omitempty"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`

	CustomerID         snowflake.ID `gorm:"->;-:migration" json:"customer_id"`
	DeliveryAddress    string       `gorm:"->;-:migration" json:"delivery_address"`
	Quantity           int          `gorm:"->;-:migration" json:"quantity"`
	PublicationTitle   string       `gorm:"->;-:migration" json:"publication_title"`
	DeliveryPersonName string       `gorm:"->;-:migration" json:"delivery_person_name,omitempty"`
}

func (Delivery) TableName() string { return "deliveries" }

type IssueType string

const (
	IssueWrongAddress        IssueType = "wrong_address"
	IssueCustomerUnavailable IssueType = "customer_unavailable"
	IssueDamagedCopy         IssueType = "damaged_copy"
	IssueDeliveryIssue       IssueType = "delivery_issue"
	IssueOther               IssueType = "other"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueWrongAddress, IssueCustomerUnavailable, IssueDamagedCopy, IssueDeliveryIssue, IssueOther:
		return true
	}
	return false
}

type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case IssueOpen, IssueInProgress, IssueResolved, IssueClosed:
		return true
	}
	return false
}

// IssueReport is a problem a delivery person raised about a delivery. It
// never changes the delivery's own status.
type IssueReport struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	DeliveryID      snowflake.ID `gorm:"not null" json:"delivery_id"`
	ReportedBy      snowflake.ID `gorm:"not null" json:"reported_by"`
	IssueType       IssueType    `gorm:"not null" json:"issue_type"`
	Description     string       `gorm:"not null" json:"description"`
	Status          IssueStatus  `gorm:"not null" json:"status"`
	ResolutionNotes string       `gorm:"not null" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`

	DeliveryDate time.Time `gorm:"->;-:migration" json:"delivery_date"`
	ReporterName string    `gorm:"->;-:migration" json:"reporter_name"`
}

func (IssueReport) TableName() string { return "issue_reports" }

// Workload counts one delivery person's deliveries for a day.
type Workload struct {
	DeliveryPersonID snowflake.ID `json:"delivery_person_id"`
	DisplayName      string       `json:"display_name"`
	Zone             string       `json:"zone"`
	Total            int64        `json:"total"`
	Completed        int64        `json:"completed"`
	Pending          int64        `json:"pending"`
}

// SubscriptionRef is what scheduling needs to know about a subscription.
type SubscriptionRef struct {
	ID     snowflake.ID
	Status string
}

type ListFilter struct {
	DeliveryPersonID snowflake.ID
	CustomerID       snowflake.ID
	Date             *time.Time
	Status           Status
	Unassigned       bool
	Cursor           *Cursor
	Limit            int
}

type IssueFilter struct {
	Status     IssueStatus
	ReportedBy snowflake.ID
	Cursor     *Cursor
	Limit      int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
