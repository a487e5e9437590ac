package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/clock"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Settable reports whether callers may move a subscription to s directly.
// Expiry only happens through the end-date sweep.
func (s Status) Settable() bool {
	return s == StatusActive || s == StatusPaused || s == StatusCancelled
}

// PauseStatus tracks the single pause request a subscription may carry.
type PauseStatus string

const (
	PauseNoRequest PauseStatus = "no_request"
	PausePending   PauseStatus = "pending"
	PauseApproved  PauseStatus = "approved"
	PauseRejected  PauseStatus = "rejected"
)

func (p PauseStatus) Valid() bool {
	switch p {
	case PauseNoRequest, PausePending, PauseApproved, PauseRejected:
		return true
	}
	return false
}

type PauseReason string

const (
	PauseReasonVacation       PauseReason = "vacation"
	PauseReasonFinancial      PauseReason = "financial"
	PauseReasonDeliveryIssues PauseReason = "delivery_issues"
	PauseReasonOther          PauseReason = "other"
)

func (r PauseReason) Valid() bool {
	switch r {
	case PauseReasonVacation, PauseReasonFinancial, PauseReasonDeliveryIssues, PauseReasonOther:
		return true
	}
	return false
}

// PaymentPlan selects the optional payment raised when subscribing.
type PaymentPlan string

const (
	PlanNone      PaymentPlan = ""
	PlanMonthly   PaymentPlan = "monthly"
	PlanQuarterly PaymentPlan = "quarterly"
	PlanYearly    PaymentPlan = "yearly"
)

// Months is the number of months the plan bills for, or 0 when unknown.
func (p PaymentPlan) Months() int64 {
	switch p {
	case PlanMonthly:
		return 1
	case PlanQuarterly:
		return 3
	case PlanYearly:
		return 12
	}
	return 0
}

// Subscription delivers Quantity copies of a publication to a customer
// between StartDate and EndDate.
//
// A pending pause implies Status is active. An approved pause implies Status
// is paused and both pause dates are set.
type Subscription struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID       snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	PublicationID    snowflake.ID  `gorm:"not null;index" json:"publication_id"`
	StartDate        time.Time     `gorm:"type:date;not null" json:"start_date"`
	EndDate          time.Time     `gorm:"type:date;not null" json:"end_date"`
	DeliveryAddress  string        `gorm:"not null" json:"delivery_address"`
	Quantity         int           `gorm:"not null" json:"quantity"`
	Status           Status        `gorm:"not null" json:"status"`
	PauseStatus      PauseStatus   `gorm:"not null" json:"pause_status"`
	PauseStartDate   *time.Time    `gorm:"type:date" json:"pause_start_date,omitempty"`
	PauseEndDate     *time.Time    `gorm:"type:date" json:"pause_end_date,omitempty"`
	PauseReason      *PauseReason  `json:"pause_reason,omitempty"`
	PauseNotes       string        `gorm:"not null" json:"pause_notes,omitempty"`
	PauseRequestedAt *time.Time    `json:"pause_requested_at,omitempty"`
	PauseProcessedAt *time.Time    `json:"pause_processed_at,omitempty"`
	PauseProcessedBy *snowflake.ID `json:"pause_processed_by,omitempty"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`

	PublicationTitle string `gorm:"->;-:migration" json:"publication_title"`
	MonthlyPrice     int64  `gorm:"->;-:migration" json:"monthly_price"`
}

func (Subscription) TableName() string { return "subscriptions" }

// PauseDays is the length of the requested pause window in days.
func (s Subscription) PauseDays() int {
	if s.PauseStartDate == nil || s.PauseEndDate == nil {
		return 0
	}
	return clock.DaysBetween(*s.PauseStartDate, *s.PauseEndDate)
}

// CustomerRef is what subscribing needs to know about the customer.
type CustomerRef struct {
	ID       snowflake.ID
	Address  string
	IsActive bool
}

type ListFilter struct {
	CustomerID    snowflake.ID
	PublicationID snowflake.ID
	Status        Status
	PauseStatus   PauseStatus
	Cursor        *Cursor
	Limit         int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
