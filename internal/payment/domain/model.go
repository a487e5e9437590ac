package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash   Method = "cash"
	MethodCheque Method = "cheque"
)

func (m Method) Valid() bool {
	return m == MethodCash || m == MethodCheque
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusOverdue   Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusOverdue:
		return true
	}
	return false
}

// Payment is money owed or collected for a subscription. Amount is in cents.
type Payment struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID  `gorm:"not null;index" json:"subscription_id"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Method         Method        `gorm:"not null" json:"method"`
	Status         Status        `gorm:"not null" json:"status"`
	PaymentDate    *time.Time    `gorm:"type:date" json:"payment_date,omitempty"`
	DueDate        time.Time     `gorm:"type:date;not null" json:"due_date"`
	ReceiptNumber  string        `gorm:"not null;uniqueIndex" json:"receipt_number"`
	RecordedBy     *snowflake.ID `json:"recorded_by,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`

	CustomerID snowflake.ID `gorm:"->;-:migration" json:"customer_id"`
}

func (Payment) TableName() string { return "payments" }

// PastDue reports whether a pending payment has passed its due date.
func (p Payment) PastDue(today time.Time) bool {
	return p.Status == StatusPending && p.DueDate.Before(today)
}

// EffectiveStatus is the status a reader should see on today.
func (p Payment) EffectiveStatus(today time.Time) Status {
	if p.PastDue(today) {
		return StatusOverdue
	}
	return p.Status
}

// ReceiptNumberFor derives the receipt number from a payment id.
func ReceiptNumberFor(id snowflake.ID) string {
	return "RCP" + strings.ToUpper(id.Base36())
}

// SubscriptionRef is the part of a subscription payments need.
type SubscriptionRef struct {
	ID         snowflake.ID
	CustomerID snowflake.ID
	Status     string
}

// Receipt carries what a printed receipt shows.
type Receipt struct {
	PaymentID        snowflake.ID `json:"payment_id"`
	ReceiptNumber    string       `json:"receipt_number"`
	CustomerID       snowflake.ID `json:"customer_id"`
	CustomerName     string       `json:"customer_name"`
	CustomerEmail    string       `json:"customer_email"`
	PublicationTitle string       `json:"publication_title"`
	Amount           int64        `json:"amount"`
	Method           Method       `json:"method"`
	Status           Status       `json:"status"`
	PaymentDate      *time.Time   `json:"payment_date,omitempty"`
	DueDate          time.Time    `json:"due_date"`
}

type ListFilter struct {
	SubscriptionID snowflake.ID
	CustomerID     snowflake.ID
	Status         Status
	Today          time.Time
	Cursor         *Cursor
	Limit          int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
