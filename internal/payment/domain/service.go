package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"gorm.io/gorm"
)

// RecordPaymentRequest creates a payment. Collected marks money already
// received by staff; otherwise the payment starts pending. CustomerID, when
// set, restricts the subscription to that customer.
type RecordPaymentRequest struct {
	SubscriptionID string       `json:"subscription_id"`
	Amount         int64        `json:"amount"`
	Method         Method       `json:"method"`
	DueDate        *time.Time   `json:"due_date"`
	Collected      bool         `json:"-"`
	RecordedBy     snowflake.ID `json:"-"`
	CustomerID     snowflake.ID `json:"-"`
}

type GetPaymentRequest struct {
	ID         string
	CustomerID snowflake.ID
}

type ListPaymentRequest struct {
	pagination.Pagination
	SubscriptionID string `form:"subscription_id"`
	CustomerID     string `form:"customer_id"`
	Status         Status `form:"status"`
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type PayRequest struct {
	ID         string
	Method     Method `json:"method"`
	CustomerID snowflake.ID
}

type Service interface {
	// Record inserts with tx when given so it can join a caller's transaction.
	Record(ctx context.Context, tx *gorm.DB, req RecordPaymentRequest) (*Payment, error)
	Get(ctx context.Context, req GetPaymentRequest) (*Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	Pay(ctx context.Context, req PayRequest) (*Payment, error)
	MarkFailed(ctx context.Context, id string) (*Payment, error)
	// MarkOverdue moves every pending payment due before today to overdue.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	Receipt(ctx context.Context, req GetPaymentRequest) (*Receipt, error)
}

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidSubscriptionID = errors.New("invalid_subscription_id")
	ErrInvalidCustomerID     = errors.New("invalid_customer_id")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidMethod         = errors.New("invalid_method")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrNotFound              = errors.New("not_found")
)
