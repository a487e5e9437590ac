package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

// CreateSubscriptionRequest subscribes CustomerID to a publication.
// SelfService marks a customer subscribing for themselves, which moves the
// initial payment due date out instead of due on StartDate.
type CreateSubscriptionRequest struct {
	CustomerID      string               `json:"customer_id"`
	PublicationID   string               `json:"publication_id"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         time.Time            `json:"end_date"`
	DeliveryAddress string               `json:"delivery_address"`
	Quantity        int                  `json:"quantity"`
	PaymentPlan     PaymentPlan          `json:"payment_plan"`
	PaymentMethod   paymentdomain.Method `json:"payment_method"`
	SelfService     bool                 `json:"-"`
	RecordedBy      snowflake.ID         `json:"-"`
}

type CreateSubscriptionResponse struct {
	Subscription   *Subscription          `json:"subscription"`
	InitialPayment *paymentdomain.Payment `json:"initial_payment,omitempty"`
}

type GetSubscriptionRequest struct {
	ID         string
	CustomerID snowflake.ID
}

type ListSubscriptionRequest struct {
	pagination.Pagination
	CustomerID    string      `form:"customer_id"`
	PublicationID string      `form:"publication_id"`
	Status        Status      `form:"status"`
	PauseStatus   PauseStatus `form:"pause_status"`
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []Subscription `json:"subscriptions"`
}

type RequestPauseRequest struct {
	ID         string
	CustomerID snowflake.ID
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	Reason     PauseReason `json:"reason"`
	Notes      string      `json:"notes"`
}

type ProcessPauseRequest struct {
	ID          string
	ProcessorID snowflake.ID
}

type ChangeStatusRequest struct {
	ID         string
	Status     Status `json:"status"`
	CustomerID snowflake.ID
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (CreateSubscriptionResponse, error)
	Get(ctx context.Context, req GetSubscriptionRequest) (*Subscription, error)
	List(ctx context.Context, req ListSubscriptionRequest) (ListSubscriptionResponse, error)
	ListPendingPauses(ctx context.Context, page pagination.Pagination) (ListSubscriptionResponse, error)

	RequestPause(ctx context.Context, req RequestPauseRequest) (*Subscription, error)
	ApprovePause(ctx context.Context, req ProcessPauseRequest) (*Subscription, error)
	RejectPause(ctx context.Context, req ProcessPauseRequest) (*Subscription, error)
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*Subscription, error)

	// ExpireEnded expires active or paused subscriptions that ended before today.
	ExpireEnded(ctx context.Context, today time.Time) (int64, error)
	// ResumeFinishedPauses reactivates subscriptions whose approved pause
	// ended on or before today.
	ResumeFinishedPauses(ctx context.Context, today time.Time) (int64, error)
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidCustomerID      = errors.New("invalid_customer_id")
	ErrInvalidPublicationID   = errors.New("invalid_publication_id")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidAddress         = errors.New("invalid_delivery_address")
	ErrInvalidPaymentPlan     = errors.New("invalid_payment_plan")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidPauseStatus     = errors.New("invalid_pause_status")
	ErrInvalidPauseReason     = errors.New("invalid_pause_reason")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
	ErrPauseStartNotFuture    = errors.New("pause_start_not_in_future")
	ErrInvalidPauseWindow     = errors.New("invalid_pause_window")
	ErrPauseTooShort          = errors.New("pause_too_short")
	ErrPauseTooLong           = errors.New("pause_too_long")
	ErrPauseAfterEnd          = errors.New("pause_after_subscription_end")
	ErrPauseAlreadyPending    = errors.New("pause_already_pending")
	ErrSubscriptionNotActive  = errors.New("subscription_not_active")
	ErrPublicationUnavailable = errors.New("publication_unavailable")
	ErrCustomerInactive       = errors.New("customer_inactive")
	ErrCustomerNotFound       = errors.New("customer_not_found")
	ErrPauseNotPending        = errors.New("pause_not_pending")
	ErrNotFound               = errors.New("not_found")
)
