package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type GenerateRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

type GenerateResponse struct {
	Created []Commission `json:"created"`
	// Skipped counts people whose commission for the period already existed.
	Skipped int `json:"skipped"`
}

type GetCommissionRequest struct {
	ID               string
	DeliveryPersonID snowflake.ID
}

type ListCommissionRequest struct {
	pagination.Pagination
	DeliveryPersonID string `form:"delivery_person_id"`
	Status           Status `form:"status"`
}

type ListCommissionResponse struct {
	pagination.PageInfo
	Commissions []Commission `json:"commissions"`
}

type UpdateStatusRequest struct {
	ID     string
	Status Status `json:"status"`
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Get(ctx context.Context, req GetCommissionRequest) (*Commission, error)
	List(ctx context.Context, req ListCommissionRequest) (ListCommissionResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Commission, error)
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidDeliveryPersonID = errors.New("invalid_delivery_person_id")
	ErrInvalidPeriod           = errors.New("invalid_period")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrInvalidPageToken        = errors.New("invalid_page_token")
	ErrNotFound                = errors.New("not_found")
)
