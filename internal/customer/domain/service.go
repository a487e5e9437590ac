package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type RegisterCustomerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type ListCustomerRequest struct {
	pagination.Pagination
	Query    string `form:"q"`
	IsActive *bool  `form:"is_active"`
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// UpdateCustomerRequest changes contact details. Nil fields are left alone.
type UpdateCustomerRequest struct {
	ID      string
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type Service interface {
	Register(ctx context.Context, req RegisterCustomerRequest) (*Customer, error)
	Get(ctx context.Context, id string) (*Customer, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (*Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (*Customer, error)
	SetActive(ctx context.Context, id string, active bool) (*Customer, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
)
