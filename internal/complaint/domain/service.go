package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type SubmitComplaintRequest struct {
	CustomerID  snowflake.ID
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type ResolveComplaintRequest struct {
	ID              string
	ResolverID      snowflake.ID
	ResolutionNotes string `json:"resolution_notes"`
}

type UpdateStatusRequest struct {
	ID     string
	Status Status `json:"status"`
}

type GetComplaintRequest struct {
	ID         string
	CustomerID snowflake.ID
}

type ListComplaintRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	Status     Status `form:"status"`
}

type ListComplaintResponse struct {
	pagination.PageInfo
	Complaints []Complaint `json:"complaints"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitComplaintRequest) (*Complaint, error)
	Get(ctx context.Context, req GetComplaintRequest) (*Complaint, error)
	List(ctx context.Context, req ListComplaintRequest) (ListComplaintResponse, error)
	Resolve(ctx context.Context, req ResolveComplaintRequest) (*Complaint, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Complaint, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidCustomerID  = errors.New("invalid_customer_id")
	ErrInvalidSubject     = errors.New("invalid_subject")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	// ErrNotResolvable covers both a missing complaint and one that was
	// already resolved or closed.
	ErrNotResolvable = errors.New("not_found_or_already_resolved")
	ErrNotFound      = errors.New("not_found")
)
