package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type CreateDeliveryRequest struct {
	SubscriptionID   string    `json:"subscription_id"`
	DeliveryPersonID string    `json:"delivery_person_id"`
	DeliveryDate     time.Time `json:"delivery_date"`
	Notes            string    `json:"notes"`
}

type BulkCreateRequest struct {
	SubscriptionIDs  []string  `json:"subscription_ids"`
	DeliveryPersonID string    `json:"delivery_person_id"`
	DeliveryDate     time.Time `json:"delivery_date"`
}

type BulkCreateResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type AssignRequest struct {
	ID               string
	DeliveryPersonID string     `json:"delivery_person_id"`
	DeliveryDate     *time.Time `json:"delivery_date"`
}

// MarkDeliveredRequest completes a delivery. A non-zero DeliveryPersonID
// restricts it to that person's own deliveries.
type MarkDeliveredRequest struct {
	ID               string
	DeliveryPersonID snowflake.ID
}

type UpdateStatusRequest struct {
	ID     string
	Status Status `json:"status"`
	Notes  string `json:"notes"`
}

type ListDeliveryRequest struct {
	pagination.Pagination
	DeliveryPersonID string     `form:"delivery_person_id"`
	Date             *time.Time `form:"date" time_format:"2006-01-02"`
	Status           Status     `form:"status"`
	Unassigned       bool       `form:"unassigned"`
	CustomerID       snowflake.ID
}

type ListDeliveryResponse struct {
	pagination.PageInfo
	Deliveries []Delivery `json:"deliveries"`
}

type ReportIssueRequest struct {
	DeliveryID  string
	ReporterID  snowflake.ID
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
}

type UpdateIssueStatusRequest struct {
	ID              string
	Status          IssueStatus `json:"status"`
	ResolutionNotes string      `json:"resolution_notes"`
}

type ListIssueRequest struct {
	pagination.Pagination
	Status     IssueStatus `form:"status"`
	ReportedBy string      `form:"reported_by"`
}

type ListIssueResponse struct {
	pagination.PageInfo
	Issues []IssueReport `json:"issues"`
}

type Service interface {
	Create(ctx context.Context, req CreateDeliveryRequest) (*Delivery, error)
	BulkCreate(ctx context.Context, req BulkCreateRequest) (BulkCreateResponse, error)
	Get(ctx context.Context, id string) (*Delivery, error)
	List(ctx context.Context, req ListDeliveryRequest) (ListDeliveryResponse, error)
	Assign(ctx context.Context, req AssignRequest) (*Delivery, error)
	MarkDelivered(ctx context.Context, req MarkDeliveredRequest) (*Delivery, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Delivery, error)
	Delete(ctx context.Context, id string) error
	Workload(ctx context.Context, date time.Time) ([]Workload, error)

	ReportIssue(ctx context.Context, req ReportIssueRequest) (*IssueReport, error)
	UpdateIssueStatus(ctx context.Context, req UpdateIssueStatusRequest) (*IssueReport, error)
	ListIssues(ctx context.Context, req ListIssueRequest) (ListIssueResponse, error)
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidSubscriptionID   = errors.New("invalid_subscription_id")
	ErrInvalidDeliveryPersonID = errors.New("invalid_delivery_person_id")
	ErrInvalidDeliveryDate     = errors.New("invalid_delivery_date")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidIssueType        = errors.New("invalid_issue_type")
	ErrInvalidIssueStatus      = errors.New("invalid_issue_status")
	ErrInvalidDescription      = errors.New("invalid_description")
	ErrInvalidPageToken        = errors.New("invalid_page_token")
	ErrSubscriptionNotActive   = errors.New("subscription_not_active")
	ErrSubscriptionNotFound    = errors.New("subscription_not_found")
	ErrAlreadyScheduled        = errors.New("delivery_already_scheduled")
	ErrIssueNotFound           = errors.New("issue_not_found")
	ErrNotFound                = errors.New("not_found")
)
