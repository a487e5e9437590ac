package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreatePublicationRequest struct {
	Title        string    `json:"title"`
	Type         Type      `json:"type"`
	MonthlyPrice int64     `json:"monthly_price"`
	Frequency    Frequency `json:"frequency"`
	Publisher    string    `json:"publisher"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	IsAvailable  *bool     `json:"is_available"`
}

type ListPublicationRequest struct {
	pagination.Pagination
	AvailableOnly bool   `form:"available"`
	Type          Type   `form:"type"`
	Query         string `form:"q"`
}

type ListPublicationResponse struct {
	pagination.PageInfo
	Publications []Publication `json:"publications"`
}

type Service interface {
	Create(ctx context.Context, req CreatePublicationRequest) (*Publication, error)
	Get(ctx context.Context, id string) (*Publication, error)
	// Lookup loads a publication with tx, or the service DB when tx is nil.
	Lookup(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Publication, error)
	List(ctx context.Context, req ListPublicationRequest) (ListPublicationResponse, error)
	SetAvailability(ctx context.Context, id string, available bool) (*Publication, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidPrice        = errors.New("invalid_monthly_price")
	ErrInvalidFrequency    = errors.New("invalid_frequency")
	ErrInvalidPublisher    = errors.New("invalid_publisher")
	ErrInvalidImageURL     = errors.New("invalid_image_url")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrPublicationInUse    = errors.New("publication_in_use")
	ErrPublicationHasUsage = errors.New("publication_has_subscriptions")
	ErrNotFound            = errors.New("not_found")
)
