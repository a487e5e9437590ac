package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
)

type SendRequest struct {
	Audience        Audience  `json:"audience"`
	CustomerIDs     []string  `json:"customer_ids"`
	Type            Type      `json:"type"`
	Subject         string    `json:"subject"`
	Message         string    `json:"message"`
	Channels        []Channel `json:"channels"`
	RelatedObjectID string    `json:"related_object_id"`
}

type ChannelResult struct {
	Channel Channel `json:"channel"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

type RecipientResult struct {
	CustomerID  snowflake.ID    `json:"customer_id"`
	DisplayName string          `json:"display_name"`
	Success     bool            `json:"success"`
	Channels    []ChannelResult `json:"channels"`
}

type SendResult struct {
	CampaignID      string            `json:"campaign_id"`
	TotalRecipients int               `json:"total_recipients"`
	Successful      int               `json:"successful"`
	Failed          int               `json:"failed"`
	Details         []RecipientResult `json:"details"`
}

type ListNotificationRequest struct {
	pagination.Pagination
	UserID     snowflake.ID
	UnreadOnly bool `form:"unread"`
}

type ListNotificationResponse struct {
	pagination.PageInfo
	UnreadCount   int64          `json:"unread_count"`
	Notifications []Notification `json:"notifications"`
}

type MarkReadRequest struct {
	ID     string
	UserID snowflake.ID
}

type Service interface {
	// Send fans a message out to every recipient of the audience over each
	// channel. Channel failures are reported in the result.
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	ListForUser(ctx context.Context, req ListNotificationRequest) (ListNotificationResponse, error)
	MarkRead(ctx context.Context, req MarkReadRequest) (*Notification, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidAudience    = errors.New("invalid_audience")
	ErrInvalidCustomerIDs = errors.New("invalid_customer_ids")
	ErrInvalidType        = errors.New("invalid_type")
	ErrInvalidChannel     = errors.New("invalid_channel")
	ErrInvalidMessage     = errors.New("invalid_message")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrSenderMissing      = errors.New("sender_not_configured")
	ErrNotFound           = errors.New("not_found")
)
