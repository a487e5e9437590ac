package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const DefaultSubject = "NewsExpress Notification"

type Type string

const (
	TypePaymentReminder Type = "payment_reminder"
	TypeRenewal         Type = "renewal"
	TypeStatusUpdate    Type = "status_update"
	TypeDeliveryUpdate  Type = "delivery_update"
	TypeGeneral         Type = "general"
)

func (t Type) Valid() bool {
	switch t {
	case TypePaymentReminder, TypeRenewal, TypeStatusUpdate, TypeDeliveryUpdate, TypeGeneral:
		return true
	}
	return false
}

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelAll   Channel = "all"
)

// ExpandChannels resolves "all", drops duplicates and keeps request order.
func ExpandChannels(requested []Channel) ([]Channel, error) {
	seen := make(map[Channel]bool, 3)
	out := make([]Channel, 0, 3)
	add := func(c Channel) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range requested {
		switch c {
		case ChannelAll:
			add(ChannelInApp)
			add(ChannelEmail)
			add(ChannelSMS)
		case ChannelInApp, ChannelEmail, ChannelSMS:
			add(c)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidChannel
	}
	return out, nil
}

type Status string

const (
	StatusDraft  Status = "draft"
	StatusSent   Status = "sent"
	StatusRead   Status = "read"
	StatusFailed Status = "failed"
)

type Audience string

const (
	AudienceAllCustomers          Audience = "all_customers"
	AudienceOverduePayments       Audience = "overdue_payments"
	AudienceExpiringSubscriptions Audience = "expiring_subscriptions"
	AudienceSpecificCustomers     Audience = "specific_customers"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceAllCustomers, AudienceOverduePayments, AudienceExpiringSubscriptions, AudienceSpecificCustomers:
		return true
	}
	return false
}

// Notification is an in-app inbox entry.
type Notification struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID   `gorm:"not null;index" json:"user_id"`
	CampaignID       string         `gorm:"not null;index" json:"campaign_id"`
	Subject          string         `gorm:"not null" json:"subject"`
	Message          string         `gorm:"not null" json:"message"`
	Type             Type           `gorm:"not null" json:"type"`
	Channel          Channel        `gorm:"not null" json:"channel"`
	CampaignChannels pq.StringArray `gorm:"type:text[]" json:"campaign_channels"`
	Status           Status         `gorm:"not null" json:"status"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	RelatedObjectID  *string        `json:"related_object_id,omitempty"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

// Recipient is a customer resolved from an audience with the contact
// details each channel needs.
type Recipient struct {
	CustomerID  snowflake.ID
	UserID      snowflake.ID
	DisplayName string
	Email       string
	Phone       string
}

// Message is one campaign's content as handed to every sender.
type Message struct {
	CampaignID      string
	Type            Type
	Subject         string
	Body            string
	Channels        []Channel
	RelatedObjectID *string
	Audience        Audience
}

type RecipientFilter struct {
	Audience    Audience
	CustomerIDs []snowflake.ID
	Today       time.Time
	WindowEnd   time.Time
}

type ListFilter struct {
	UserID     snowflake.ID
	UnreadOnly bool
	Cursor     *Cursor
	Limit      int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
