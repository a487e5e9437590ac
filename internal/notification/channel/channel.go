// Package channel implements the notification senders.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/internal/providers/email"
	"github.com/smallbiznis/newsexpress/internal/providers/sms"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Email email.Provider
	SMS   sms.Provider
}

// NewSenders returns the in-app, email and sms senders.
func NewSenders(p Params) domain.Senders {
	return domain.Senders{
		NewInApp(p.DB, p.Repo, p.GenID, p.Clock),
		NewEmail(p.Email),
		NewSMS(p.SMS),
	}
}

// InApp writes the message to the recipient's inbox.
type InApp struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewInApp(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, c clock.Clock) *InApp {
	return &InApp{db: db, repo: repo, genID: genID, clock: c}
}

func (s *InApp) Channel() domain.Channel { return domain.ChannelInApp }

func (s *InApp) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	channels := make(pq.StringArray, 0, len(msg.Channels))
	for _, c := range msg.Channels {
		channels = append(channels, string(c))
	}
	metadata, err := json.Marshal(map[string]any{
		"audience":    string(msg.Audience),
		"customer_id": recipient.CustomerID.String(),
	})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return s.repo.Insert(ctx, s.db, &domain.Notification{
		ID:               s.genID.Generate(),
		UserID:           recipient.UserID,
		CampaignID:       msg.CampaignID,
		Subject:          msg.Subject,
		Message:          msg.Body,
		Type:             msg.Type,
		Channel:          domain.ChannelInApp,
		CampaignChannels: channels,
		Status:           domain.StatusSent,
		RelatedObjectID:  msg.RelatedObjectID,
		Metadata:         datatypes.JSON(metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// Email renders the notification template and hands it to the email
// provider.
type Email struct {
	provider email.Provider
}

func NewEmail(provider email.Provider) *Email {
	return &Email{provider: provider}
}

func (s *Email) Channel() domain.Channel { return domain.ChannelEmail }

func (s *Email) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	if strings.TrimSpace(recipient.Email) == "" {
		return domain.ErrNoEmail
	}
	err := s.provider.SendTemplate(ctx, []string{recipient.Email}, "notification", map[string]any{
		"subject":       msg.Subject,
		"customer_name": recipient.DisplayName,
		"message":       msg.Body,
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", recipient.Email, err)
	}
	return nil
}

// SMS passes the subject and body to the sms provider.
type SMS struct {
	provider sms.Provider
}

func NewSMS(provider sms.Provider) *SMS {
	return &SMS{provider: provider}
}

func (s *SMS) Channel() domain.Channel { return domain.ChannelSMS }

func (s *SMS) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	return s.provider.Send(ctx, recipient.Phone, msg.Subject+" - "+msg.Body)
}
