package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/smallbiznis/newsexpress/internal/notification/channel"
	"github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/internal/notification/repository"
	"github.com/smallbiznis/newsexpress/internal/providers/email"
	"github.com/smallbiznis/newsexpress/internal/providers/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingEmail struct {
	to       []string
	template string
	data     map[string]any
	err      error
}

func (r *recordingEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return r.err
}

func (r *recordingEmail) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	r.to = to
	r.template = templateName
	r.data = data
	return r.err
}

var msg = domain.Message{
	CampaignID: "01HXCAMPAIGN",
	Type:       domain.TypePaymentReminder,
	Subject:    "Payment due",
	Body:       "Please settle your invoice.",
	Channels:   []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
	Audience:   domain.AudienceOverduePayments,
}

func TestInAppStoresInboxEntry(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	repo := repository.Provide()
	fx := dbtest.NewFixtures(t, db, now)
	userID := fx.User("inbox@example.com", "customer")

	sender := channel.NewInApp(db, repo, node, clock.NewFakeClock(now))
	assert.Equal(t, domain.ChannelInApp, sender.Channel())
	require.NoError(t, sender.Send(context.Background(), domain.Recipient{CustomerID: 42, UserID: userID}, msg))

	items, err := repo.List(context.Background(), db, domain.ListFilter{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	stored := items[0]
	assert.Equal(t, "Payment due", stored.Subject)
	assert.Equal(t, domain.StatusSent, stored.Status)
	assert.Equal(t, domain.ChannelInApp, stored.Channel)
	assert.Equal(t, []string{"in_app", "email"}, []string(stored.CampaignChannels))
	assert.JSONEq(t, `{"audience":"overdue_payments","customer_id":"42"}`, string(stored.Metadata))
}

func TestEmailRendersNotificationTemplate(t *testing.T) {
	provider := &recordingEmail{}
	sender := channel.NewEmail(provider)
	recipient := domain.Recipient{DisplayName: "Ana", Email: "ana@example.com"}

	require.NoError(t, sender.Send(context.Background(), recipient, msg))
	assert.Equal(t, []string{"ana@example.com"}, provider.to)
	assert.Equal(t, "notification", provider.template)
	assert.Equal(t, "Ana", provider.data["customer_name"])
	assert.Equal(t, msg.Body, provider.data["message"])

	assert.ErrorIs(t, sender.Send(context.Background(), domain.Recipient{}, msg), domain.ErrNoEmail)

	provider.err = errors.New("relay refused")
	assert.ErrorContains(t, sender.Send(context.Background(), recipient, msg), "relay refused")
}

func TestSMSNeverFails(t *testing.T) {
	sender := channel.NewSMS(sms.NewLogProvider(zap.NewNop()))
	assert.Equal(t, domain.ChannelSMS, sender.Channel())
	assert.NoError(t, sender.Send(context.Background(), domain.Recipient{}, msg))
}

func TestEmailFailsWhenSMTPIsNotConfigured(t *testing.T) {
	sender := channel.NewEmail(email.NewFromConfig(config.Config{}, zap.NewNop()))
	recipient := domain.Recipient{DisplayName: "Ana", Email: "ana@example.com"}

	assert.ErrorIs(t, sender.Send(context.Background(), recipient, msg), email.ErrNotConfigured)
}
