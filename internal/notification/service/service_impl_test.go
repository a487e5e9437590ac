package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/smallbiznis/newsexpress/internal/notification/channel"
	"github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/internal/notification/mocks"
	"github.com/smallbiznis/newsexpress/internal/notification/repository"
	"github.com/smallbiznis/newsexpress/internal/notification/service"
	"github.com/smallbiznis/newsexpress/internal/providers/email"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	fx    *dbtest.Fixtures
	email *mocks.MockSender
	sms   *mocks.MockSender
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(today.Add(9 * time.Hour))
	repo := repository.Provide()

	ctrl := gomock.NewController(t)
	email := mocks.NewMockSender(ctrl)
	email.EXPECT().Channel().Return(domain.ChannelEmail).AnyTimes()
	sms := mocks.NewMockSender(ctrl)
	sms.EXPECT().Channel().Return(domain.ChannelSMS).AnyTimes()

	svc := service.New(service.Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clk,
		Repo:         repo,
		Senders:      domain.Senders{channel.NewInApp(db, repo, node, clk), email, sms},
		AgencyConfig: config.NewStaticAgencyConfig(config.DefaultAgencyConfig()),
	})
	return fixture{
		db:    db,
		svc:   svc,
		fx:    dbtest.NewFixtures(t, db, clk.Now()),
		email: email,
		sms:   sms,
	}
}

func (f fixture) userOf(t *testing.T, customerID snowflake.ID) snowflake.ID {
	t.Helper()
	var userID snowflake.ID
	require.NoError(t, f.db.Raw(`SELECT user_id FROM customers WHERE id = ?`, customerID).Scan(&userID).Error)
	return userID
}

func TestSendReportsEachChannelIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.fx.Customer("first@example.com")
	second := f.fx.Customer("second@example.com")

	f.email.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r domain.Recipient, _ domain.Message) error {
			if r.CustomerID == first {
				return errors.New("mailbox unavailable")
			}
			return nil
		}).Times(2)
	f.sms.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	result, err := f.svc.Send(ctx, domain.SendRequest{
		Audience: domain.AudienceAllCustomers,
		Message:  "Prices change next month.",
		Channels: []domain.Channel{domain.ChannelAll},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.CampaignID)
	assert.Equal(t, 2, result.TotalRecipients)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Details, 2)

	firstDetail := result.Details[0]
	if firstDetail.CustomerID != first {
		firstDetail = result.Details[1]
	}
	require.Len(t, firstDetail.Channels, 3)
	assert.Equal(t, domain.ChannelInApp, firstDetail.Channels[0].Channel)
	assert.True(t, firstDetail.Channels[0].Success)
	assert.False(t, firstDetail.Channels[1].Success)
	assert.Contains(t, firstDetail.Channels[1].Error, "mailbox unavailable")
	assert.True(t, firstDetail.Channels[2].Success)

	inbox, err := f.svc.ListForUser(ctx, domain.ListNotificationRequest{UserID: f.userOf(t, second)})
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.EqualValues(t, 1, inbox.UnreadCount)
	n := inbox.Notifications[0]
	assert.Equal(t, domain.DefaultSubject, n.Subject)
	assert.Equal(t, domain.TypeGeneral, n.Type)
	assert.Equal(t, domain.StatusSent, n.Status)
	assert.Equal(t, result.CampaignID, n.CampaignID)
	assert.ElementsMatch(t, []string{"in_app", "email", "sms"}, []string(n.CampaignChannels))
}

func TestSendCountsRecipientFailedWhenEveryChannelFails(t *testing.T) {
	f := newFixture(t)
	f.fx.Customer("only@example.com")

	f.email.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ErrNoEmail)

	result, err := f.svc.Send(context.Background(), domain.SendRequest{
		Audience: domain.AudienceAllCustomers,
		Subject:  "Renewal",
		Message:  "Your subscription ends soon.",
		Type:     domain.TypeRenewal,
		Channels: []domain.Channel{domain.ChannelEmail},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRecipients)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Details[0].Success)
}

func TestSendResolvesAudiences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := f.fx.Publication("Daily Ledger", 1200)

	late := f.fx.Customer("late@example.com")
	lateSub := f.fx.Subscription(late, pub, today.AddDate(0, -2, 0), today.AddDate(0, 4, 0), "active")
	f.fx.Payment(lateSub, 1200, "pending", today.AddDate(0, 0, -3), nil)

	expiring := f.fx.Customer("expiring@example.com")
	f.fx.Subscription(expiring, pub, today.AddDate(0, -6, 0), today.AddDate(0, 0, 5), "active")

	settled := f.fx.Customer("settled@example.com")
	settledSub := f.fx.Subscription(settled, pub, today.AddDate(0, -1, 0), today.AddDate(0, 6, 0), "active")
	paid := today.AddDate(0, 0, -1)
	f.fx.Payment(settledSub, 1200, "completed", today.AddDate(0, 0, -2), &paid)

	send := func(req domain.SendRequest) domain.SendResult {
		t.Helper()
		req.Message = "hello"
		req.Channels = []domain.Channel{domain.ChannelInApp}
		result, err := f.svc.Send(ctx, req)
		require.NoError(t, err)
		return result
	}
	customers := func(result domain.SendResult) []snowflake.ID {
		ids := make([]snowflake.ID, 0, len(result.Details))
		for _, d := range result.Details {
			ids = append(ids, d.CustomerID)
		}
		return ids
	}

	assert.Equal(t, []snowflake.ID{late}, customers(send(domain.SendRequest{Audience: domain.AudienceOverduePayments})))
	assert.Equal(t, []snowflake.ID{expiring}, customers(send(domain.SendRequest{Audience: domain.AudienceExpiringSubscriptions})))
	assert.ElementsMatch(t, []snowflake.ID{settled, late},
		customers(send(domain.SendRequest{
			Audience:    domain.AudienceSpecificCustomers,
			CustomerIDs: []string{settled.String(), late.String()},
		})),
	)
	assert.Len(t, send(domain.SendRequest{Audience: domain.AudienceAllCustomers}).Details, 3)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.SendRequest
		err  error
	}{
		{"unknown audience", domain.SendRequest{Audience: "vip", Message: "x", Channels: []domain.Channel{"in_app"}}, domain.ErrInvalidAudience},
		{"empty message", domain.SendRequest{Audience: domain.AudienceAllCustomers, Message: "  ", Channels: []domain.Channel{"in_app"}}, domain.ErrInvalidMessage},
		{"unknown type", domain.SendRequest{Audience: domain.AudienceAllCustomers, Message: "x", Type: "promo", Channels: []domain.Channel{"in_app"}}, domain.ErrInvalidType},
		{"no channels", domain.SendRequest{Audience: domain.AudienceAllCustomers, Message: "x"}, domain.ErrInvalidChannel},
		{"unknown channel", domain.SendRequest{Audience: domain.AudienceAllCustomers, Message: "x", Channels: []domain.Channel{"fax"}}, domain.ErrInvalidChannel},
		{"specific without ids", domain.SendRequest{Audience: domain.AudienceSpecificCustomers, Message: "x", Channels: []domain.Channel{"in_app"}}, domain.ErrInvalidCustomerIDs},
		{"specific with bad id", domain.SendRequest{Audience: domain.AudienceSpecificCustomers, CustomerIDs: []string{"abc"}, Message: "x", Channels: []domain.Channel{"in_app"}}, domain.ErrInvalidCustomerIDs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSendWithoutConfiguredSender(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	clk := clock.NewFakeClock(today)
	repo := repository.Provide()
	svc := service.New(service.Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clk,
		Repo:         repo,
		Senders:      domain.Senders{channel.NewInApp(db, repo, node, clk)},
		AgencyConfig: config.NewStaticAgencyConfig(config.DefaultAgencyConfig()),
	})

	_, err = svc.Send(context.Background(), domain.SendRequest{
		Audience: domain.AudienceAllCustomers,
		Message:  "x",
		Channels: []domain.Channel{domain.ChannelSMS},
	})
	assert.ErrorIs(t, err, domain.ErrSenderMissing)
}

func TestSendEmailWithoutSMTPFailsPerRecipient(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	clk := clock.NewFakeClock(today)
	repo := repository.Provide()
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repo,
		Senders: domain.Senders{
			channel.NewInApp(db, repo, node, clk),
			channel.NewEmail(email.NewFromConfig(config.Config{}, zap.NewNop())),
		},
		AgencyConfig: config.NewStaticAgencyConfig(config.DefaultAgencyConfig()),
	})
	dbtest.NewFixtures(t, db, today).Customer("reader@example.com")

	result, err := svc.Send(context.Background(), domain.SendRequest{
		Audience: domain.AudienceAllCustomers,
		Message:  "Holiday schedule attached.",
		Channels: []domain.Channel{domain.ChannelEmail},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRecipients)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Details, 1)
	require.Len(t, result.Details[0].Channels, 1)
	assert.False(t, result.Details[0].Channels[0].Success)
	assert.Contains(t, result.Details[0].Channels[0].Error, "smtp not configured")
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.fx.Customer("reader@example.com")
	other := f.fx.Customer("other@example.com")

	_, err := f.svc.Send(ctx, domain.SendRequest{
		Audience:    domain.AudienceSpecificCustomers,
		CustomerIDs: []string{reader.String()},
		Message:     "Your copy is on its way.",
		Type:        domain.TypeDeliveryUpdate,
		Channels:    []domain.Channel{domain.ChannelInApp},
	})
	require.NoError(t, err)

	readerUser := f.userOf(t, reader)
	inbox, err := f.svc.ListForUser(ctx, domain.ListNotificationRequest{UserID: readerUser})
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	id := inbox.Notifications[0].ID.String()

	_, err = f.svc.MarkRead(ctx, domain.MarkReadRequest{ID: id, UserID: f.userOf(t, other)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.MarkRead(ctx, domain.MarkReadRequest{ID: "nope", UserID: readerUser})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	read, err := f.svc.MarkRead(ctx, domain.MarkReadRequest{ID: id, UserID: readerUser})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, read.Status)
	require.NotNil(t, read.ReadAt)

	again, err := f.svc.MarkRead(ctx, domain.MarkReadRequest{ID: id, UserID: readerUser})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, again.Status)

	unread, err := f.svc.ListForUser(ctx, domain.ListNotificationRequest{UserID: readerUser, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Notifications)
	assert.EqualValues(t, 0, unread.UnreadCount)
}

func TestListForUserPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.fx.Customer("pager@example.com")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, domain.SendRequest{
			Audience: domain.AudienceAllCustomers,
			Message:  "notice",
			Channels: []domain.Channel{domain.ChannelInApp},
		})
		require.NoError(t, err)
	}

	userID := f.userOf(t, customer)
	page, err := f.svc.ListForUser(ctx, domain.ListNotificationRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		UserID:     userID,
	})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)
	assert.EqualValues(t, 3, page.UnreadCount)

	next, err := f.svc.ListForUser(ctx, domain.ListNotificationRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
		UserID:     userID,
	})
	require.NoError(t, err)
	assert.Len(t, next.Notifications, 1)
	assert.False(t, next.HasMore)

	_, err = f.svc.ListForUser(ctx, domain.ListNotificationRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
		UserID:     userID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
