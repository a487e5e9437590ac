package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/newsexpress/internal/payment/repository"
	paymentservice "github.com/smallbiznis/newsexpress/internal/payment/service"
	publicationrepo "github.com/smallbiznis/newsexpress/internal/publication/repository"
	publicationservice "github.com/smallbiznis/newsexpress/internal/publication/service"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/newsexpress/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/newsexpress/internal/subscription/service"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db         *gorm.DB
	svc        subscriptiondomain.Service
	clk        *clock.FakeClock
	fx         *dbtest.Fixtures
	customerID snowflake.ID
	pubID      snowflake.ID
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T, now time.Time) env {
	t.Helper()

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(now)
	log := zap.NewNop()

	publicationSvc := publicationservice.New(publicationservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: publicationrepo.Provide(),
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
	})
	svc := subscriptionservice.NewService(subscriptionservice.Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          clk,
		Repo:           subscriptionrepo.Provide(),
		PublicationSvc: publicationSvc,
		PaymentSvc:     paymentSvc,
		AgencyConfig:   config.NewStaticAgencyConfig(config.DefaultAgencyConfig()),
	})

	fx := dbtest.NewFixtures(t, db, now)
	return env{
		db:         db,
		svc:        svc,
		clk:        clk,
		fx:         fx,
		customerID: fx.Customer("reader@example.com"),
		pubID:      fx.Publication("Morning Post", 1500),
	}
}

func (e env) subscribe(t *testing.T, start, end time.Time) *subscriptiondomain.Subscription {
	t.Helper()
	resp, err := e.svc.Create(context.Background(), subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     start,
		EndDate:       end,
	})
	require.NoError(t, err)
	return resp.Subscription
}

func (e env) requestPause(sub *subscriptiondomain.Subscription, start, end time.Time) (*subscriptiondomain.Subscription, error) {
	return e.svc.RequestPause(context.Background(), subscriptiondomain.RequestPauseRequest{
		ID:        sub.ID.String(),
		StartDate: start,
		EndDate:   end,
		Reason:    subscriptiondomain.PauseReasonVacation,
	})
}

func TestCreateDefaultsFromCustomer(t *testing.T) {
	e := setup(t, time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC))

	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 2, 1))
	assert.Equal(t, subscriptiondomain.StatusActive, sub.Status)
	assert.Equal(t, subscriptiondomain.PauseNoRequest, sub.PauseStatus)
	assert.Equal(t, 1, sub.Quantity)
	assert.Equal(t, "1 Fixture Road", sub.DeliveryAddress)
	assert.Equal(t, "Morning Post", sub.PublicationTitle)

	var payments int64
	require.NoError(t, e.db.Raw(`SELECT COUNT(*) FROM payments`).Scan(&payments).Error)
	assert.Zero(t, payments)
}

func TestCreateRejectsBadInput(t *testing.T) {
	e := setup(t, time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 2, 1),
		EndDate:       date(2024, 2, 1),
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidDateRange)

	_, err = e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 2, 1),
		Quantity:      -2,
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidQuantity)

	require.NoError(t, e.db.Exec(`UPDATE publications SET is_available = 0 WHERE id = ?`, e.pubID).Error)
	_, err = e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 2, 1),
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrPublicationUnavailable)

	require.NoError(t, e.db.Exec(`UPDATE customers SET is_active = 0 WHERE id = ?`, e.customerID).Error)
	_, err = e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 2, 1),
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrCustomerInactive)
}

func TestCreateWithPaymentPlanRaisesInitialPayment(t *testing.T) {
	e := setup(t, time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 4, 1),
		Quantity:      2,
		PaymentPlan:   subscriptiondomain.PlanQuarterly,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.InitialPayment)
	assert.Equal(t, int64(1500*3*2), resp.InitialPayment.Amount)
	assert.Equal(t, paymentdomain.StatusPending, resp.InitialPayment.Status)
	assert.Equal(t, paymentdomain.MethodCash, resp.InitialPayment.Method)
	assert.Equal(t, date(2024, 1, 1), resp.InitialPayment.DueDate)

	self, err := e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 2, 1),
		PaymentPlan:   subscriptiondomain.PlanMonthly,
		SelfService:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, self.InitialPayment)
	assert.Equal(t, date(2024, 1, 19), self.InitialPayment.DueDate)

	_, err = e.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID:    e.customerID.String(),
		PublicationID: e.pubID.String(),
		StartDate:     date(2024, 1, 1),
		EndDate:       date(2024, 2, 1),
		PaymentPlan:   "weekly",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidPaymentPlan)
}

func TestApprovedPauseExtendsEndDate(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 2, 1))
	pending, err := e.requestPause(sub, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PausePending, pending.PauseStatus)
	assert.Equal(t, subscriptiondomain.StatusActive, pending.Status)

	approved, err := e.svc.ApprovePause(ctx, subscriptiondomain.ProcessPauseRequest{ID: sub.ID.String(), ProcessorID: 42})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPaused, approved.Status)
	assert.Equal(t, subscriptiondomain.PauseApproved, approved.PauseStatus)
	assert.Equal(t, date(2024, 2, 6), approved.EndDate)
	require.NotNil(t, approved.PauseProcessedBy)
	assert.Equal(t, snowflake.ID(42), *approved.PauseProcessedBy)

	stored, err := e.svc.Get(ctx, subscriptiondomain.GetSubscriptionRequest{ID: sub.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 6), clock.DateOf(stored.EndDate))
	assert.Equal(t, 5, stored.PauseDays())

	_, err = e.svc.ApprovePause(ctx, subscriptiondomain.ProcessPauseRequest{ID: sub.ID.String(), ProcessorID: 42})
	assert.ErrorIs(t, err, subscriptiondomain.ErrPauseNotPending)
}

func TestRequestPauseWindowRules(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))

	cases := []struct {
		name       string
		start, end time.Time
		want       error
	}{
		{name: "start today", start: date(2024, 1, 2), end: date(2024, 1, 8), want: subscriptiondomain.ErrPauseStartNotFuture},
		{name: "end before start", start: date(2024, 1, 10), end: date(2024, 1, 9), want: subscriptiondomain.ErrInvalidPauseWindow},
		{name: "too short", start: date(2024, 1, 10), end: date(2024, 1, 12), want: subscriptiondomain.ErrPauseTooShort},
		{name: "too long", start: date(2024, 1, 10), end: date(2024, 2, 10), want: subscriptiondomain.ErrPauseTooLong},
		{name: "after end", start: date(2024, 3, 1), end: date(2024, 3, 5), want: subscriptiondomain.ErrPauseAfterEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.requestPause(sub, tc.start, tc.end)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := e.requestPause(sub, date(2024, 1, 10), date(2024, 1, 13))
	assert.NoError(t, err, "three days is the shortest allowed pause")
}

func TestRequestPauseRefusesSecondPending(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))

	_, err := e.requestPause(sub, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)
	_, err = e.requestPause(sub, date(2024, 1, 20), date(2024, 1, 25))
	assert.ErrorIs(t, err, subscriptiondomain.ErrPauseAlreadyPending)
}

func TestRequestPauseIsScopedToOwner(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
	other := e.fx.Customer("other@example.com")

	_, err := e.svc.RequestPause(context.Background(), subscriptiondomain.RequestPauseRequest{
		ID:         sub.ID.String(),
		CustomerID: other,
		StartDate:  date(2024, 1, 10),
		EndDate:    date(2024, 1, 15),
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotFound)
}

func TestRejectPauseKeepsSubscriptionActive(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 2, 1))

	_, err := e.requestPause(sub, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)

	rejected, err := e.svc.RejectPause(ctx, subscriptiondomain.ProcessPauseRequest{ID: sub.ID.String(), ProcessorID: 7})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, rejected.Status)
	assert.Equal(t, subscriptiondomain.PauseRejected, rejected.PauseStatus)
	assert.Equal(t, date(2024, 2, 1), clock.DateOf(rejected.EndDate))

	// A decided request cannot be decided again.
	_, err = e.svc.ApprovePause(ctx, subscriptiondomain.ProcessPauseRequest{ID: sub.ID.String(), ProcessorID: 7})
	assert.ErrorIs(t, err, subscriptiondomain.ErrPauseNotPending)

	// A rejected request does not block a new one.
	_, err = e.requestPause(sub, date(2024, 1, 20), date(2024, 1, 25))
	assert.NoError(t, err)
}

func TestChangeStatusKeepsPauseConsistent(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	sub := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
	_, err := e.requestPause(sub, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)

	cancelled, err := e.svc.ChangeStatus(ctx, subscriptiondomain.ChangeStatusRequest{ID: sub.ID.String(), Status: subscriptiondomain.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusCancelled, cancelled.Status)
	assert.Equal(t, subscriptiondomain.PauseRejected, cancelled.PauseStatus)
	assert.NotNil(t, cancelled.PauseProcessedAt)

	paused := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
	_, err = e.requestPause(paused, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)
	_, err = e.svc.ApprovePause(ctx, subscriptiondomain.ProcessPauseRequest{ID: paused.ID.String(), ProcessorID: 1})
	require.NoError(t, err)

	resumed, err := e.svc.ChangeStatus(ctx, subscriptiondomain.ChangeStatusRequest{ID: paused.ID.String(), Status: subscriptiondomain.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, resumed.Status)
	assert.Equal(t, subscriptiondomain.PauseNoRequest, resumed.PauseStatus)

	same, err := e.svc.ChangeStatus(ctx, subscriptiondomain.ChangeStatusRequest{ID: paused.ID.String(), Status: subscriptiondomain.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, same.Status)

	_, err = e.svc.ChangeStatus(ctx, subscriptiondomain.ChangeStatusRequest{ID: paused.ID.String(), Status: subscriptiondomain.StatusExpired})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStatus)
}

func TestSweepsExpireAndResume(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ended := e.subscribe(t, date(2024, 1, 1), date(2024, 1, 20))
	_, err := e.requestPause(ended, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)

	paused := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
	_, err = e.requestPause(paused, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)
	_, err = e.svc.ApprovePause(ctx, subscriptiondomain.ProcessPauseRequest{ID: paused.ID.String(), ProcessorID: 1})
	require.NoError(t, err)

	resumed, err := e.svc.ResumeFinishedPauses(ctx, date(2024, 1, 14))
	require.NoError(t, err)
	assert.Zero(t, resumed)

	resumed, err = e.svc.ResumeFinishedPauses(ctx, date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(1), resumed)

	expired, err := e.svc.ExpireEnded(ctx, date(2024, 1, 21))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	got, err := e.svc.Get(ctx, subscriptiondomain.GetSubscriptionRequest{ID: ended.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusExpired, got.Status)
	assert.Equal(t, subscriptiondomain.PauseRejected, got.PauseStatus)

	got, err = e.svc.Get(ctx, subscriptiondomain.GetSubscriptionRequest{ID: paused.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, got.Status)
	assert.Equal(t, subscriptiondomain.PauseNoRequest, got.PauseStatus)
}

func TestListFiltersAndPendingPauses(t *testing.T) {
	e := setup(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
		e.clk.Advance(time.Second)
	}
	withPause := e.subscribe(t, date(2024, 1, 1), date(2024, 3, 1))
	_, err := e.requestPause(withPause, date(2024, 1, 10), date(2024, 1, 15))
	require.NoError(t, err)

	page, err := e.svc.List(ctx, subscriptiondomain.ListSubscriptionRequest{
		CustomerID: e.customerID.String(),
	})
	require.NoError(t, err)
	assert.Len(t, page.Subscriptions, 4)

	first, err := e.svc.List(ctx, subscriptiondomain.ListSubscriptionRequest{})
	require.NoError(t, err)
	assert.False(t, first.HasMore)

	small, err := e.svc.List(ctx, subscriptiondomain.ListSubscriptionRequest{Pagination: paginationOf(3)})
	require.NoError(t, err)
	assert.Len(t, small.Subscriptions, 3)
	require.True(t, small.HasMore)

	rest, err := e.svc.List(ctx, subscriptiondomain.ListSubscriptionRequest{Pagination: pageAfter(small.NextPageToken, 3)})
	require.NoError(t, err)
	assert.Len(t, rest.Subscriptions, 1)

	pending, err := e.svc.ListPendingPauses(ctx, paginationOf(20))
	require.NoError(t, err)
	require.Len(t, pending.Subscriptions, 1)
	assert.Equal(t, withPause.ID, pending.Subscriptions[0].ID)

	_, err = e.svc.List(ctx, subscriptiondomain.ListSubscriptionRequest{Status: "dormant"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStatus)
}

func paginationOf(size int) pagination.Pagination {
	return pagination.Pagination{PageSize: size}
}

func pageAfter(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
