package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/internal/delivery/repository"
	"github.com/smallbiznis/newsexpress/internal/delivery/service"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	employeerepo "github.com/smallbiznis/newsexpress/internal/employee/repository"
	employeeservice "github.com/smallbiznis/newsexpress/internal/employee/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	clk     *clock.FakeClock
	fx      *dbtest.Fixtures
	courier snowflake.ID
	clerk   snowflake.ID
	active  snowflake.ID
	ended   snowflake.ID
}

var today = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) fixture {
	t.Helper()

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(today.Add(7 * time.Hour))
	log := zap.NewNop()

	employeeSvc := employeeservice.New(employeeservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: employeerepo.Provide(),
	})
	svc := service.New(service.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		EmployeeSvc: employeeSvc,
	})

	fx := dbtest.NewFixtures(t, db, clk.Now())
	customer := fx.Customer("reader@example.com")
	pub := fx.Publication("Evening Star", 900)
	return fixture{
		db:      db,
		svc:     svc,
		clk:     clk,
		fx:      fx,
		courier: fx.Employee("courier@example.com", "delivery"),
		clerk:   fx.Employee("clerk@example.com", "clerk"),
		active:  fx.Subscription(customer, pub, today.AddDate(0, -1, 0), today.AddDate(0, 2, 0), "active"),
		ended:   fx.Subscription(customer, pub, today.AddDate(0, -3, 0), today.AddDate(0, -1, 0), "expired"),
	}
}

func TestCreateRequiresActiveSubscriptionAndCourier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateDeliveryRequest{
		SubscriptionID: f.ended.String(),
		DeliveryDate:   today,
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotActive)

	_, err = f.svc.Create(ctx, domain.CreateDeliveryRequest{
		SubscriptionID:   f.active.String(),
		DeliveryPersonID: f.clerk.String(),
		DeliveryDate:     today,
	})
	assert.ErrorIs(t, err, employeedomain.ErrNotDeliveryPerson)

	created, err := f.svc.Create(ctx, domain.CreateDeliveryRequest{
		SubscriptionID: f.active.String(),
		DeliveryDate:   today,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Nil(t, created.DeliveryPersonID)
	assert.Equal(t, "Evening Star", created.PublicationTitle)

	_, err = f.svc.Create(ctx, domain.CreateDeliveryRequest{
		SubscriptionID: f.active.String(),
		DeliveryDate:   today,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyScheduled)
}

func TestBulkCreateSkipsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.fx.Subscription(f.fx.Customer("second@example.com"), f.fx.Publication("Weekly Digest", 400),
		today.AddDate(0, -1, 0), today.AddDate(0, 1, 0), "active")
	f.fx.Delivery(f.active, 0, today, "pending")

	resp, err := f.svc.BulkCreate(ctx, domain.BulkCreateRequest{
		SubscriptionIDs:  []string{f.active.String(), other.String()},
		DeliveryPersonID: f.courier.String(),
		DeliveryDate:     today,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkCreateResponse{Created: 1, Skipped: 1}, resp)

	_, err = f.svc.BulkCreate(ctx, domain.BulkCreateRequest{
		SubscriptionIDs:  []string{other.String(), f.ended.String()},
		DeliveryPersonID: f.courier.String(),
		DeliveryDate:     today.AddDate(0, 0, 1),
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotActive)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM deliveries WHERE delivery_date = ?`, today.AddDate(0, 0, 1)).Scan(&count).Error)
	assert.Zero(t, count, "a failed batch writes nothing")
}

func TestAssignAndMarkDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.fx.Delivery(f.active, 0, today, "pending")

	_, err := f.svc.Assign(ctx, domain.AssignRequest{ID: id.String(), DeliveryPersonID: f.clerk.String()})
	assert.ErrorIs(t, err, employeedomain.ErrNotDeliveryPerson)

	assigned, err := f.svc.Assign(ctx, domain.AssignRequest{ID: id.String(), DeliveryPersonID: f.courier.String()})
	require.NoError(t, err)
	require.NotNil(t, assigned.DeliveryPersonID)
	assert.Equal(t, f.courier, *assigned.DeliveryPersonID)
	assert.NotEmpty(t, assigned.DeliveryPersonName)

	otherCourier := f.fx.Employee("other-courier@example.com", "delivery")
	_, err = f.svc.MarkDelivered(ctx, domain.MarkDeliveredRequest{ID: id.String(), DeliveryPersonID: otherCourier})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := f.svc.MarkDelivered(ctx, domain.MarkDeliveredRequest{ID: id.String(), DeliveryPersonID: f.courier})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, first.Status)
	require.NotNil(t, first.DeliveredAt)
	firstAt := *first.DeliveredAt

	f.clk.Advance(time.Hour)
	second, err := f.svc.MarkDelivered(ctx, domain.MarkDeliveredRequest{ID: id.String()})
	require.NoError(t, err)
	assert.True(t, second.DeliveredAt.After(firstAt), "completing again overwrites the time")
}

func TestUpdateStatusAcceptsAnyStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.fx.Delivery(f.active, f.courier, today, "pending")

	for _, status := range []domain.Status{domain.StatusDelayed, domain.StatusSkipped, domain.StatusFailed, domain.StatusPending} {
		got, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id.String(), Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	_, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: id.String(), Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestReportIssueLeavesDeliveryStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.fx.Delivery(f.active, f.courier, today, "pending")

	issue, err := f.svc.ReportIssue(ctx, domain.ReportIssueRequest{
		DeliveryID:  id.String(),
		ReporterID:  f.courier,
		IssueType:   domain.IssueWrongAddress,
		Description: "No such house number",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IssueOpen, issue.Status)

	delivery, err := f.svc.Get(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, delivery.Status)

	_, err = f.svc.ReportIssue(ctx, domain.ReportIssueRequest{
		DeliveryID:  id.String(),
		ReporterID:  f.courier,
		IssueType:   domain.IssueOther,
		Description: "  ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)

	updated, err := f.svc.UpdateIssueStatus(ctx, domain.UpdateIssueStatusRequest{
		ID:              issue.ID.String(),
		Status:          domain.IssueResolved,
		ResolutionNotes: "Address corrected",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IssueResolved, updated.Status)
	assert.Equal(t, "Address corrected", updated.ResolutionNotes)

	open, err := f.svc.ListIssues(ctx, domain.ListIssueRequest{Status: domain.IssueOpen})
	require.NoError(t, err)
	assert.Empty(t, open.Issues)

	all, err := f.svc.ListIssues(ctx, domain.ListIssueRequest{})
	require.NoError(t, err)
	require.Len(t, all.Issues, 1)
	assert.Equal(t, today, all.Issues[0].DeliveryDate.UTC())
}

func TestListAndWorkload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fx.Delivery(f.active, f.courier, today, "completed")
	f.fx.Delivery(f.active, f.courier, today.AddDate(0, 0, 1), "pending")
	f.fx.Delivery(f.fx.Subscription(f.fx.Customer("third@example.com"), f.fx.Publication("Gazette", 100),
		today, today.AddDate(0, 1, 0), "active"), 0, today, "pending")

	mine, err := f.svc.List(ctx, domain.ListDeliveryRequest{DeliveryPersonID: f.courier.String()})
	require.NoError(t, err)
	assert.Len(t, mine.Deliveries, 2)

	date := today
	unassigned, err := f.svc.List(ctx, domain.ListDeliveryRequest{Date: &date, Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned.Deliveries, 1)
	assert.Nil(t, unassigned.Deliveries[0].DeliveryPersonID)

	workload, err := f.svc.Workload(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, workload, 1)
	assert.Equal(t, f.courier, workload[0].DeliveryPersonID)
	assert.Equal(t, int64(1), workload[0].Total)
	assert.Equal(t, int64(1), workload[0].Completed)
}

func TestDeleteRemovesIssues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.fx.Delivery(f.active, f.courier, today, "pending")
	_, err := f.svc.ReportIssue(ctx, domain.ReportIssueRequest{
		DeliveryID: id.String(), ReporterID: f.courier, IssueType: domain.IssueDamagedCopy, Description: "Wet",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, id.String()))
	_, err = f.svc.Get(ctx, id.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, id.String()), domain.ErrNotFound)
}
