package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/complaint/domain"
	"github.com/smallbiznis/newsexpress/internal/complaint/repository"
	"github.com/smallbiznis/newsexpress/internal/complaint/service"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, *dbtest.Fixtures) {
	t.Helper()
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, dbtest.NewFixtures(t, db, clk.Now())
}

func TestSubmitValidates(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	customer := fx.Customer("angry@example.com")

	_, err := svc.Submit(ctx, domain.SubmitComplaintRequest{CustomerID: customer, Description: "late"})
	assert.ErrorIs(t, err, domain.ErrInvalidSubject)
	_, err = svc.Submit(ctx, domain.SubmitComplaintRequest{CustomerID: customer, Subject: "Late paper"})
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)

	complaint, err := svc.Submit(ctx, domain.SubmitComplaintRequest{
		CustomerID:  customer,
		Subject:     " Late paper ",
		Description: "Arrived after noon three days running",
	})
	require.NoError(t, err)
	assert.Equal(t, "Late paper", complaint.Subject)
	assert.Equal(t, domain.StatusOpen, complaint.Status)

	other := fx.Customer("someone@example.com")
	_, err = svc.Get(ctx, domain.GetComplaintRequest{ID: complaint.ID.String(), CustomerID: other})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveOnlyOnce(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	customer := fx.Customer("angry@example.com")
	clerk := fx.Employee("clerk@example.com", "clerk")

	complaint, err := svc.Submit(ctx, domain.SubmitComplaintRequest{CustomerID: customer, Subject: "Wet", Description: "Soaked"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: complaint.ID.String(), Status: domain.StatusInProgress})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, domain.ResolveComplaintRequest{
		ID:              complaint.ID.String(),
		ResolverID:      clerk,
		ResolutionNotes: "Bagged deliveries from now on",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, clerk, *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = svc.Resolve(ctx, domain.ResolveComplaintRequest{ID: complaint.ID.String(), ResolverID: clerk})
	assert.ErrorIs(t, err, domain.ErrNotResolvable)
	_, err = svc.Resolve(ctx, domain.ResolveComplaintRequest{ID: "12345", ResolverID: clerk})
	assert.ErrorIs(t, err, domain.ErrNotResolvable)

	closed, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: complaint.ID.String(), Status: domain.StatusClosed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: complaint.ID.String(), Status: domain.StatusOpen})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestListFiltersByCustomerAndStatus(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	first := fx.Customer("first@example.com")
	second := fx.Customer("second@example.com")

	for _, customer := range []snowflake.ID{first, first, second} {
		_, err := svc.Submit(ctx, domain.SubmitComplaintRequest{CustomerID: customer, Subject: "s", Description: "d"})
		require.NoError(t, err)
	}

	mine, err := svc.List(ctx, domain.ListComplaintRequest{CustomerID: first.String()})
	require.NoError(t, err)
	assert.Len(t, mine.Complaints, 2)

	open, err := svc.List(ctx, domain.ListComplaintRequest{Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, open.Complaints, 3)

	_, err = svc.List(ctx, domain.ListComplaintRequest{Status: "angry"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
