package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	authrepository "github.com/smallbiznis/newsexpress/internal/auth/repository"
	authservice "github.com/smallbiznis/newsexpress/internal/auth/service"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/customer/domain"
	"github.com/smallbiznis/newsexpress/internal/customer/repository"
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	svc  domain.Service
	auth authdomain.Service
	clk  *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

	auth := authservice.New(authservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  authrepository.Provide(),
	})
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    repository.Provide(),
		AuthSvc: auth,
	})
	return fixture{db: db, svc: svc, auth: auth, clk: clk}
}

func (f fixture) register(t *testing.T, email string) *domain.Customer {
	t.Helper()
	customer, err := f.svc.Register(context.Background(), domain.RegisterCustomerRequest{
		Email:       email,
		Password:    "subscriber-pass",
		DisplayName: "Reader " + email,
		Phone:       "555-0100",
		Address:     "12 Paper Lane",
	})
	require.NoError(t, err)
	return customer
}

func TestRegisterCreatesUserAndCustomer(t *testing.T) {
	f := newFixture(t)

	customer := f.register(t, "reader@example.com")
	assert.Equal(t, "reader@example.com", customer.Email)
	assert.Equal(t, "12 Paper Lane", customer.Address)
	assert.True(t, customer.IsActive)
	assert.Zero(t, customer.ActiveSubscriptionCount)

	user, err := f.auth.GetUser(context.Background(), customer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "customer", string(user.Role))

	byUser, err := f.svc.GetByUserID(context.Background(), customer.UserID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, byUser.ID)
}

func TestRegisterRollsBackOnDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@example.com")

	_, err := f.svc.Register(context.Background(), domain.RegisterCustomerRequest{
		Email:    "dup@example.com",
		Password: "subscriber-pass",
		Address:  "elsewhere",
	})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)

	var count int64
	require.NoError(t, f.db.Table("customers").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterRequiresAddress(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), domain.RegisterCustomerRequest{
		Email:    "noaddr@example.com",
		Password: "subscriber-pass",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestActiveSubscriptionCountIsDerived(t *testing.T) {
	f := newFixture(t)
	customer := f.register(t, "count@example.com")

	insert := func(id int64, status string) {
		require.NoError(t, f.db.Exec(
			`INSERT INTO subscriptions (id, customer_id, publication_id, start_date, end_date, delivery_address, quantity, status, pause_status, created_at, updated_at)
			 VALUES (?, ?, 1, ?, ?, 'addr', 1, ?, 'no_request', ?, ?)`,
			id, customer.ID, f.clk.Now(), f.clk.Now().AddDate(0, 1, 0), status, f.clk.Now(), f.clk.Now(),
		).Error)
	}
	insert(101, "active")
	insert(102, "active")
	insert(103, "cancelled")

	got, err := f.svc.Get(context.Background(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ActiveSubscriptionCount)

	require.NoError(t, f.db.Exec(`UPDATE subscriptions SET status = 'paused' WHERE id = 101`).Error)
	got, err = f.svc.Get(context.Background(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ActiveSubscriptionCount)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		f.register(t, email)
		f.clk.Advance(time.Minute)
	}

	first, err := f.svc.List(context.Background(), domain.ListCustomerRequest{})
	require.NoError(t, err)
	require.Len(t, first.Customers, 3)
	assert.False(t, first.HasMore)

	req := domain.ListCustomerRequest{}
	req.PageSize = 2
	page, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "c@example.com", page.Customers[0].Email)

	req.PageToken = page.NextPageToken
	next, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, next.Customers, 1)
	assert.Equal(t, "a@example.com", next.Customers[0].Email)

	_, err = f.svc.List(context.Background(), domain.ListCustomerRequest{Query: "b@"})
	require.NoError(t, err)
}

func TestUpdateAndSetActive(t *testing.T) {
	f := newFixture(t)
	customer := f.register(t, "move@example.com")

	address := "  99 New Street "
	updated, err := f.svc.Update(context.Background(), domain.UpdateCustomerRequest{ID: customer.ID.String(), Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "99 New Street", updated.Address)
	assert.Equal(t, "555-0100", updated.Phone)

	empty := " "
	_, err = f.svc.Update(context.Background(), domain.UpdateCustomerRequest{ID: customer.ID.String(), Address: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	inactive, err := f.svc.SetActive(context.Background(), customer.ID.String(), false)
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	user, err := f.auth.GetUser(context.Background(), customer.UserID)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestGetUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
