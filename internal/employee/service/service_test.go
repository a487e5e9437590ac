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
	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/smallbiznis/newsexpress/internal/employee/domain"
	"github.com/smallbiznis/newsexpress/internal/employee/repository"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, authdomain.Service) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))

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
	return svc, auth
}

func createEmployee(t *testing.T, svc domain.Service, email string, position domain.Position) *domain.Employee {
	t.Helper()
	employee, err := svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Email:    email,
		Password: "staff-password",
		Position: position,
		Zone:     "north",
		Salary:   250000,
	})
	require.NoError(t, err)
	return employee
}

func TestCreateAssignsRoleFromPosition(t *testing.T) {
	svc, auth := newTestService(t)

	employee := createEmployee(t, svc, "rider@example.com", domain.PositionDelivery)
	assert.Equal(t, domain.PositionDelivery, employee.Position)
	assert.Equal(t, "rider@example.com", employee.Email)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), employee.HiredAt.UTC())

	user, err := auth.GetUser(context.Background(), employee.UserID)
	require.NoError(t, err)
	assert.Equal(t, principal.RoleDelivery, user.Role)
}

func TestCreateRejectsUnknownPosition(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Email:    "who@example.com",
		Password: "staff-password",
		Position: "janitor",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)

	_, err = svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Email:    "who@example.com",
		Password: "staff-password",
		Position: domain.PositionClerk,
		Salary:   -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSalary)
}

func TestRequireDeliveryPerson(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rider := createEmployee(t, svc, "rider@example.com", domain.PositionDelivery)
	clerk := createEmployee(t, svc, "clerk@example.com", domain.PositionClerk)

	got, err := svc.RequireDeliveryPerson(ctx, nil, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, rider.ID, got.ID)

	_, err = svc.RequireDeliveryPerson(ctx, nil, clerk.ID)
	assert.ErrorIs(t, err, domain.ErrNotDeliveryPerson)

	_, err = svc.RequireDeliveryPerson(ctx, nil, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.SetActive(ctx, rider.ID.String(), false)
	require.NoError(t, err)
	_, err = svc.RequireDeliveryPerson(ctx, nil, rider.ID)
	assert.ErrorIs(t, err, domain.ErrEmployeeInactive)
}

func TestListFiltersByPosition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createEmployee(t, svc, "r1@example.com", domain.PositionDelivery)
	createEmployee(t, svc, "r2@example.com", domain.PositionDelivery)
	createEmployee(t, svc, "c1@example.com", domain.PositionClerk)

	resp, err := svc.List(ctx, domain.ListEmployeeRequest{Position: domain.PositionDelivery})
	require.NoError(t, err)
	assert.Len(t, resp.Employees, 2)

	persons, err := svc.ActiveDeliveryPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 2)

	_, err = svc.List(ctx, domain.ListEmployeeRequest{Position: "pilot"})
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
}
