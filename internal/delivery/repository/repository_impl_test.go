package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/newsexpress/internal/dbtest"
	"github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/internal/delivery/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIgnoresDuplicateDay(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	fx := dbtest.NewFixtures(t, db, now)
	sub := fx.Subscription(fx.Customer("reader@example.com"), fx.Publication("Morning Post", 1500),
		day.AddDate(0, -1, 0), day.AddDate(0, 1, 0), "active")
	repo := repository.Provide()

	first := &domain.Delivery{
		ID:               1,
		SubscriptionID:   sub,
		DeliveryDate:     day,
		Status:           domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
		PublicationTitle: "ignored on insert",
	}
	rows, err := repo.Insert(ctx, db, first)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	second := *first
	second.ID = 2
	rows, err = repo.Insert(ctx, db, &second)
	require.NoError(t, err)
	assert.Zero(t, rows)

	stored, err := repo.FindByID(ctx, db, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Morning Post", stored.PublicationTitle)

	missing, err := repo.FindByID(ctx, db, second.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
