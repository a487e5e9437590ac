package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/commission/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const selectColumns = `c.id, c.delivery_person_id, c.period_start, c.period_end, c.total_deliveries,
	c.total_collections, c.rate_bps, c.amount, c.status, c.created_at, c.updated_at,
	u.display_name AS delivery_person_name`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Commission) (int64, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "delivery_person_id"}, {Name: "period_start"}, {Name: "period_end"}},
			DoNothing: true,
		}).
		Create(c)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	return r.find(ctx, db, id, " FOR UPDATE OF c")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM commissions c
		 JOIN employees e ON e.id = c.delivery_person_id
		 JOIN users u ON u.id = e.user_id
		 WHERE c.id = ?`+suffix,
		id,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Commission, error) {
	stmt := db.WithContext(ctx).
		Table("commissions AS c").
		Select(selectColumns).
		Joins("JOIN employees e ON e.id = c.delivery_person_id").
		Joins("JOIN users u ON u.id = e.user_id")

	if filter.DeliveryPersonID != 0 {
		stmt = stmt.Where("c.delivery_person_id = ?", filter.DeliveryPersonID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("c.status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(c.created_at < ?) OR (c.created_at = ? AND c.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var commissions []*domain.Commission
	err := option.Apply(stmt,
		option.ApplyOrder("c.created_at desc, c.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) Tally(ctx context.Context, db *gorm.DB, start, end time.Time) ([]domain.Tally, error) {
	var rows []domain.Tally
	err := db.WithContext(ctx).Raw(
		`SELECT d.delivery_person_id,
			COUNT(d.id) AS total_deliveries,
			COALESCE(SUM(p.monthly_price), 0) AS total_collections
		 FROM deliveries d
		 JOIN subscriptions s ON s.id = d.subscription_id
		 JOIN publications p ON p.id = s.publication_id
		 WHERE d.status = 'completed'
		   AND d.delivery_person_id IS NOT NULL
		   AND d.delivery_date >= ? AND d.delivery_date <= ?
		 GROUP BY d.delivery_person_id`,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE commissions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		now,
		id,
		from,
	)
	return result.RowsAffected, result.Error
}
