package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/customer/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `c.id, c.user_id, c.address, c.phone, c.is_active, c.created_at, c.updated_at,
	u.email, u.display_name,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.customer_id = c.id AND s.status = 'active') AS active_subscription_count`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, user_id, address, phone, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.UserID,
		customer.Address,
		customer.Phone,
		customer.IsActive,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	return r.findOne(ctx, db, "c.id = ?", id)
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Customer, error) {
	return r.findOne(ctx, db, "c.user_id = ?", userID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, cond string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM customers c JOIN users u ON u.id = c.user_id
		 WHERE `+cond,
		arg,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Customer, error) {
	stmt := db.WithContext(ctx).
		Table("customers AS c").
		Select(selectColumns).
		Joins("JOIN users u ON u.id = c.user_id")

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where("(LOWER(u.email) LIKE ? OR LOWER(u.display_name) LIKE ?)", like, like)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("c.is_active = ?", *filter.IsActive)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(c.created_at < ?) OR (c.created_at = ? AND c.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var customers []*domain.Customer
	err := option.Apply(stmt,
		option.ApplyOrder("c.created_at desc, c.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("customers").
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}
