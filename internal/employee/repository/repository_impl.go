package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/employee/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `e.id, e.user_id, e.position, e.zone, e.salary, e.is_active, e.hired_at,
	e.created_at, e.updated_at, u.email, u.display_name`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO employees (id, user_id, position, zone, salary, is_active, hired_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		employee.ID,
		employee.UserID,
		employee.Position,
		employee.Zone,
		employee.Salary,
		employee.IsActive,
		employee.HiredAt,
		employee.CreatedAt,
		employee.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employee, error) {
	return r.findOne(ctx, db, "e.id = ?", id)
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Employee, error) {
	return r.findOne(ctx, db, "e.user_id = ?", userID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, cond string, arg any) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM employees e JOIN users u ON u.id = e.user_id
		 WHERE `+cond,
		arg,
	).Scan(&employee).Error
	if err != nil {
		return nil, err
	}
	if employee.ID == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Employee, error) {
	stmt := db.WithContext(ctx).
		Table("employees AS e").
		Select(selectColumns).
		Joins("JOIN users u ON u.id = e.user_id")

	if filter.Position != "" {
		stmt = stmt.Where("e.position = ?", filter.Position)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("e.is_active = ?", *filter.IsActive)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(e.created_at < ?) OR (e.created_at = ? AND e.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var employees []*domain.Employee
	err := option.Apply(stmt,
		option.ApplyOrder("e.created_at desc, e.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("employees").
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}
