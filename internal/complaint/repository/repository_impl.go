package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/complaint/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `cp.id, cp.customer_id, cp.subject, cp.description, cp.status, cp.resolved_by,
	cp.resolution_notes, cp.resolved_at, cp.created_at, cp.updated_at,
	u.display_name AS customer_name`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Complaint) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO complaints (
			id, customer_id, subject, description, status, resolved_by,
			resolution_notes, resolved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CustomerID,
		c.Subject,
		c.Description,
		c.Status,
		c.ResolvedBy,
		c.ResolutionNotes,
		c.ResolvedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Complaint, error) {
	var complaint domain.Complaint
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM complaints cp
		 JOIN customers c ON c.id = cp.customer_id
		 JOIN users u ON u.id = c.user_id
		 WHERE cp.id = ?`,
		id,
	).Scan(&complaint).Error
	if err != nil {
		return nil, err
	}
	if complaint.ID == 0 {
		return nil, nil
	}
	return &complaint, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Complaint, error) {
	stmt := db.WithContext(ctx).
		Table("complaints AS cp").
		Select(selectColumns).
		Joins("JOIN customers c ON c.id = cp.customer_id").
		Joins("JOIN users u ON u.id = c.user_id")

	if filter.CustomerID != 0 {
		stmt = stmt.Where("cp.customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("cp.status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(cp.created_at < ?) OR (cp.created_at = ? AND cp.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var complaints []*domain.Complaint
	err := option.Apply(stmt,
		option.ApplyOrder("cp.created_at desc, cp.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&complaints).Error
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, c *domain.Complaint, from []domain.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE complaints
		 SET status = ?, resolved_by = ?, resolution_notes = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusResolved,
		c.ResolvedBy,
		c.ResolutionNotes,
		c.ResolvedAt,
		c.UpdatedAt,
		c.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, c *domain.Complaint, from domain.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE complaints SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		c.Status,
		c.UpdatedAt,
		c.ID,
		from,
	)
	return result.RowsAffected, result.Error
}
