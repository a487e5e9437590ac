package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/publication/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Publication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO publications (
			id, title, slug, type, monthly_price, frequency, publisher,
			description, image_url, is_available, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Title,
		p.Slug,
		p.Type,
		p.MonthlyPrice,
		p.Frequency,
		p.Publisher,
		p.Description,
		p.ImageURL,
		p.IsAvailable,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Publication, error) {
	var p domain.Publication
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, slug, type, monthly_price, frequency, publisher,
			description, image_url, is_available, created_at, updated_at
		 FROM publications WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM publications WHERE slug = ?`,
		slug,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Publication, error) {
	stmt := db.WithContext(ctx).Model(&domain.Publication{})
	if filter.AvailableOnly {
		stmt = stmt.Where("is_available = ?", true)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where("(LOWER(title) LIKE ? OR LOWER(publisher) LIKE ?)", like, like)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var items []*domain.Publication
	err := option.Apply(stmt,
		option.ApplyOrder("created_at desc, id desc"),
		option.ApplyPagination(filter.Limit),
	).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("publications").
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// CountSubscriptions counts subscriptions of the publication. An empty status
// counts all of them.
func (r *repo) CountSubscriptions(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (int64, error) {
	stmt := db.WithContext(ctx).Table("subscriptions").Where("publication_id = ?", id)
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	var count int64
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM publications WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}
