package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const selectColumns = `d.id, d.subscription_id, d.delivery_person_id, d.delivery_date, d.status,
	d.delivered_at, d.notes, d.created_at, d.updated_at,
	s.customer_id, s.delivery_address, s.quantity, p.title AS publication_title,
	COALESCE(u.display_name, '') AS delivery_person_name`

const fromClause = `deliveries d
	JOIN subscriptions s ON s.id = d.subscription_id
	JOIN publications p ON p.id = s.publication_id
	LEFT JOIN employees e ON e.id = d.delivery_person_id
	LEFT JOIN users u ON u.id = e.user_id`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *domain.Delivery) (int64, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "delivery_date"}},
			DoNothing: true,
		}).
		Create(d)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM `+fromClause+` WHERE d.id = ?`,
		id,
	).Scan(&delivery).Error
	if err != nil {
		return nil, err
	}
	if delivery.ID == 0 {
		return nil, nil
	}
	return &delivery, nil
}

func (r *repo) FindSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SubscriptionRef, error) {
	var ref domain.SubscriptionRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, status FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&ref).Error
	if err != nil {
		return nil, err
	}
	if ref.ID == 0 {
		return nil, nil
	}
	return &ref, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Delivery, error) {
	stmt := db.WithContext(ctx).
		Table("deliveries AS d").
		Select(selectColumns).
		Joins("JOIN subscriptions s ON s.id = d.subscription_id").
		Joins("JOIN publications p ON p.id = s.publication_id").
		Joins("LEFT JOIN employees e ON e.id = d.delivery_person_id").
		Joins("LEFT JOIN users u ON u.id = e.user_id")

	if filter.DeliveryPersonID != 0 {
		stmt = stmt.Where("d.delivery_person_id = ?", filter.DeliveryPersonID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("s.customer_id = ?", filter.CustomerID)
	}
	if filter.Unassigned {
		stmt = stmt.Where("d.delivery_person_id IS NULL")
	}
	if filter.Date != nil {
		stmt = stmt.Where("d.delivery_date = ?", *filter.Date)
	}
	if filter.Status != "" {
		stmt = stmt.Where("d.status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(d.created_at < ?) OR (d.created_at = ? AND d.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var deliveries []*domain.Delivery
	err := option.Apply(stmt,
		option.ApplyOrder("d.created_at desc, d.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("deliveries").
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(`DELETE FROM issue_reports WHERE delivery_id = ?`, id).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM deliveries WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}

func (r *repo) Workload(ctx context.Context, db *gorm.DB, date time.Time) ([]domain.Workload, error) {
	var rows []domain.Workload
	err := db.WithContext(ctx).Raw(
		`SELECT e.id AS delivery_person_id, u.display_name, e.zone,
			COUNT(d.id) AS total,
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0) AS pending
		 FROM employees e
		 JOIN users u ON u.id = e.user_id
		 LEFT JOIN deliveries d ON d.delivery_person_id = e.id AND d.delivery_date = ?
		 WHERE e.position = 'delivery' AND e.is_active = ?
		 GROUP BY e.id, u.display_name, e.zone
		 ORDER BY u.display_name, e.id`,
		domain.StatusCompleted,
		domain.StatusPending,
		date,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertIssue(ctx context.Context, db *gorm.DB, issue *domain.IssueReport) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO issue_reports (
			id, delivery_id, reported_by, issue_type, description, status,
			resolution_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID,
		issue.DeliveryID,
		issue.ReportedBy,
		issue.IssueType,
		issue.Description,
		issue.Status,
		issue.ResolutionNotes,
		issue.CreatedAt,
		issue.UpdatedAt,
	).Error
}

const issueColumns = `i.id, i.delivery_id, i.reported_by, i.issue_type, i.description, i.status,
	i.resolution_notes, i.created_at, i.updated_at, d.delivery_date, u.display_name AS reporter_name`

func (r *repo) FindIssueByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.IssueReport, error) {
	var issue domain.IssueReport
	err := db.WithContext(ctx).Raw(
		`SELECT `+issueColumns+`
		 FROM issue_reports i
		 JOIN deliveries d ON d.id = i.delivery_id
		 JOIN employees e ON e.id = i.reported_by
		 JOIN users u ON u.id = e.user_id
		 WHERE i.id = ?`,
		id,
	).Scan(&issue).Error
	if err != nil {
		return nil, err
	}
	if issue.ID == 0 {
		return nil, nil
	}
	return &issue, nil
}

func (r *repo) ListIssues(ctx context.Context, db *gorm.DB, filter domain.IssueFilter) ([]*domain.IssueReport, error) {
	stmt := db.WithContext(ctx).
		Table("issue_reports AS i").
		Select(issueColumns).
		Joins("JOIN deliveries d ON d.id = i.delivery_id").
		Joins("JOIN employees e ON e.id = i.reported_by").
		Joins("JOIN users u ON u.id = e.user_id")

	if filter.Status != "" {
		stmt = stmt.Where("i.status = ?", filter.Status)
	}
	if filter.ReportedBy != 0 {
		stmt = stmt.Where("i.reported_by = ?", filter.ReportedBy)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(i.created_at < ?) OR (i.created_at = ? AND i.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var issues []*domain.IssueReport
	err := option.Apply(stmt,
		option.ApplyOrder("i.created_at desc, i.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *repo) UpdateIssue(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("issue_reports").
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}
