package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `s.id, s.customer_id, s.publication_id, s.start_date, s.end_date,
	s.delivery_address, s.quantity, s.status, s.pause_status, s.pause_start_date,
	s.pause_end_date, s.pause_reason, s.pause_notes, s.pause_requested_at,
	s.pause_processed_at, s.pause_processed_by, s.created_at, s.updated_at,
	p.title AS publication_title, p.monthly_price`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, customer_id, publication_id, start_date, end_date, delivery_address,
			quantity, status, pause_status, pause_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.CustomerID,
		s.PublicationID,
		s.StartDate,
		s.EndDate,
		s.DeliveryAddress,
		s.Quantity,
		s.Status,
		s.PauseStatus,
		s.PauseNotes,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(ctx, db, id, " FOR UPDATE OF s")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, lock string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM subscriptions s JOIN publications p ON p.id = s.publication_id
		 WHERE s.id = ?`+lock,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.CustomerRef, error) {
	var ref subscriptiondomain.CustomerRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, address, is_active FROM customers WHERE id = ?`,
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

func (r *repo) List(ctx context.Context, db *gorm.DB, filter subscriptiondomain.ListFilter) ([]*subscriptiondomain.Subscription, error) {
	stmt := db.WithContext(ctx).
		Table("subscriptions AS s").
		Select(selectColumns).
		Joins("JOIN publications p ON p.id = s.publication_id")

	if filter.CustomerID != 0 {
		stmt = stmt.Where("s.customer_id = ?", filter.CustomerID)
	}
	if filter.PublicationID != 0 {
		stmt = stmt.Where("s.publication_id = ?", filter.PublicationID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("s.status = ?", filter.Status)
	}
	if filter.PauseStatus != "" {
		stmt = stmt.Where("s.pause_status = ?", filter.PauseStatus)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(s.created_at < ?) OR (s.created_at = ? AND s.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var subscriptions []*subscriptiondomain.Subscription
	err := option.Apply(stmt,
		option.ApplyOrder("s.created_at desc, s.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) RequestPause(ctx context.Context, db *gorm.DB, s *subscriptiondomain.Subscription) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET pause_status = ?, pause_start_date = ?, pause_end_date = ?, pause_reason = ?,
		     pause_notes = ?, pause_requested_at = ?, pause_processed_at = NULL,
		     pause_processed_by = NULL, updated_at = ?
		 WHERE id = ? AND status = ? AND pause_status <> ?`,
		subscriptiondomain.PausePending,
		s.PauseStartDate,
		s.PauseEndDate,
		s.PauseReason,
		s.PauseNotes,
		s.PauseRequestedAt,
		s.UpdatedAt,
		s.ID,
		subscriptiondomain.StatusActive,
		subscriptiondomain.PausePending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ApprovePause(ctx context.Context, db *gorm.DB, s *subscriptiondomain.Subscription) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, pause_status = ?, end_date = ?, pause_processed_at = ?,
		     pause_processed_by = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND pause_status = ?`,
		subscriptiondomain.StatusPaused,
		subscriptiondomain.PauseApproved,
		s.EndDate,
		s.PauseProcessedAt,
		s.PauseProcessedBy,
		s.UpdatedAt,
		s.ID,
		subscriptiondomain.StatusActive,
		subscriptiondomain.PausePending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) RejectPause(ctx context.Context, db *gorm.DB, s *subscriptiondomain.Subscription) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET pause_status = ?, pause_processed_at = ?, pause_processed_by = ?, updated_at = ?
		 WHERE id = ? AND pause_status = ?`,
		subscriptiondomain.PauseRejected,
		s.PauseProcessedAt,
		s.PauseProcessedBy,
		s.UpdatedAt,
		s.ID,
		subscriptiondomain.PausePending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, s *subscriptiondomain.Subscription, from subscriptiondomain.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, pause_status = ?, pause_processed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		s.Status,
		s.PauseStatus,
		s.PauseProcessedAt,
		s.UpdatedAt,
		s.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

// ExpireEnded also settles any open pause so an expired row never looks
// pending or approved.
func (r *repo) ExpireEnded(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?,
		     pause_status = CASE
		         WHEN pause_status = ? THEN ?
		         WHEN pause_status = ? THEN ?
		         ELSE pause_status
		     END,
		     updated_at = ?
		 WHERE status IN (?, ?) AND end_date < ?`,
		subscriptiondomain.StatusExpired,
		subscriptiondomain.PausePending, subscriptiondomain.PauseRejected,
		subscriptiondomain.PauseApproved, subscriptiondomain.PauseNoRequest,
		now,
		subscriptiondomain.StatusActive, subscriptiondomain.StatusPaused,
		today,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ResumeFinishedPauses(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, pause_status = ?, updated_at = ?
		 WHERE status = ? AND pause_status = ? AND pause_end_date <= ?`,
		subscriptiondomain.StatusActive,
		subscriptiondomain.PauseNoRequest,
		now,
		subscriptiondomain.StatusPaused,
		subscriptiondomain.PauseApproved,
		today,
	)
	return result.RowsAffected, result.Error
}
