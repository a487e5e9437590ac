package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/notification/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `id, user_id, campaign_id, subject, message, type, channel, campaign_channels,
	status, read_at, related_object_id, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (
			id, user_id, campaign_id, subject, message, type, channel, campaign_channels,
			status, read_at, related_object_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.UserID,
		n.CampaignID,
		n.Subject,
		n.Message,
		n.Type,
		n.Channel,
		n.CampaignChannels,
		n.Status,
		n.ReadAt,
		n.RelatedObjectID,
		n.Metadata,
		n.CreatedAt,
		n.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var notification domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM notifications WHERE id = ?`,
		id,
	).Scan(&notification).Error
	if err != nil {
		return nil, err
	}
	if notification.ID == 0 {
		return nil, nil
	}
	return &notification, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Notification, error) {
	stmt := db.WithContext(ctx).
		Table("notifications").
		Select(selectColumns).
		Where("user_id = ?", filter.UserID)

	if filter.UnreadOnly {
		stmt = stmt.Where("status = ?", domain.StatusSent)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var notifications []*domain.Notification
	err := option.Apply(stmt,
		option.ApplyOrder("created_at desc, id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND status = ?`,
		userID,
		domain.StatusSent,
	).Scan(&count).Error
	return count, err
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, id, userID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET status = ?, read_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = ?`,
		domain.StatusRead,
		now,
		now,
		id,
		userID,
		domain.StatusSent,
	)
	return result.RowsAffected, result.Error
}

const recipientColumns = `c.id AS customer_id, c.user_id, u.display_name, u.email,
	COALESCE(NULLIF(c.phone, ''), u.phone) AS phone`

// Recipients resolves an audience to active customers, each listed once.
func (r *repo) Recipients(ctx context.Context, db *gorm.DB, filter domain.RecipientFilter) ([]domain.Recipient, error) {
	stmt := db.WithContext(ctx).
		Table("customers AS c").
		Select(recipientColumns).
		Joins("JOIN users u ON u.id = c.user_id").
		Where("c.is_active = ?", true)

	switch filter.Audience {
	case domain.AudienceOverduePayments:
		stmt = stmt.Where(`EXISTS (
			SELECT 1 FROM payments p JOIN subscriptions s ON s.id = p.subscription_id
			WHERE s.customer_id = c.id
			  AND (p.status = 'overdue' OR (p.status = 'pending' AND p.due_date < ?)))`,
			filter.Today,
		)
	case domain.AudienceExpiringSubscriptions:
		stmt = stmt.Where(`EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.customer_id = c.id AND s.status = 'active'
			  AND s.end_date >= ? AND s.end_date <= ?)`,
			filter.Today,
			filter.WindowEnd,
		)
	case domain.AudienceSpecificCustomers:
		stmt = stmt.Where("c.id IN ?", filter.CustomerIDs)
	}

	var recipients []domain.Recipient
	if err := stmt.Order("c.id").Scan(&recipients).Error; err != nil {
		return nil, err
	}
	return recipients, nil
}
