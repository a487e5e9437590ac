package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/newsexpress/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CompletedPaymentsSince(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.PaymentLine, error) {
	var lines []domain.PaymentLine
	err := db.WithContext(ctx).Raw(
		`SELECT payment_date, amount FROM payments
		 WHERE status = 'completed' AND payment_date IS NOT NULL AND payment_date >= ?
		 ORDER BY payment_date ASC, id ASC`,
		since,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) CommissionSummaries(ctx context.Context, db *gorm.DB) ([]domain.CommissionSummary, error) {
	var items []domain.CommissionSummary
	err := db.WithContext(ctx).Raw(
		`SELECT c.delivery_person_id, u.display_name AS delivery_person_name,
			SUM(c.amount) AS total,
			SUM(CASE WHEN c.status = 'pending' THEN c.amount ELSE 0 END) AS pending,
			SUM(CASE WHEN c.status = 'approved' THEN c.amount ELSE 0 END) AS approved,
			SUM(CASE WHEN c.status = 'paid' THEN c.amount ELSE 0 END) AS paid,
			COUNT(c.id) AS records
		 FROM commissions c
		 JOIN employees e ON e.id = c.delivery_person_id
		 JOIN users u ON u.id = e.user_id
		 GROUP BY c.delivery_person_id, u.display_name
		 ORDER BY u.display_name ASC, c.delivery_person_id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) PublicationSummaries(ctx context.Context, db *gorm.DB) ([]domain.PublicationSummary, error) {
	var items []domain.PublicationSummary
	err := db.WithContext(ctx).Raw(
		`SELECT pub.id AS publication_id, pub.title, pub.type,
			COUNT(s.id) AS total,
			SUM(CASE WHEN s.status = 'active' THEN 1 ELSE 0 END) AS active,
			SUM(CASE WHEN s.status = 'paused' THEN 1 ELSE 0 END) AS paused,
			SUM(CASE WHEN s.status = 'cancelled' THEN 1 ELSE 0 END) AS cancelled
		 FROM subscriptions s
		 JOIN publications pub ON pub.id = s.publication_id
		 GROUP BY pub.id, pub.title, pub.type
		 ORDER BY total DESC, pub.title ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
