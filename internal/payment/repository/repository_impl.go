package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `p.id, p.subscription_id, p.amount, p.method, p.status, p.payment_date,
	p.due_date, p.receipt_number, p.recorded_by, p.created_at, p.updated_at, s.customer_id`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, subscription_id, amount, method, status, payment_date, due_date,
			receipt_number, recorded_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SubscriptionID,
		p.Amount,
		p.Method,
		p.Status,
		p.PaymentDate,
		p.DueDate,
		p.ReceiptNumber,
		p.RecordedBy,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.find(ctx, db, id, " FOR UPDATE OF p")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM payments p JOIN subscriptions s ON s.id = p.subscription_id
		 WHERE p.id = ?`+suffix,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SubscriptionRef, error) {
	var ref domain.SubscriptionRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, status FROM subscriptions WHERE id = ?`,
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

func (r *repo) FindReceipt(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := db.WithContext(ctx).Raw(
		`SELECT p.id AS payment_id, p.receipt_number, s.customer_id,
			u.display_name AS customer_name, u.email AS customer_email,
			pub.title AS publication_title, p.amount, p.method, p.status,
			p.payment_date, p.due_date
		 FROM payments p
		 JOIN subscriptions s ON s.id = p.subscription_id
		 JOIN customers c ON c.id = s.customer_id
		 JOIN users u ON u.id = c.user_id
		 JOIN publications pub ON pub.id = s.publication_id
		 WHERE p.id = ?`,
		id,
	).Scan(&receipt).Error
	if err != nil {
		return nil, err
	}
	if receipt.PaymentID == 0 {
		return nil, nil
	}
	return &receipt, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).
		Table("payments AS p").
		Select(selectColumns).
		Joins("JOIN subscriptions s ON s.id = p.subscription_id")

	if filter.SubscriptionID != 0 {
		stmt = stmt.Where("p.subscription_id = ?", filter.SubscriptionID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("s.customer_id = ?", filter.CustomerID)
	}
	switch filter.Status {
	case "":
	case domain.StatusOverdue:
		stmt = stmt.Where("(p.status = ? OR (p.status = ? AND p.due_date < ?))",
			domain.StatusOverdue, domain.StatusPending, filter.Today)
	case domain.StatusPending:
		stmt = stmt.Where("p.status = ? AND p.due_date >= ?", domain.StatusPending, filter.Today)
	default:
		stmt = stmt.Where("p.status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var payments []*domain.Payment
	err := option.Apply(stmt,
		option.ApplyOrder("p.created_at desc, p.id desc"),
		option.ApplyPagination(filter.Limit),
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.Status, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Table("payments").
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ?
		 WHERE status = ? AND due_date < ?`,
		domain.StatusOverdue,
		now,
		domain.StatusPending,
		today,
	)
	return result.RowsAffected, result.Error
}
