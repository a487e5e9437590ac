package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, req paymentdomain.RecordPaymentRequest) (*paymentdomain.Payment, error) {
	if tx == nil {
		tx = s.db
	}

	subscriptionID, err := parseID(req.SubscriptionID, paymentdomain.ErrInvalidSubscriptionID)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	method := paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(req.Method))))
	if !method.Valid() {
		return nil, paymentdomain.ErrInvalidMethod
	}

	ref, err := s.repo.FindSubscription(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if ref == nil || (req.CustomerID != 0 && ref.CustomerID != req.CustomerID) {
		return nil, paymentdomain.ErrSubscriptionNotFound
	}

	today := clock.Today(s.clock)
	dueDate := today
	if req.DueDate != nil {
		dueDate = clock.DateOf(*req.DueDate)
	}

	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:             s.genID.Generate(),
		SubscriptionID: subscriptionID,
		Amount:         req.Amount,
		Method:         method,
		Status:         paymentdomain.StatusPending,
		DueDate:        dueDate,
		CustomerID:     ref.CustomerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payment.ReceiptNumber = paymentdomain.ReceiptNumberFor(payment.ID)
	if req.Collected {
		payment.Status = paymentdomain.StatusCompleted
		payment.PaymentDate = &today
	}
	if req.RecordedBy != 0 {
		recordedBy := req.RecordedBy
		payment.RecordedBy = &recordedBy
	}
	applyOverdueGuard(payment, today)

	if err := s.repo.Insert(ctx, tx, payment); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(payment.Status), string(payment.Method))
	s.emitAudit(ctx, "payment.recorded", payment, nil)
	return payment, nil
}

func (s *Service) Get(ctx context.Context, req paymentdomain.GetPaymentRequest) (*paymentdomain.Payment, error) {
	id, err := parseID(req.ID, paymentdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	payment, err := s.load(ctx, s.db, id, req.CustomerID)
	if err != nil {
		return nil, err
	}
	payment.Status = payment.EffectiveStatus(clock.Today(s.clock))
	return payment, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	today := clock.Today(s.clock)
	filter := paymentdomain.ListFilter{
		Today: today,
		Limit: req.Size(),
	}

	var err error
	if strings.TrimSpace(req.SubscriptionID) != "" {
		if filter.SubscriptionID, err = parseID(req.SubscriptionID, paymentdomain.ErrInvalidSubscriptionID); err != nil {
			return paymentdomain.ListPaymentResponse{}, err
		}
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		if filter.CustomerID, err = parseID(req.CustomerID, paymentdomain.ErrInvalidCustomerID); err != nil {
			return paymentdomain.ListPaymentResponse{}, err
		}
	}
	if req.Status != "" {
		filter.Status = paymentdomain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &paymentdomain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(p *paymentdomain.Payment) string {
		return pagination.CursorFor(p.ID.String(), p.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		item.Status = item.EffectiveStatus(today)
		payments = append(payments, *item)
	}
	return paymentdomain.ListPaymentResponse{PageInfo: *pageInfo, Payments: payments}, nil
}

// Pay completes a pending or overdue payment on behalf of its customer.
func (s *Service) Pay(ctx context.Context, req paymentdomain.PayRequest) (*paymentdomain.Payment, error) {
	id, err := parseID(req.ID, paymentdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	method := paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(req.Method))))
	if method != "" && !method.Valid() {
		return nil, paymentdomain.ErrInvalidMethod
	}

	var paid *paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.lockForUpdate(ctx, tx, id, req.CustomerID)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusPending && payment.Status != paymentdomain.StatusOverdue {
			return paymentdomain.ErrInvalidTransition
		}
		if method == "" {
			method = payment.Method
		}

		today := clock.Today(s.clock)
		affected, err := s.repo.UpdateStatus(ctx, tx, id,
			[]paymentdomain.Status{paymentdomain.StatusPending, paymentdomain.StatusOverdue},
			map[string]any{
				"status":       paymentdomain.StatusCompleted,
				"method":       method,
				"payment_date": today,
				"updated_at":   s.clock.Now(),
			},
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			return paymentdomain.ErrInvalidTransition
		}

		payment.Status = paymentdomain.StatusCompleted
		payment.Method = method
		payment.PaymentDate = &today
		paid = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(paid.Status), string(paid.Method))
	s.emitAudit(ctx, "payment.paid", paid, nil)
	return paid, nil
}

// MarkFailed records a payment that could not be collected.
func (s *Service) MarkFailed(ctx context.Context, id string) (*paymentdomain.Payment, error) {
	paymentID, err := parseID(id, paymentdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var failed *paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.lockForUpdate(ctx, tx, paymentID, 0)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusPending && payment.Status != paymentdomain.StatusOverdue {
			return paymentdomain.ErrInvalidTransition
		}

		affected, err := s.repo.UpdateStatus(ctx, tx, paymentID,
			[]paymentdomain.Status{paymentdomain.StatusPending, paymentdomain.StatusOverdue},
			map[string]any{
				"status":     paymentdomain.StatusFailed,
				"updated_at": s.clock.Now(),
			},
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			return paymentdomain.ErrInvalidTransition
		}
		payment.Status = paymentdomain.StatusFailed
		failed = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(failed.Status), string(failed.Method))
	s.emitAudit(ctx, "payment.failed", failed, nil)
	return failed, nil
}

func (s *Service) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	affected, err := s.repo.MarkOverdue(ctx, s.db, clock.DateOf(today), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Info("payments marked overdue", zap.Int64("count", affected))
	}
	return affected, nil
}

func (s *Service) Receipt(ctx context.Context, req paymentdomain.GetPaymentRequest) (*paymentdomain.Receipt, error) {
	id, err := parseID(req.ID, paymentdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.repo.FindReceipt(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil || (req.CustomerID != 0 && receipt.CustomerID != req.CustomerID) {
		return nil, paymentdomain.ErrNotFound
	}
	if receipt.Status == paymentdomain.StatusPending && receipt.DueDate.Before(clock.Today(s.clock)) {
		receipt.Status = paymentdomain.StatusOverdue
	}
	return receipt, nil
}

// lockForUpdate loads the row under a lock and persists the overdue
// transition if the payment is past due.
func (s *Service) lockForUpdate(ctx context.Context, tx *gorm.DB, id, customerID snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || (customerID != 0 && payment.CustomerID != customerID) {
		return nil, paymentdomain.ErrNotFound
	}
	if applyOverdueGuard(payment, clock.Today(s.clock)) {
		if _, err := s.repo.UpdateStatus(ctx, tx, id,
			[]paymentdomain.Status{paymentdomain.StatusPending},
			map[string]any{"status": paymentdomain.StatusOverdue, "updated_at": s.clock.Now()},
		); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id, customerID snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || (customerID != 0 && payment.CustomerID != customerID) {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, payment *paymentdomain.Payment, extra map[string]any) {
	if s.auditSvc == nil || payment == nil {
		return
	}
	metadata := map[string]any{
		"subscription_id": payment.SubscriptionID.String(),
		"receipt_number":  payment.ReceiptNumber,
		"amount":          payment.Amount,
		"method":          string(payment.Method),
		"status":          string(payment.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := payment.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "payment", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// applyOverdueGuard turns a past-due pending payment overdue and reports
// whether it did.
func applyOverdueGuard(payment *paymentdomain.Payment, today time.Time) bool {
	if !payment.PastDue(today) {
		return false
	}
	payment.Status = paymentdomain.StatusOverdue
	return true
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
