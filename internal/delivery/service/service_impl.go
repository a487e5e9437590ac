package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/delivery/domain"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const subscriptionActive = "active"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	EmployeeSvc employeedomain.Service
	AuditSvc    auditdomain.Service `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	employeeSvc employeedomain.Service
	auditSvc    auditdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("delivery.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		employeeSvc: p.EmployeeSvc,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeliveryRequest) (*domain.Delivery, error) {
	subscriptionID, err := parseID(req.SubscriptionID, domain.ErrInvalidSubscriptionID)
	if err != nil {
		return nil, err
	}
	if req.DeliveryDate.IsZero() {
		return nil, domain.ErrInvalidDeliveryDate
	}
	var personID *snowflake.ID
	if strings.TrimSpace(req.DeliveryPersonID) != "" {
		id, err := parseID(req.DeliveryPersonID, domain.ErrInvalidDeliveryPersonID)
		if err != nil {
			return nil, err
		}
		personID = &id
	}

	var created *domain.Delivery
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireActiveSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		if personID != nil {
			if _, err := s.employeeSvc.RequireDeliveryPerson(ctx, tx, *personID); err != nil {
				return err
			}
		}

		delivery := s.newDelivery(subscriptionID, personID, req.DeliveryDate)
		delivery.Notes = strings.TrimSpace(req.Notes)
		rows, err := s.repo.Insert(ctx, tx, delivery)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrAlreadyScheduled
		}
		created, err = s.repo.FindByID(ctx, tx, delivery.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "delivery.created", created, nil)
	return created, nil
}

// BulkCreate schedules one delivery per subscription for the same person and
// day. Subscriptions already scheduled that day are skipped; any inactive
// subscription aborts the whole batch.
func (s *Service) BulkCreate(ctx context.Context, req domain.BulkCreateRequest) (domain.BulkCreateResponse, error) {
	if len(req.SubscriptionIDs) == 0 {
		return domain.BulkCreateResponse{}, domain.ErrInvalidSubscriptionID
	}
	personID, err := parseID(req.DeliveryPersonID, domain.ErrInvalidDeliveryPersonID)
	if err != nil {
		return domain.BulkCreateResponse{}, err
	}
	if req.DeliveryDate.IsZero() {
		return domain.BulkCreateResponse{}, domain.ErrInvalidDeliveryDate
	}
	subscriptionIDs := make([]snowflake.ID, 0, len(req.SubscriptionIDs))
	for _, raw := range req.SubscriptionIDs {
		id, err := parseID(raw, domain.ErrInvalidSubscriptionID)
		if err != nil {
			return domain.BulkCreateResponse{}, err
		}
		subscriptionIDs = append(subscriptionIDs, id)
	}

	var resp domain.BulkCreateResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.employeeSvc.RequireDeliveryPerson(ctx, tx, personID); err != nil {
			return err
		}
		for _, subscriptionID := range subscriptionIDs {
			if err := s.requireActiveSubscription(ctx, tx, subscriptionID); err != nil {
				return err
			}
			rows, err := s.repo.Insert(ctx, tx, s.newDelivery(subscriptionID, &personID, req.DeliveryDate))
			if err != nil {
				return err
			}
			if rows == 0 {
				resp.Skipped++
				continue
			}
			resp.Created++
		}
		return nil
	})
	if err != nil {
		return domain.BulkCreateResponse{}, err
	}

	s.log.Info("scheduled deliveries",
		zap.String("delivery_person_id", personID.String()),
		zap.Time("delivery_date", clock.DateOf(req.DeliveryDate)),
		zap.Int("created", resp.Created),
		zap.Int("skipped", resp.Skipped),
	)
	return resp, nil
}

func (s *Service) newDelivery(subscriptionID snowflake.ID, personID *snowflake.ID, date time.Time) *domain.Delivery {
	now := s.clock.Now()
	return &domain.Delivery{
		ID:               s.genID.Generate(),
		SubscriptionID:   subscriptionID,
		DeliveryPersonID: personID,
		DeliveryDate:     clock.DateOf(date),
		Status:           domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *Service) requireActiveSubscription(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	ref, err := s.repo.FindSubscription(ctx, tx, id)
	if err != nil {
		return err
	}
	if ref == nil {
		return domain.ErrSubscriptionNotFound
	}
	if ref.Status != subscriptionActive {
		return domain.ErrSubscriptionNotActive
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	deliveryID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, deliveryID)
}

func (s *Service) List(ctx context.Context, req domain.ListDeliveryRequest) (domain.ListDeliveryResponse, error) {
	filter := domain.ListFilter{
		CustomerID: req.CustomerID,
		Unassigned: req.Unassigned,
		Limit:      req.Size(),
	}
	if strings.TrimSpace(req.DeliveryPersonID) != "" {
		id, err := parseID(req.DeliveryPersonID, domain.ErrInvalidDeliveryPersonID)
		if err != nil {
			return domain.ListDeliveryResponse{}, err
		}
		filter.DeliveryPersonID = id
	}
	if req.Date != nil {
		date := clock.DateOf(*req.Date)
		filter.Date = &date
	}
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return domain.ListDeliveryResponse{}, domain.ErrInvalidStatus
		}
	}

	cursor, err := decodeCursor(req.PageToken)
	if err != nil {
		return domain.ListDeliveryResponse{}, err
	}
	filter.Cursor = cursor

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListDeliveryResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(d *domain.Delivery) string {
		return pagination.CursorFor(d.ID.String(), d.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	deliveries := make([]domain.Delivery, 0, len(items))
	for _, item := range items {
		deliveries = append(deliveries, *item)
	}
	return domain.ListDeliveryResponse{PageInfo: *pageInfo, Deliveries: deliveries}, nil
}

func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (*domain.Delivery, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	personID, err := parseID(req.DeliveryPersonID, domain.ErrInvalidDeliveryPersonID)
	if err != nil {
		return nil, err
	}

	var delivery *domain.Delivery
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(ctx, tx, id); err != nil {
			return err
		}
		if _, err := s.employeeSvc.RequireDeliveryPerson(ctx, tx, personID); err != nil {
			return err
		}

		fields := map[string]any{
			"delivery_person_id": personID,
			"updated_at":         s.clock.Now(),
		}
		if req.DeliveryDate != nil {
			fields["delivery_date"] = clock.DateOf(*req.DeliveryDate)
		}
		if _, err := s.repo.UpdateFields(ctx, tx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyScheduled
			}
			return err
		}
		delivery, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "delivery.assigned", delivery, nil)
	return delivery, nil
}

// MarkDelivered completes a delivery and stamps the time. Calling it again
// overwrites the earlier time.
func (s *Service) MarkDelivered(ctx context.Context, req domain.MarkDeliveredRequest) (*domain.Delivery, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	delivery, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !assignedTo(delivery, req.DeliveryPersonID) {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now()
	if _, err := s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"status":       domain.StatusCompleted,
		"delivered_at": now,
		"updated_at":   now,
	}); err != nil {
		return nil, err
	}
	delivery.Status = domain.StatusCompleted
	delivery.DeliveredAt = &now
	delivery.UpdatedAt = now

	s.obsMetrics.RecordDelivery(ctx, string(domain.StatusCompleted))
	return delivery, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Delivery, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	delivery, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	fields := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fields["notes"] = notes
		delivery.Notes = notes
	}
	if status == domain.StatusCompleted && delivery.DeliveredAt == nil {
		fields["delivered_at"] = now
		delivery.DeliveredAt = &now
	}
	if _, err := s.repo.UpdateFields(ctx, s.db, id, fields); err != nil {
		return nil, err
	}
	from := delivery.Status
	delivery.Status = status
	delivery.UpdatedAt = now

	s.obsMetrics.RecordDelivery(ctx, string(status))
	s.emitAudit(ctx, "delivery.status_changed", delivery, map[string]any{"from": string(from)})
	return delivery, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deliveryID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}
	var deleted *domain.Delivery
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.load(ctx, tx, deliveryID)
		if err != nil {
			return err
		}
		if _, err := s.repo.Delete(ctx, tx, deliveryID); err != nil {
			return err
		}
		deleted = delivery
		return nil
	})
	if err != nil {
		return err
	}
	s.emitAudit(ctx, "delivery.deleted", deleted, nil)
	return nil
}

func (s *Service) Workload(ctx context.Context, date time.Time) ([]domain.Workload, error) {
	if date.IsZero() {
		date = clock.Today(s.clock)
	}
	return s.repo.Workload(ctx, s.db, clock.DateOf(date))
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	delivery, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrNotFound
	}
	return delivery, nil
}

// assignedTo reports whether personID may act on delivery. Zero means a
// manager, who may act on any delivery.
func assignedTo(delivery *domain.Delivery, personID snowflake.ID) bool {
	if personID == 0 {
		return true
	}
	return delivery.DeliveryPersonID != nil && *delivery.DeliveryPersonID == personID
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func decodeCursor(token string) (*domain.Cursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	if cursor == nil {
		return nil, nil
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	createdAt, _ := cursor.CreatedAtTime()
	return &domain.Cursor{ID: id, CreatedAt: createdAt}, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, delivery *domain.Delivery, extra map[string]any) {
	if s.auditSvc == nil || delivery == nil {
		return
	}
	metadata := map[string]any{
		"subscription_id": delivery.SubscriptionID.String(),
		"delivery_date":   delivery.DeliveryDate.Format(time.DateOnly),
		"status":          string(delivery.Status),
	}
	if delivery.DeliveryPersonID != nil {
		metadata["delivery_person_id"] = delivery.DeliveryPersonID.String()
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := delivery.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "delivery", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
