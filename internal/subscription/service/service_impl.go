package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/newsexpress/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           subscriptiondomain.Repository
	PublicationSvc publicationdomain.Service
	PaymentSvc     paymentdomain.Service
	AgencyConfig   *config.AgencyConfigHolder
	AuditSvc       auditdomain.Service `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           subscriptiondomain.Repository
	publicationSvc publicationdomain.Service
	paymentSvc     paymentdomain.Service
	agencyConfig   *config.AgencyConfigHolder
	auditSvc       auditdomain.Service
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("subscription.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		publicationSvc: p.PublicationSvc,
		paymentSvc:     p.PaymentSvc,
		agencyConfig:   p.AgencyConfig,
		auditSvc:       p.AuditSvc,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.CreateSubscriptionResponse, error) {
	customerID, err := parseID(req.CustomerID, subscriptiondomain.ErrInvalidCustomerID)
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}
	publicationID, err := parseID(req.PublicationID, subscriptiondomain.ErrInvalidPublicationID)
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return subscriptiondomain.CreateSubscriptionResponse{}, subscriptiondomain.ErrInvalidDateRange
	}
	start := clock.DateOf(req.StartDate)
	end := clock.DateOf(req.EndDate)
	if !start.Before(end) {
		return subscriptiondomain.CreateSubscriptionResponse{}, subscriptiondomain.ErrInvalidDateRange
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return subscriptiondomain.CreateSubscriptionResponse{}, subscriptiondomain.ErrInvalidQuantity
	}
	plan := subscriptiondomain.PaymentPlan(strings.ToLower(strings.TrimSpace(string(req.PaymentPlan))))
	if plan != subscriptiondomain.PlanNone && plan.Months() == 0 {
		return subscriptiondomain.CreateSubscriptionResponse{}, subscriptiondomain.ErrInvalidPaymentPlan
	}

	var resp subscriptiondomain.CreateSubscriptionResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return subscriptiondomain.ErrCustomerNotFound
		}
		if !customer.IsActive {
			return subscriptiondomain.ErrCustomerInactive
		}

		publication, err := s.publicationSvc.Lookup(ctx, tx, publicationID)
		if err != nil {
			return err
		}
		if !publication.IsAvailable {
			return subscriptiondomain.ErrPublicationUnavailable
		}

		address := strings.TrimSpace(req.DeliveryAddress)
		if address == "" {
			address = customer.Address
		}
		if address == "" {
			return subscriptiondomain.ErrInvalidAddress
		}

		now := s.clock.Now()
		subscription := &subscriptiondomain.Subscription{
			ID:               s.genID.Generate(),
			CustomerID:       customerID,
			PublicationID:    publicationID,
			StartDate:        start,
			EndDate:          end,
			DeliveryAddress:  address,
			Quantity:         quantity,
			Status:           subscriptiondomain.StatusActive,
			PauseStatus:      subscriptiondomain.PauseNoRequest,
			CreatedAt:        now,
			UpdatedAt:        now,
			PublicationTitle: publication.Title,
			MonthlyPrice:     publication.MonthlyPrice,
		}
		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			return err
		}
		resp.Subscription = subscription

		if plan == subscriptiondomain.PlanNone {
			return nil
		}

		dueDate := start
		if req.SelfService {
			dueDate = clock.Today(s.clock).AddDate(0, 0, s.agencyConfig.Get().SelfSubscribeDueDays)
		}
		method := req.PaymentMethod
		if method == "" {
			method = paymentdomain.MethodCash
		}
		payment, err := s.paymentSvc.Record(ctx, tx, paymentdomain.RecordPaymentRequest{
			SubscriptionID: subscription.ID.String(),
			Amount:         publication.MonthlyPrice * plan.Months() * int64(quantity),
			Method:         method,
			DueDate:        &dueDate,
			RecordedBy:     req.RecordedBy,
		})
		if err != nil {
			return err
		}
		resp.InitialPayment = payment
		return nil
	})
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}

	planLabel := string(plan)
	if planLabel == "" {
		planLabel = "none"
	}
	s.obsMetrics.RecordSubscriptionCreated(ctx, planLabel)
	s.emitAudit(ctx, "subscription.created", resp.Subscription, map[string]any{"payment_plan": planLabel})
	return resp, nil
}

func (s *Service) Get(ctx context.Context, req subscriptiondomain.GetSubscriptionRequest) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(req.ID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	subscription, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil || !owns(req.CustomerID, subscription) {
		return nil, subscriptiondomain.ErrNotFound
	}
	return subscription, nil
}

func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	filter := subscriptiondomain.ListFilter{Limit: req.Size()}

	var err error
	if strings.TrimSpace(req.CustomerID) != "" {
		if filter.CustomerID, err = parseID(req.CustomerID, subscriptiondomain.ErrInvalidCustomerID); err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
	}
	if strings.TrimSpace(req.PublicationID) != "" {
		if filter.PublicationID, err = parseID(req.PublicationID, subscriptiondomain.ErrInvalidPublicationID); err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
	}
	if req.Status != "" {
		filter.Status = subscriptiondomain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidStatus
		}
	}
	if req.PauseStatus != "" {
		filter.PauseStatus = subscriptiondomain.PauseStatus(strings.ToLower(strings.TrimSpace(string(req.PauseStatus))))
		if !filter.PauseStatus.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPauseStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &subscriptiondomain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(sub *subscriptiondomain.Subscription) string {
		return pagination.CursorFor(sub.ID.String(), sub.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	subscriptions := make([]subscriptiondomain.Subscription, 0, len(items))
	for _, item := range items {
		subscriptions = append(subscriptions, *item)
	}
	return subscriptiondomain.ListSubscriptionResponse{PageInfo: *pageInfo, Subscriptions: subscriptions}, nil
}

func (s *Service) ListPendingPauses(ctx context.Context, page pagination.Pagination) (subscriptiondomain.ListSubscriptionResponse, error) {
	return s.List(ctx, subscriptiondomain.ListSubscriptionRequest{
		Pagination:  page,
		PauseStatus: subscriptiondomain.PausePending,
	})
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

// owns reports whether the caller may see subscription. A zero customerID
// means staff access.
func owns(customerID snowflake.ID, subscription *subscriptiondomain.Subscription) bool {
	return customerID == 0 || subscription.CustomerID == customerID
}

func (s *Service) emitAudit(ctx context.Context, action string, subscription *subscriptiondomain.Subscription, extra map[string]any) {
	if s.auditSvc == nil || subscription == nil {
		return
	}
	metadata := map[string]any{
		"customer_id":    subscription.CustomerID.String(),
		"publication_id": subscription.PublicationID.String(),
		"status":         string(subscription.Status),
		"pause_status":   string(subscription.PauseStatus),
		"end_date":       subscription.EndDate.Format(time.DateOnly),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := subscription.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "subscription", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
