package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/customer/domain"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuthSvc  authdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	authSvc  authdomain.Service
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		authSvc:  p.AuthSvc,
		auditSvc: p.AuditSvc,
	}
}

// Register creates the login and the customer record in one transaction.
func (s *Service) Register(ctx context.Context, req domain.RegisterCustomerRequest) (*domain.Customer, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, domain.ErrInvalidAddress
	}

	var customerID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.authSvc.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Phone:       req.Phone,
			Role:        principal.RoleCustomer,
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		customer := &domain.Customer{
			ID:        s.genID.Generate(),
			UserID:    user.ID,
			Address:   address,
			Phone:     strings.TrimSpace(req.Phone),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, customer); err != nil {
			return err
		}
		customerID = customer.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	customer, err := s.load(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "customer.registered", customer, nil)
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customerID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, customerID)
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (*domain.Customer, error) {
	customer, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListFilter{
		Query:    req.Query,
		IsActive: req.IsActive,
		Limit:    req.Size(),
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListCustomerResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListCustomerResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(c *domain.Customer) string {
		return pagination.CursorFor(c.ID.String(), c.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		customers = append(customers, *item)
	}
	return domain.ListCustomerResponse{PageInfo: *pageInfo, Customers: customers}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (*domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if address == "" {
			return nil, domain.ErrInvalidAddress
		}
		fields["address"] = address
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}

	affected, err := s.repo.UpdateFields(ctx, s.db, id, fields)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	customer, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "customer.updated", customer, nil)
	return customer, nil
}

// SetActive toggles the customer and its login together.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Customer, error) {
	customerID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.load(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if _, err := s.repo.UpdateFields(ctx, tx, customerID, map[string]any{
			"is_active":  active,
			"updated_at": s.clock.Now(),
		}); err != nil {
			return err
		}
		return s.authSvc.SetActive(ctx, tx, customer.UserID, active)
	})
	if err != nil {
		return nil, err
	}

	customer, err := s.load(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "customer.active_changed", customer, map[string]any{"is_active": active})
	return customer, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, customer *domain.Customer, extra map[string]any) {
	if s.auditSvc == nil || customer == nil {
		return
	}
	metadata := map[string]any{
		"user_id": customer.UserID.String(),
		"email":   customer.Email,
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := customer.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "customer", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

