package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/employee/domain"
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
		log:      p.Log.Named("employee.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		authSvc:  p.AuthSvc,
		auditSvc: p.AuditSvc,
	}
}

// Create adds a staff login whose role equals the position, plus the
// employee record.
func (s *Service) Create(ctx context.Context, req domain.CreateEmployeeRequest) (*domain.Employee, error) {
	position := domain.Position(strings.ToLower(strings.TrimSpace(string(req.Position))))
	if !position.Valid() {
		return nil, domain.ErrInvalidPosition
	}
	if req.Salary < 0 {
		return nil, domain.ErrInvalidSalary
	}

	hiredAt := clock.Today(s.clock)
	if req.HiredAt != nil {
		hiredAt = clock.DateOf(*req.HiredAt)
	}

	var employeeID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.authSvc.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Phone:       req.Phone,
			Role:        principal.Role(position),
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		employee := &domain.Employee{
			ID:        s.genID.Generate(),
			UserID:    user.ID,
			Position:  position,
			Zone:      strings.TrimSpace(req.Zone),
			Salary:    req.Salary,
			IsActive:  true,
			HiredAt:   hiredAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, employee); err != nil {
			return err
		}
		employeeID = employee.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	employee, err := s.load(ctx, s.db, employeeID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "employee.created", employee, nil)
	return employee, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Employee, error) {
	employeeID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, employeeID)
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (*domain.Employee, error) {
	employee, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrNotFound
	}
	return employee, nil
}

func (s *Service) List(ctx context.Context, req domain.ListEmployeeRequest) (domain.ListEmployeeResponse, error) {
	filter := domain.ListFilter{
		IsActive: req.IsActive,
		Limit:    req.Size(),
	}
	if req.Position != "" {
		filter.Position = domain.Position(strings.ToLower(strings.TrimSpace(string(req.Position))))
		if !filter.Position.Valid() {
			return domain.ListEmployeeResponse{}, domain.ErrInvalidPosition
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListEmployeeResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListEmployeeResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListEmployeeResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(e *domain.Employee) string {
		return pagination.CursorFor(e.ID.String(), e.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	employees := make([]domain.Employee, 0, len(items))
	for _, item := range items {
		employees = append(employees, *item)
	}
	return domain.ListEmployeeResponse{PageInfo: *pageInfo, Employees: employees}, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Employee, error) {
	employeeID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employee, err := s.load(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		if _, err := s.repo.UpdateFields(ctx, tx, employeeID, map[string]any{
			"is_active":  active,
			"updated_at": s.clock.Now(),
		}); err != nil {
			return err
		}
		return s.authSvc.SetActive(ctx, tx, employee.UserID, active)
	})
	if err != nil {
		return nil, err
	}

	employee, err := s.load(ctx, s.db, employeeID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "employee.active_changed", employee, map[string]any{"is_active": active})
	return employee, nil
}

func (s *Service) ActiveDeliveryPersons(ctx context.Context) ([]domain.Employee, error) {
	active := true
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Position: domain.PositionDelivery,
		IsActive: &active,
	})
	if err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(items))
	for _, item := range items {
		employees = append(employees, *item)
	}
	return employees, nil
}

func (s *Service) RequireDeliveryPerson(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Employee, error) {
	if tx == nil {
		tx = s.db
	}
	employee, err := s.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if employee.Position != domain.PositionDelivery {
		return nil, domain.ErrNotDeliveryPerson
	}
	if !employee.IsActive {
		return nil, domain.ErrEmployeeInactive
	}
	return employee, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employee, error) {
	employee, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrNotFound
	}
	return employee, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, employee *domain.Employee, extra map[string]any) {
	if s.auditSvc == nil || employee == nil {
		return
	}
	metadata := map[string]any{
		"user_id":  employee.UserID.String(),
		"position": string(employee.Position),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := employee.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "employee", &targetID, metadata); err != nil {
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
