package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/commission/domain"
	"github.com/smallbiznis/newsexpress/internal/config"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	EmployeeSvc  employeedomain.Service
	AgencyConfig *config.AgencyConfigHolder
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	employeeSvc  employeedomain.Service
	agencyConfig *config.AgencyConfigHolder
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("commission.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		employeeSvc:  p.EmployeeSvc,
		agencyConfig: p.AgencyConfig,
		auditSvc:     p.AuditSvc,
	}
}

// Generate creates one commission per active delivery person with completed
// deliveries in the period. Existing commissions are left untouched.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return domain.GenerateResponse{}, domain.ErrInvalidPeriod
	}
	start := clock.DateOf(req.PeriodStart)
	end := clock.DateOf(req.PeriodEnd)
	if end.Before(start) {
		return domain.GenerateResponse{}, domain.ErrInvalidPeriod
	}

	persons, err := s.employeeSvc.ActiveDeliveryPersons(ctx)
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	rate := s.agencyConfig.Get().CommissionRateBps

	resp := domain.GenerateResponse{Created: []domain.Commission{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tallies, err := s.repo.Tally(ctx, tx, start, end)
		if err != nil {
			return err
		}
		byPerson := make(map[snowflake.ID]domain.Tally, len(tallies))
		for _, tally := range tallies {
			byPerson[tally.DeliveryPersonID] = tally
		}

		now := s.clock.Now()
		for _, person := range persons {
			tally, ok := byPerson[person.ID]
			if !ok || tally.TotalDeliveries == 0 {
				continue
			}
			commission := domain.Commission{
				ID:                 s.genID.Generate(),
				DeliveryPersonID:   person.ID,
				PeriodStart:        start,
				PeriodEnd:          end,
				TotalDeliveries:    tally.TotalDeliveries,
				TotalCollections:   tally.TotalCollections,
				RateBps:            rate,
				Amount:             domain.Amount(tally.TotalCollections, rate),
				Status:             domain.StatusPending,
				CreatedAt:          now,
				UpdatedAt:          now,
				DeliveryPersonName: person.DisplayName,
			}
			rows, err := s.repo.Insert(ctx, tx, &commission)
			if err != nil {
				return err
			}
			if rows == 0 {
				resp.Skipped++
				continue
			}
			resp.Created = append(resp.Created, commission)
		}
		return nil
	})
	if err != nil {
		return domain.GenerateResponse{}, err
	}

	s.log.Info("generated commissions",
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int64("rate_bps", rate),
		zap.Int("created", len(resp.Created)),
		zap.Int("skipped", resp.Skipped),
	)
	for i := range resp.Created {
		s.emitAudit(ctx, "commission.generated", &resp.Created[i], nil)
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetCommissionRequest) (*domain.Commission, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	commission, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if commission == nil || (req.DeliveryPersonID != 0 && commission.DeliveryPersonID != req.DeliveryPersonID) {
		return nil, domain.ErrNotFound
	}
	return commission, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCommissionRequest) (domain.ListCommissionResponse, error) {
	filter := domain.ListFilter{Limit: req.Size()}
	if strings.TrimSpace(req.DeliveryPersonID) != "" {
		id, err := parseID(req.DeliveryPersonID, domain.ErrInvalidDeliveryPersonID)
		if err != nil {
			return domain.ListCommissionResponse{}, err
		}
		filter.DeliveryPersonID = id
	}
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return domain.ListCommissionResponse{}, domain.ErrInvalidStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListCommissionResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListCommissionResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListCommissionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(c *domain.Commission) string {
		return pagination.CursorFor(c.ID.String(), c.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	commissions := make([]domain.Commission, 0, len(items))
	for _, item := range items {
		commissions = append(commissions, *item)
	}
	return domain.ListCommissionResponse{PageInfo: *pageInfo, Commissions: commissions}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Commission, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	target := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	var (
		commission *domain.Commission
		from       domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		from = locked.Status
		if !from.CanMoveTo(target) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		rows, err := s.repo.UpdateStatus(ctx, tx, id, from, target, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvalidTransition
		}
		locked.Status = target
		locked.UpdatedAt = now
		commission = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "commission.status_changed", commission, map[string]any{"from": string(from)})
	return commission, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, commission *domain.Commission, extra map[string]any) {
	if s.auditSvc == nil || commission == nil {
		return
	}
	metadata := map[string]any{
		"delivery_person_id": commission.DeliveryPersonID.String(),
		"period_start":       commission.PeriodStart.Format(time.DateOnly),
		"period_end":         commission.PeriodEnd.Format(time.DateOnly),
		"amount":             commission.Amount,
		"status":             string(commission.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := commission.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "commission", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
