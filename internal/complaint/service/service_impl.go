package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/complaint/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSubjectLength = 200

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("complaint.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitComplaintRequest) (*domain.Complaint, error) {
	if req.CustomerID == 0 {
		return nil, domain.ErrInvalidCustomerID
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" || len(subject) > maxSubjectLength {
		return nil, domain.ErrInvalidSubject
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}

	now := s.clock.Now()
	complaint := &domain.Complaint{
		ID:          s.genID.Generate(),
		CustomerID:  req.CustomerID,
		Subject:     subject,
		Description: description,
		Status:      domain.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, complaint); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "complaint.submitted", complaint, nil)
	return complaint, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetComplaintRequest) (*domain.Complaint, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	complaint, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if complaint == nil || (req.CustomerID != 0 && complaint.CustomerID != req.CustomerID) {
		return nil, domain.ErrNotFound
	}
	return complaint, nil
}

func (s *Service) List(ctx context.Context, req domain.ListComplaintRequest) (domain.ListComplaintResponse, error) {
	filter := domain.ListFilter{Limit: req.Size()}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, domain.ErrInvalidCustomerID)
		if err != nil {
			return domain.ListComplaintResponse{}, err
		}
		filter.CustomerID = id
	}
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return domain.ListComplaintResponse{}, domain.ErrInvalidStatus
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListComplaintResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListComplaintResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListComplaintResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(c *domain.Complaint) string {
		return pagination.CursorFor(c.ID.String(), c.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	complaints := make([]domain.Complaint, 0, len(items))
	for _, item := range items {
		complaints = append(complaints, *item)
	}
	return domain.ListComplaintResponse{PageInfo: *pageInfo, Complaints: complaints}, nil
}

// Resolve closes out an open or in-progress complaint. Anything else,
// including an unknown id, reports ErrNotResolvable.
func (s *Service) Resolve(ctx context.Context, req domain.ResolveComplaintRequest) (*domain.Complaint, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	complaint, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if complaint == nil {
		return nil, domain.ErrNotResolvable
	}

	now := s.clock.Now()
	resolver := req.ResolverID
	complaint.ResolvedBy = &resolver
	complaint.ResolutionNotes = strings.TrimSpace(req.ResolutionNotes)
	complaint.ResolvedAt = &now
	complaint.UpdatedAt = now

	rows, err := s.repo.Resolve(ctx, s.db, complaint, []domain.Status{domain.StatusOpen, domain.StatusInProgress})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrNotResolvable
	}
	complaint.Status = domain.StatusResolved

	s.emitAudit(ctx, "complaint.resolved", complaint, nil)
	return complaint, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Complaint, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	target := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	complaint, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if complaint == nil {
		return nil, domain.ErrNotFound
	}
	from := complaint.Status
	if !from.CanMoveTo(target) {
		return nil, domain.ErrInvalidTransition
	}

	complaint.Status = target
	complaint.UpdatedAt = s.clock.Now()
	rows, err := s.repo.UpdateStatus(ctx, s.db, complaint, from)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	s.emitAudit(ctx, "complaint.status_changed", complaint, map[string]any{"from": string(from)})
	return complaint, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, complaint *domain.Complaint, extra map[string]any) {
	if s.auditSvc == nil || complaint == nil {
		return
	}
	metadata := map[string]any{
		"customer_id": complaint.CustomerID.String(),
		"status":      string(complaint.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := complaint.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "complaint", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
