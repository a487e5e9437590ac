package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/publication/domain"
	"github.com/smallbiznis/newsexpress/pkg/db"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

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
		log:      p.Log.Named("publication.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePublicationRequest) (*domain.Publication, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	pubType := domain.Type(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if !pubType.Valid() {
		return nil, domain.ErrInvalidType
	}
	if req.MonthlyPrice <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	frequency := domain.Frequency(strings.ToLower(strings.TrimSpace(string(req.Frequency))))
	if !frequency.Valid() {
		return nil, domain.ErrInvalidFrequency
	}
	publisher := strings.TrimSpace(req.Publisher)
	if publisher == "" {
		return nil, domain.ErrInvalidPublisher
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL != "" && !validImageURL(imageURL) {
		return nil, domain.ErrInvalidImageURL
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	now := s.clock.Now()
	publication := &domain.Publication{
		ID:           s.genID.Generate(),
		Title:        title,
		Type:         pubType,
		MonthlyPrice: req.MonthlyPrice,
		Frequency:    frequency,
		Publisher:    publisher,
		Description:  strings.TrimSpace(req.Description),
		ImageURL:     imageURL,
		IsAvailable:  available,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uniqueSlug, err := s.uniqueSlug(ctx, tx, title)
		if err != nil {
			return err
		}
		publication.Slug = uniqueSlug
		return s.repo.Insert(ctx, tx, publication)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("publication slug %q taken concurrently: %w", publication.Slug, err)
		}
		return nil, err
	}

	s.emitAudit(ctx, "publication.created", publication, nil)
	return publication, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Publication, error) {
	publicationID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.Lookup(ctx, nil, publicationID)
}

func (s *Service) Lookup(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Publication, error) {
	if tx == nil {
		tx = s.db
	}
	publication, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if publication == nil {
		return nil, domain.ErrNotFound
	}
	return publication, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPublicationRequest) (domain.ListPublicationResponse, error) {
	filter := domain.ListFilter{
		AvailableOnly: req.AvailableOnly,
		Query:         req.Query,
		Limit:         req.Size(),
	}
	if req.Type != "" {
		filter.Type = domain.Type(strings.ToLower(strings.TrimSpace(string(req.Type))))
		if !filter.Type.Valid() {
			return domain.ListPublicationResponse{}, domain.ErrInvalidType
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListPublicationResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListPublicationResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListPublicationResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(p *domain.Publication) string {
		return pagination.CursorFor(p.ID.String(), p.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	publications := make([]domain.Publication, 0, len(items))
	for _, item := range items {
		publications = append(publications, *item)
	}
	return domain.ListPublicationResponse{PageInfo: *pageInfo, Publications: publications}, nil
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (*domain.Publication, error) {
	publicationID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateFields(ctx, s.db, publicationID, map[string]any{
		"is_available": available,
		"updated_at":   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	publication, err := s.Lookup(ctx, nil, publicationID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "publication.availability_changed", publication, map[string]any{"is_available": available})
	return publication, nil
}

// Delete removes a publication nobody has subscribed to. Active subscriptions
// yield ErrPublicationInUse; ended ones keep their payment history and yield
// ErrPublicationHasUsage.
func (s *Service) Delete(ctx context.Context, id string) error {
	publicationID, err := s.parseID(id)
	if err != nil {
		return err
	}

	var deleted *domain.Publication
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		publication, err := s.Lookup(ctx, tx, publicationID)
		if err != nil {
			return err
		}

		active, err := s.repo.CountSubscriptions(ctx, tx, publicationID, "active")
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrPublicationInUse
		}
		total, err := s.repo.CountSubscriptions(ctx, tx, publicationID, "")
		if err != nil {
			return err
		}
		if total > 0 {
			return domain.ErrPublicationHasUsage
		}

		affected, err := s.repo.Delete(ctx, tx, publicationID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		deleted = publication
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "publication.deleted", deleted, nil)
	return nil
}

func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "publication"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, strings.ToLower(s.genID.Generate().Base36())), nil
}

func (s *Service) emitAudit(ctx context.Context, action string, publication *domain.Publication, extra map[string]any) {
	if s.auditSvc == nil || publication == nil {
		return
	}
	metadata := map[string]any{
		"title":         publication.Title,
		"slug":          publication.Slug,
		"monthly_price": publication.MonthlyPrice,
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := publication.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "publication", &targetID, metadata); err != nil {
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

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
