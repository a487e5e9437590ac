package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/delivery/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/zap"
)

// ReportIssue records a problem against one of the reporter's own
// deliveries. The delivery status is left as is.
func (s *Service) ReportIssue(ctx context.Context, req domain.ReportIssueRequest) (*domain.IssueReport, error) {
	deliveryID, err := parseID(req.DeliveryID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	issueType := domain.IssueType(strings.ToLower(strings.TrimSpace(string(req.IssueType))))
	if !issueType.Valid() {
		return nil, domain.ErrInvalidIssueType
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}

	delivery, err := s.load(ctx, s.db, deliveryID)
	if err != nil {
		return nil, err
	}
	if req.ReporterID == 0 || !assignedTo(delivery, req.ReporterID) {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now()
	issue := &domain.IssueReport{
		ID:           s.genID.Generate(),
		DeliveryID:   deliveryID,
		ReportedBy:   req.ReporterID,
		IssueType:    issueType,
		Description:  description,
		Status:       domain.IssueOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
		DeliveryDate: delivery.DeliveryDate,
	}
	if err := s.repo.InsertIssue(ctx, s.db, issue); err != nil {
		return nil, err
	}

	s.log.Info("delivery issue reported",
		zap.String("issue_id", issue.ID.String()),
		zap.String("delivery_id", deliveryID.String()),
		zap.String("issue_type", string(issueType)),
	)
	return issue, nil
}

func (s *Service) UpdateIssueStatus(ctx context.Context, req domain.UpdateIssueStatusRequest) (*domain.IssueReport, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	status := domain.IssueStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !status.Valid() {
		return nil, domain.ErrInvalidIssueStatus
	}

	issue, err := s.repo.FindIssueByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, domain.ErrIssueNotFound
	}

	now := s.clock.Now()
	fields := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if notes := strings.TrimSpace(req.ResolutionNotes); notes != "" {
		fields["resolution_notes"] = notes
		issue.ResolutionNotes = notes
	}
	if _, err := s.repo.UpdateIssue(ctx, s.db, id, fields); err != nil {
		return nil, err
	}
	issue.Status = status
	issue.UpdatedAt = now
	return issue, nil
}

func (s *Service) ListIssues(ctx context.Context, req domain.ListIssueRequest) (domain.ListIssueResponse, error) {
	filter := domain.IssueFilter{Limit: req.Size()}
	if req.Status != "" {
		filter.Status = domain.IssueStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !filter.Status.Valid() {
			return domain.ListIssueResponse{}, domain.ErrInvalidIssueStatus
		}
	}
	if strings.TrimSpace(req.ReportedBy) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.ReportedBy))
		if err != nil {
			return domain.ListIssueResponse{}, domain.ErrInvalidID
		}
		filter.ReportedBy = id
	}
	cursor, err := decodeCursor(req.PageToken)
	if err != nil {
		return domain.ListIssueResponse{}, err
	}
	filter.Cursor = cursor

	items, err := s.repo.ListIssues(ctx, s.db, filter)
	if err != nil {
		return domain.ListIssueResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(i *domain.IssueReport) string {
		return pagination.CursorFor(i.ID.String(), i.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	issues := make([]domain.IssueReport, 0, len(items))
	for _, item := range items {
		issues = append(issues, *item)
	}
	return domain.ListIssueResponse{PageInfo: *pageInfo, Issues: issues}, nil
}
