package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Repo         domain.Repository
	Senders      domain.Senders
	AgencyConfig *config.AgencyConfigHolder
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	repo         domain.Repository
	senders      map[domain.Channel]domain.Sender
	agencyConfig *config.AgencyConfigHolder
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	senders := make(map[domain.Channel]domain.Sender, len(p.Senders))
	for _, sender := range p.Senders {
		senders[sender.Channel()] = sender
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("notification.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		senders:      senders,
		agencyConfig: p.AgencyConfig,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) Send(ctx context.Context, req domain.SendRequest) (domain.SendResult, error) {
	msg, filter, err := s.prepare(req)
	if err != nil {
		return domain.SendResult{}, err
	}

	recipients, err := s.repo.Recipients(ctx, s.db, filter)
	if err != nil {
		return domain.SendResult{}, err
	}

	result := domain.SendResult{
		CampaignID:      msg.CampaignID,
		TotalRecipients: len(recipients),
		Details:         make([]domain.RecipientResult, 0, len(recipients)),
	}
	for _, recipient := range recipients {
		detail := s.deliver(ctx, recipient, msg)
		if detail.Success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, detail)
	}

	s.log.Info("notification campaign sent",
		zap.String("campaign_id", msg.CampaignID),
		zap.String("audience", string(msg.Audience)),
		zap.Int("recipients", result.TotalRecipients),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) prepare(req domain.SendRequest) (domain.Message, domain.RecipientFilter, error) {
	audience := domain.Audience(strings.ToLower(strings.TrimSpace(string(req.Audience))))
	if !audience.Valid() {
		return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidAudience
	}
	body := strings.TrimSpace(req.Message)
	if body == "" {
		return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidMessage
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = domain.DefaultSubject
	}
	notificationType := domain.Type(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if notificationType == "" {
		notificationType = domain.TypeGeneral
	}
	if !notificationType.Valid() {
		return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidType
	}
	channels, err := domain.ExpandChannels(req.Channels)
	if err != nil {
		return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidChannel
	}
	for _, c := range channels {
		if s.senders[c] == nil {
			return domain.Message{}, domain.RecipientFilter{}, domain.ErrSenderMissing
		}
	}

	today := clock.Today(s.clock)
	filter := domain.RecipientFilter{
		Audience:  audience,
		Today:     today,
		WindowEnd: today.AddDate(0, 0, s.agencyConfig.Get().ExpiringWindowDays),
	}
	if audience == domain.AudienceSpecificCustomers {
		if len(req.CustomerIDs) == 0 {
			return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidCustomerIDs
		}
		for _, raw := range req.CustomerIDs {
			id, err := snowflake.ParseString(strings.TrimSpace(raw))
			if err != nil || id == 0 {
				return domain.Message{}, domain.RecipientFilter{}, domain.ErrInvalidCustomerIDs
			}
			filter.CustomerIDs = append(filter.CustomerIDs, id)
		}
	}

	msg := domain.Message{
		CampaignID: ulid.Make().String(),
		Type:       notificationType,
		Subject:    subject,
		Body:       body,
		Channels:   channels,
		Audience:   audience,
	}
	if related := strings.TrimSpace(req.RelatedObjectID); related != "" {
		msg.RelatedObjectID = &related
	}
	return msg, filter, nil
}

// deliver tries every channel for one recipient. The recipient succeeds when
// any channel does.
func (s *Service) deliver(ctx context.Context, recipient domain.Recipient, msg domain.Message) domain.RecipientResult {
	detail := domain.RecipientResult{
		CustomerID:  recipient.CustomerID,
		DisplayName: recipient.DisplayName,
		Channels:    make([]domain.ChannelResult, 0, len(msg.Channels)),
	}
	for _, c := range msg.Channels {
		outcome := domain.ChannelResult{Channel: c, Success: true}
		if err := s.senders[c].Send(ctx, recipient, msg); err != nil {
			failure := &domain.DeliveryError{Channel: c, Err: err}
			outcome.Success = false
			outcome.Error = failure.Error()
			s.log.Warn("notification channel failed",
				zap.String("campaign_id", msg.CampaignID),
				zap.String("customer_id", recipient.CustomerID.String()),
				zap.String("channel", string(c)),
				zap.Error(failure),
			)
		} else {
			detail.Success = true
		}
		s.obsMetrics.RecordNotification(ctx, string(c), resultLabel(outcome.Success))
		detail.Channels = append(detail.Channels, outcome)
	}
	return detail
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func (s *Service) ListForUser(ctx context.Context, req domain.ListNotificationRequest) (domain.ListNotificationResponse, error) {
	filter := domain.ListFilter{
		UserID:     req.UserID,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Size(),
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListNotificationResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListNotificationResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, _ := cursor.CreatedAtTime()
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}
	unread, err := s.repo.CountUnread(ctx, s.db, req.UserID)
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(n *domain.Notification) string {
		return pagination.CursorFor(n.ID.String(), n.CreatedAt)
	})
	items = pagination.Trim(items, filter.Limit)

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, *item)
	}
	return domain.ListNotificationResponse{
		PageInfo:      *pageInfo,
		UnreadCount:   unread,
		Notifications: notifications,
	}, nil
}

// MarkRead is idempotent for a notification that was already read.
func (s *Service) MarkRead(ctx context.Context, req domain.MarkReadRequest) (*domain.Notification, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	if _, err := s.repo.MarkRead(ctx, s.db, id, req.UserID, s.clock.Now()); err != nil {
		return nil, err
	}
	notification, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if notification == nil || notification.UserID != req.UserID {
		return nil, domain.ErrNotFound
	}
	return notification, nil
}

