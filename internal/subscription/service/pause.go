package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/newsexpress/internal/clock"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) RequestPause(ctx context.Context, req subscriptiondomain.RequestPauseRequest) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(req.ID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	reason := subscriptiondomain.PauseReason(strings.ToLower(strings.TrimSpace(string(req.Reason))))
	if reason == "" {
		reason = subscriptiondomain.PauseReasonOther
	}
	if !reason.Valid() {
		return nil, subscriptiondomain.ErrInvalidPauseReason
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, subscriptiondomain.ErrInvalidPauseWindow
	}

	subscription, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil || !owns(req.CustomerID, subscription) {
		return nil, subscriptiondomain.ErrNotFound
	}
	if subscription.Status != subscriptiondomain.StatusActive {
		return nil, subscriptiondomain.ErrSubscriptionNotActive
	}
	if subscription.PauseStatus == subscriptiondomain.PausePending {
		return nil, subscriptiondomain.ErrPauseAlreadyPending
	}

	start := clock.DateOf(req.StartDate)
	end := clock.DateOf(req.EndDate)
	if err := s.validatePauseWindow(subscription, start, end); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	subscription.PauseStatus = subscriptiondomain.PausePending
	subscription.PauseStartDate = &start
	subscription.PauseEndDate = &end
	subscription.PauseReason = &reason
	subscription.PauseNotes = strings.TrimSpace(req.Notes)
	subscription.PauseRequestedAt = &now
	subscription.PauseProcessedAt = nil
	subscription.PauseProcessedBy = nil
	subscription.UpdatedAt = now

	rows, err := s.repo.RequestPause(ctx, s.db, subscription)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, subscriptiondomain.ErrPauseAlreadyPending
	}

	s.emitAudit(ctx, "subscription.pause_requested", subscription, map[string]any{
		"pause_start_date": start.Format(time.DateOnly),
		"pause_end_date":   end.Format(time.DateOnly),
		"reason":           string(reason),
	})
	return subscription, nil
}

func (s *Service) validatePauseWindow(subscription *subscriptiondomain.Subscription, start, end time.Time) error {
	cfg := s.agencyConfig.Get()
	today := clock.Today(s.clock)

	if !start.After(today) {
		return subscriptiondomain.ErrPauseStartNotFuture
	}
	if !start.Before(end) {
		return subscriptiondomain.ErrInvalidPauseWindow
	}
	days := clock.DaysBetween(start, end)
	if days < cfg.PauseMinDays {
		return subscriptiondomain.ErrPauseTooShort
	}
	if days > cfg.PauseMaxDays {
		return subscriptiondomain.ErrPauseTooLong
	}
	if !start.Before(clock.DateOf(subscription.EndDate)) {
		return subscriptiondomain.ErrPauseAfterEnd
	}
	return nil
}

// ApprovePause pauses the subscription and pushes its end date out by the
// length of the pause.
func (s *Service) ApprovePause(ctx context.Context, req subscriptiondomain.ProcessPauseRequest) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(req.ID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var subscription *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil ||
			locked.PauseStatus != subscriptiondomain.PausePending ||
			locked.Status != subscriptiondomain.StatusActive {
			return subscriptiondomain.ErrPauseNotPending
		}

		now := s.clock.Now()
		processor := req.ProcessorID
		locked.EndDate = clock.DateOf(locked.EndDate).AddDate(0, 0, locked.PauseDays())
		locked.Status = subscriptiondomain.StatusPaused
		locked.PauseStatus = subscriptiondomain.PauseApproved
		locked.PauseProcessedAt = &now
		locked.PauseProcessedBy = &processor
		locked.UpdatedAt = now

		rows, err := s.repo.ApprovePause(ctx, tx, locked)
		if err != nil {
			return err
		}
		if rows == 0 {
			return subscriptiondomain.ErrPauseNotPending
		}
		subscription = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPauseDecision(ctx, string(subscriptiondomain.PauseApproved))
	s.emitAudit(ctx, "subscription.pause_approved", subscription, map[string]any{
		"pause_days": subscription.PauseDays(),
	})
	return subscription, nil
}

func (s *Service) RejectPause(ctx context.Context, req subscriptiondomain.ProcessPauseRequest) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(req.ID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var subscription *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil || locked.PauseStatus != subscriptiondomain.PausePending {
			return subscriptiondomain.ErrPauseNotPending
		}

		now := s.clock.Now()
		processor := req.ProcessorID
		locked.PauseStatus = subscriptiondomain.PauseRejected
		locked.PauseProcessedAt = &now
		locked.PauseProcessedBy = &processor
		locked.UpdatedAt = now

		rows, err := s.repo.RejectPause(ctx, tx, locked)
		if err != nil {
			return err
		}
		if rows == 0 {
			return subscriptiondomain.ErrPauseNotPending
		}
		subscription = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPauseDecision(ctx, string(subscriptiondomain.PauseRejected))
	s.emitAudit(ctx, "subscription.pause_rejected", subscription, nil)
	return subscription, nil
}

// ChangeStatus moves a subscription between active, paused and cancelled.
// Leaving active rejects a pending pause, and resuming clears an approved
// one, so the pause state always agrees with the status.
func (s *Service) ChangeStatus(ctx context.Context, req subscriptiondomain.ChangeStatusRequest) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(req.ID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	target := subscriptiondomain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !target.Settable() {
		return nil, subscriptiondomain.ErrInvalidStatus
	}

	var (
		subscription *subscriptiondomain.Subscription
		from         subscriptiondomain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil || !owns(req.CustomerID, locked) {
			return subscriptiondomain.ErrNotFound
		}
		subscription = locked
		from = locked.Status
		if from == target {
			return nil
		}
		if from == subscriptiondomain.StatusExpired {
			return subscriptiondomain.ErrInvalidStatus
		}

		now := s.clock.Now()
		switch {
		case from == subscriptiondomain.StatusActive && locked.PauseStatus == subscriptiondomain.PausePending:
			locked.PauseStatus = subscriptiondomain.PauseRejected
			locked.PauseProcessedAt = &now
		case locked.PauseStatus == subscriptiondomain.PauseApproved:
			locked.PauseStatus = subscriptiondomain.PauseNoRequest
		}
		locked.Status = target
		locked.UpdatedAt = now

		rows, err := s.repo.UpdateStatus(ctx, tx, locked, from)
		if err != nil {
			return err
		}
		if rows == 0 {
			return subscriptiondomain.ErrInvalidStatus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != target {
		s.emitAudit(ctx, "subscription.status_changed", subscription, map[string]any{
			"from": string(from),
		})
	}
	return subscription, nil
}

func (s *Service) ExpireEnded(ctx context.Context, today time.Time) (int64, error) {
	rows, err := s.repo.ExpireEnded(ctx, s.db, clock.DateOf(today), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		s.log.Info("expired subscriptions", zap.Int64("count", rows), zap.Time("today", clock.DateOf(today)))
	}
	return rows, nil
}

func (s *Service) ResumeFinishedPauses(ctx context.Context, today time.Time) (int64, error) {
	rows, err := s.repo.ResumeFinishedPauses(ctx, s.db, clock.DateOf(today), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		s.log.Info("resumed paused subscriptions", zap.Int64("count", rows), zap.Time("today", clock.DateOf(today)))
	}
	return rows, nil
}
