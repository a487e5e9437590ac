package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/newsexpress/internal/audit/domain"
	"github.com/smallbiznis/newsexpress/internal/auditcontext"
	"github.com/smallbiznis/newsexpress/internal/clock"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	"github.com/smallbiznis/newsexpress/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMarkOverduePayments       = "mark_overdue_payments"
	JobExpireSubscriptions       = "expire_subscriptions"
	JobResumePausedSubscriptions = "resume_paused_subscriptions"

	sweepLockKey = "newsexpress:scheduler:sweep"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

// PaymentSweeper is the part of the payment service the scheduler drives.
type PaymentSweeper interface {
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

// SubscriptionSweeper is the part of the subscription service the scheduler drives.
type SubscriptionSweeper interface {
	ExpireEnded(ctx context.Context, today time.Time) (int64, error)
	ResumeFinishedPauses(ctx context.Context, today time.Time) (int64, error)
}

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	PaymentSvc      paymentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Locker          *ratelimit.Locker `optional:"true"`
	Config          Config            `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	payments      PaymentSweeper
	subscriptions SubscriptionSweeper
	locker        *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.PaymentSvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		payments:      p.PaymentSvc,
		subscriptions: p.SubscriptionSvc,
		locker:        p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, today time.Time) (int64, error),
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run := s.startJobRun(ctx, name)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	affected, err := fn(ctx, clock.DateOf(start))
	run.affected = affected
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.logJobFinish(ctx, run, err)
	if err == nil {
		schedMetrics.AddRowsAffected(name, affected)
		schedMetrics.MarkSuccess(name, s.clock.Now())
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled sweep once. With Redis configured only one
// replica sweeps at a time; the others skip the run.
func (s *Scheduler) RunOnce(parent context.Context) error {
	err := s.locker.WithLock(parent, sweepLockKey, s.cfg.LockTTL, s.runJobs)
	if errors.Is(err, ratelimit.ErrLockHeld) {
		s.log.Debug("sweep skipped, lock held by another replica")
		return nil
	}
	return err
}

func (s *Scheduler) runJobs(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context, time.Time) (int64, error)
	}{
		{JobMarkOverduePayments, s.payments.MarkOverdue},
		{JobExpireSubscriptions, s.subscriptions.ExpireEnded},
		{JobResumePausedSubscriptions, s.subscriptions.ResumeFinishedPauses},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		if parent.Err() != nil {
			return errors.Join(err, parent.Err())
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}
