package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/newsexpress/internal/observability/context"
	obslogger "github.com/smallbiznis/newsexpress/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	"go.uber.org/zap"
)

type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	affected  int64
}

func (s *Scheduler) startJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx = obscontext.WithJob(ctx, job)
	return ctx, run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun, err error) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int64("rows_affected", run.affected),
	}
	log := s.logger(ctx)
	if err != nil {
		log.Warn("scheduler.job.finish", append(fields,
			zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
			zap.Error(err),
		)...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}
