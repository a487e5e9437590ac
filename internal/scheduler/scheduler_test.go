package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/newsexpress/internal/clock"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayments struct {
	days     []time.Time
	affected int64
	err      error
}

func (f *fakePayments) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	f.days = append(f.days, today)
	return f.affected, f.err
}

type fakeSubscriptions struct {
	calls []string
	block bool
}

func (f *fakeSubscriptions) ExpireEnded(ctx context.Context, today time.Time) (int64, error) {
	f.calls = append(f.calls, JobExpireSubscriptions)
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 2, nil
}

func (f *fakeSubscriptions) ResumeFinishedPauses(ctx context.Context, today time.Time) (int64, error) {
	f.calls = append(f.calls, JobResumePausedSubscriptions)
	return 1, nil
}

func newTestScheduler(t *testing.T, cfg Config, payments *fakePayments, subs *fakeSubscriptions) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &Scheduler{
		log:           zap.NewNop(),
		cfg:           cfg.withDefaults(),
		genID:         node,
		clock:         clock.NewFakeClock(time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)),
		payments:      payments,
		subscriptions: subs,
	}
}

func useRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "newsexpress",
		Environment: "test",
	})
	return registry
}

func TestRunOnceRunsEverySweepWithToday(t *testing.T) {
	registry := useRegistry(t)
	payments := &fakePayments{affected: 3}
	subs := &fakeSubscriptions{}
	s := newTestScheduler(t, Config{}, payments, subs)

	require.NoError(t, s.RunOnce(context.Background()))

	require.Len(t, payments.days, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), payments.days[0])
	assert.Equal(t, []string{JobExpireSubscriptions, JobResumePausedSubscriptions}, subs.calls)

	labels := map[string]string{"service": "newsexpress", "env": "test", "job": JobMarkOverduePayments}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "newsexpress_scheduler_job_runs_total", labels))
	assert.Equal(t, float64(3), getCounterValue(t, registry, "newsexpress_scheduler_rows_affected_total", labels))
}

func TestRunOnceJoinsJobErrorsAndKeepsGoing(t *testing.T) {
	useRegistry(t)
	payments := &fakePayments{err: errors.New("connection reset")}
	subs := &fakeSubscriptions{}
	s := newTestScheduler(t, Config{}, payments, subs)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMarkOverduePayments)
	assert.Len(t, subs.calls, 2)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	useRegistry(t)
	payments := &fakePayments{}
	subs := &fakeSubscriptions{}
	s := newTestScheduler(t, Config{EnabledJobs: []string{" Resume_Paused_Subscriptions "}}, payments, subs)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, payments.days)
	assert.Equal(t, []string{JobResumePausedSubscriptions}, subs.calls)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := useRegistry(t)
	subs := &fakeSubscriptions{block: true}
	s := newTestScheduler(t, Config{JobTimeout: 5 * time.Millisecond}, &fakePayments{}, subs)

	err := s.runJob(context.Background(), JobExpireSubscriptions, 5*time.Millisecond, subs.ExpireEnded)
	require.NoError(t, err)

	labels := map[string]string{"service": "newsexpress", "env": "test", "job": JobExpireSubscriptions}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "newsexpress_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "newsexpress",
		"env":     "test",
		"job":     JobExpireSubscriptions,
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "newsexpress_scheduler_job_errors_total", errorLabels))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RunInterval: time.Minute}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, DefaultConfig().JobTimeout, cfg.JobTimeout)
	assert.Equal(t, DefaultConfig().LockTTL, cfg.LockTTL)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
