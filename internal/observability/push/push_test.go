package push

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDisabledWithoutExporter(t *testing.T) {
	require.Nil(t, New(config.Config{}, zap.NewNop()))

	cfg := config.Config{Metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite}}
	require.Nil(t, New(cfg, zap.NewNop()))

	cfg.Metrics = config.MetricsPushConfig{Exporter: "statsd", Endpoint: "http://localhost:1"}
	require.Nil(t, New(cfg, zap.NewNop()))
}

func TestNewSelectsExporter(t *testing.T) {
	cfg := config.Config{AppName: "newsexpress", Metrics: config.MetricsPushConfig{
		Exporter: ExporterPushgateway,
		Endpoint: "http://localhost:9091",
	}}
	require.IsType(t, &Pushgateway{}, New(cfg, zap.NewNop()))

	cfg.Metrics.Exporter = ExporterRemoteWrite
	require.IsType(t, &RemoteWrite{}, New(cfg, zap.NewNop()))
}

func TestRemoteWritePush(t *testing.T) {
	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sweep_runs_total"}, []string{"job"})
	reg.MustRegister(runs)
	runs.WithLabelValues("expire_subscriptions").Add(3)
	reg.MustRegister(prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ignored_seconds"}))

	var got prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewRemoteWrite(srv.URL, "secret").Push(context.Background(), reg))
	require.Len(t, got.Timeseries, 1)

	series := got.Timeseries[0]
	labels := map[string]string{}
	for _, l := range series.Labels {
		labels[l.Name] = l.Value
	}
	require.Equal(t, map[string]string{
		"__name__": "sweep_runs_total",
		"job":      "expire_subscriptions",
	}, labels)
	require.Len(t, series.Samples, 1)
	require.Equal(t, float64(3), series.Samples[0].Value)
}

func TestRemoteWritePushRejectsErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "up"})
	reg.MustRegister(g)
	g.Set(1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWrite(srv.URL, "").Push(context.Background(), reg)
	require.ErrorContains(t, err, "502")
}

func TestPushgatewayRequiresJob(t *testing.T) {
	err := NewPushgateway("http://localhost:9091", " ", nil).Push(context.Background(), prometheus.NewRegistry())
	require.EqualError(t, err, "pushgateway job is required")
}
