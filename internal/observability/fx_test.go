package observability

import (
	"testing"

	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadConfigFeedsEverySink(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{AppName: "newsexpress", AppVersion: "1.2.3", Environment: "production", OTLPEndpoint: "otel:4317"})

	lc := loggerConfig(cfg)
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.Debug)
	assert.True(t, lc.IncludeStackOnError)

	tc := tracingConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "http", tc.ExporterProtocol)
	assert.Equal(t, "otel:4317", tc.ExporterEndpoint)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.InDelta(t, 0.5, tc.SamplingRatio, 1e-9)

	mc := metricsConfig(cfg)
	assert.Equal(t, "production", mc.Environment)
	assert.Equal(t, tc.ExporterProtocol, mc.ExporterProtocol)
}

func TestAnnounceLogsServiceIdentity(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := Config{ServiceName: "newsexpress", Environment: "test", OtelExporterProtocol: "grpc"}

	announce(cfg, metricsConfig(cfg), zap.New(core), nil)

	entries := logs.FilterMessage("observability ready").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "newsexpress", fields["service"])
		assert.Equal(t, false, fields["otel_enabled"])
	}
}
