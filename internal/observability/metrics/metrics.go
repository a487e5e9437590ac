package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes agency-level business instruments.
type Metrics struct {
	subscriptions  metric.Int64Counter
	payments       metric.Int64Counter
	pauseDecisions metric.Int64Counter
	deliveries     metric.Int64Counter
	notifications  metric.Int64Counter
	reports        metric.Int64Counter
	loginThrottled metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New creates the business instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "newsexpress"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.subscriptions, "newsexpress_subscriptions_created_total"},
		{&m.payments, "newsexpress_payments_total"},
		{&m.pauseDecisions, "newsexpress_pause_decisions_total"},
		{&m.deliveries, "newsexpress_deliveries_total"},
		{&m.notifications, "newsexpress_notifications_total"},
		{&m.reports, "newsexpress_reports_generated_total"},
		{&m.loginThrottled, "newsexpress_login_throttled_total"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) RecordSubscriptionCreated(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("plan", plan))...))
}

func (m *Metrics) RecordPayment(ctx context.Context, status, method string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("status", status),
		attribute.String("method", method),
	)...))
}

func (m *Metrics) RecordPauseDecision(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	m.pauseDecisions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("decision", decision))...))
}

func (m *Metrics) RecordDelivery(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

// RecordNotification counts one recipient outcome on a channel.
func (m *Metrics) RecordNotification(ctx context.Context, channel, result string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("channel", channel),
		attribute.String("result", result),
	)...))
}

func (m *Metrics) RecordReport(ctx context.Context, reportType, format string) {
	if m == nil {
		return
	}
	m.reports.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("report_type", reportType),
		attribute.String("format", format),
	)...))
}

func (m *Metrics) RecordLoginThrottled(ctx context.Context) {
	if m == nil {
		return
	}
	m.loginThrottled.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"plan":        {},
	"status":      {},
	"method":      {},
	"decision":    {},
	"channel":     {},
	"result":      {},
	"report_type": {},
	"format":      {},
	"endpoint":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		attr.Value = attribute.StringValue(strings.TrimSpace(attr.Value.Emit()))
		filtered = append(filtered, attr)
	}
	return filtered
}
