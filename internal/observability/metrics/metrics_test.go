package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("status", " completed "),
		attribute.String("customer_id", "456"),
		attribute.String("channel", "email"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("status"), attrs[0].Key)
	assert.Equal(t, "completed", attrs[0].Value.AsString())
	assert.Equal(t, attribute.Key("channel"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPayment(context.Background(), "completed", "cash")
	m.RecordNotification(context.Background(), "sms", "sent")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordSubscriptionCreated(context.Background(), "monthly")
	m.RecordReport(context.Background(), "payment", "pdf")
}
