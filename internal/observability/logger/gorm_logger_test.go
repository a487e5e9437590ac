package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{sql: `INSERT INTO "deliveries" ("id","subscription_id") VALUES (1,2) ON CONFLICT DO NOTHING`, op: "INSERT", table: "deliveries"},
		{sql: "SELECT d.id, d.status FROM deliveries d JOIN subscriptions s ON s.id = d.subscription_id", op: "SELECT", table: "deliveries"},
		{sql: `UPDATE "public"."subscriptions" SET pause_status = 'approved'`, op: "UPDATE", table: "subscriptions"},
		{sql: "DELETE FROM `issue_reports` WHERE delivery_id = 5", op: "DELETE", table: "issue_reports"},
		{sql: "WITH due AS (SELECT id FROM payments) SELECT COUNT(*) FROM due", op: "SELECT", table: "payments"},
		{sql: "VACUUM", op: "UNKNOWN", table: ""},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.op, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestGormLoggerConfigFor(t *testing.T) {
	cfg := GormLoggerConfigFor(0, false)
	assert.Equal(t, gormlogger.Warn, cfg.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
	assert.True(t, cfg.IgnoreRecordNotFound)

	cfg = GormLoggerConfigFor(50, true)
	assert.Equal(t, gormlogger.Info, cfg.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.SlowThreshold)
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	l := NewGormLogger(GormLoggerConfigFor(100, false))
	query := func() (string, int64) { return "SELECT * FROM payments WHERE status = 'overdue'", 3 }

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Zero(t, logs.Len(), "fast queries stay quiet below info")

	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len(), "record not found is not an error")

	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "payments", entries[0].ContextMap()["table"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["rows_affected"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "connection reset", entries[1].ContextMap()["error"])
}
