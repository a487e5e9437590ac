// Package dbtest opens an in-memory SQLite database carrying the full schema
// for package tests.
package dbtest

import (
	"regexp"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var lockingClause = regexp.MustCompile(`FOR UPDATE( OF \w+)?( SKIP LOCKED)?`)

// Open returns a fresh database named after the running test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	stripLocking := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if !strings.Contains(sql, "FOR UPDATE") {
			return
		}
		sql = lockingClause.ReplaceAllString(sql, "")
		d.Statement.SQL.Reset()
		d.Statement.SQL.WriteString(sql)
	}
	if err := db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
	if err := db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v\n%s", err, stmt)
		}
	}
	return db
}

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE sessions (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		user_agent TEXT,
		ip_address TEXT,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		last_seen_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE customers (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE employees (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE,
		position TEXT NOT NULL,
		zone TEXT NOT NULL DEFAULT '',
		salary BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		hired_at DATE NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE publications (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		monthly_price BIGINT NOT NULL,
		frequency TEXT NOT NULL,
		publisher TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		is_available BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE subscriptions (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		publication_id INTEGER NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		delivery_address TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		pause_status TEXT NOT NULL,
		pause_start_date DATE,
		pause_end_date DATE,
		pause_reason TEXT,
		pause_notes TEXT NOT NULL DEFAULT '',
		pause_requested_at DATETIME,
		pause_processed_at DATETIME,
		pause_processed_by INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		subscription_id INTEGER NOT NULL,
		amount BIGINT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_date DATE,
		due_date DATE NOT NULL,
		receipt_number TEXT NOT NULL UNIQUE,
		recorded_by INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE deliveries (
		id INTEGER PRIMARY KEY,
		subscription_id INTEGER NOT NULL,
		delivery_person_id INTEGER,
		delivery_date DATE NOT NULL,
		status TEXT NOT NULL,
		delivered_at DATETIME,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (subscription_id, delivery_date)
	)`,
	`CREATE TABLE issue_reports (
		id INTEGER PRIMARY KEY,
		delivery_id INTEGER NOT NULL,
		reported_by INTEGER NOT NULL,
		issue_type TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		resolution_notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE commissions (
		id INTEGER PRIMARY KEY,
		delivery_person_id INTEGER NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		total_deliveries INTEGER NOT NULL,
		total_collections BIGINT NOT NULL,
		rate_bps BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (delivery_person_id, period_start, period_end)
	)`,
	`CREATE TABLE complaints (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		subject TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		resolved_by INTEGER,
		resolution_notes TEXT NOT NULL DEFAULT '',
		resolved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		campaign_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		channel TEXT NOT NULL,
		campaign_channels TEXT,
		status TEXT NOT NULL,
		read_at DATETIME,
		related_object_id TEXT,
		metadata JSON,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata JSON,
		ip_address TEXT,
		user_agent TEXT,
		created_at DATETIME NOT NULL
	)`,
}
