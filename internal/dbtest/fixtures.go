package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Fixtures inserts rows directly so a package test can set up state owned by
// other packages.
type Fixtures struct {
	t   testing.TB
	db  *gorm.DB
	ids *snowflake.Node
	now time.Time
}

func NewFixtures(t testing.TB, db *gorm.DB, now time.Time) *Fixtures {
	t.Helper()
	node, err := snowflake.NewNode(900)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Fixtures{t: t, db: db, ids: node, now: now.UTC()}
}

func (f *Fixtures) exec(sql string, args ...any) {
	f.t.Helper()
	if err := f.db.Exec(sql, args...).Error; err != nil {
		f.t.Fatalf("fixture insert failed: %v\n%s", err, sql)
	}
}

// User inserts a login with an unusable password hash.
func (f *Fixtures) User(email, role string) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO users (id, email, display_name, phone, password_hash, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, '', 'x', ?, 1, ?, ?)`,
		id, email, "User "+id.String(), role, f.now, f.now,
	)
	return id
}

// Customer inserts a user and its customer row and returns the customer id.
func (f *Fixtures) Customer(email string) snowflake.ID {
	f.t.Helper()
	userID := f.User(email, "customer")
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO customers (id, user_id, address, phone, is_active, created_at, updated_at)
		 VALUES (?, ?, '1 Fixture Road', '', 1, ?, ?)`,
		id, userID, f.now, f.now,
	)
	return id
}

// Employee inserts a staff user and its employee row and returns the
// employee id.
func (f *Fixtures) Employee(email, position string) snowflake.ID {
	f.t.Helper()
	userID := f.User(email, position)
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO employees (id, user_id, position, zone, salary, is_active, hired_at, created_at, updated_at)
		 VALUES (?, ?, ?, '', 0, 1, ?, ?, ?)`,
		id, userID, position, f.now, f.now, f.now,
	)
	return id
}

// Publication inserts an available newspaper priced in cents.
func (f *Fixtures) Publication(title string, monthlyPrice int64) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO publications (id, title, slug, type, monthly_price, frequency, publisher, description, image_url, is_available, created_at, updated_at)
		 VALUES (?, ?, ?, 'newspaper', ?, 'daily', 'Fixture Press', '', '', 1, ?, ?)`,
		id, title, fmt.Sprintf("fixture-%s", id), monthlyPrice, f.now, f.now,
	)
	return id
}

// Subscription inserts a subscription in status with no pause request.
func (f *Fixtures) Subscription(customerID, publicationID snowflake.ID, start, end time.Time, status string) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO subscriptions (id, customer_id, publication_id, start_date, end_date, delivery_address, quantity, status, pause_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '1 Fixture Road', 1, ?, 'no_request', ?, ?)`,
		id, customerID, publicationID, start.UTC(), end.UTC(), status, f.now, f.now,
	)
	return id
}

// Delivery inserts a delivery for subscription on date.
func (f *Fixtures) Delivery(subscriptionID, personID snowflake.ID, date time.Time, status string) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	var person any
	if personID != 0 {
		person = personID
	}
	f.exec(
		`INSERT INTO deliveries (id, subscription_id, delivery_person_id, delivery_date, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '', ?, ?)`,
		id, subscriptionID, person, date.UTC(), status, f.now, f.now,
	)
	return id
}

// Payment inserts a payment with a derived receipt number.
func (f *Fixtures) Payment(subscriptionID snowflake.ID, amount int64, status string, due time.Time, paid *time.Time) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO payments (id, subscription_id, amount, method, status, payment_date, due_date, receipt_number, created_at, updated_at)
		 VALUES (?, ?, ?, 'cash', ?, ?, ?, ?, ?, ?)`,
		id, subscriptionID, amount, status, paid, due.UTC(), "FX"+id.String(), f.now, f.now,
	)
	return id
}

// Commission inserts a commission record for a delivery person.
func (f *Fixtures) Commission(personID snowflake.ID, start, end time.Time, amount int64, status string) snowflake.ID {
	f.t.Helper()
	id := f.ids.Generate()
	f.exec(
		`INSERT INTO commissions (id, delivery_person_id, period_start, period_end, total_deliveries, total_collections, rate_bps, amount, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, 250, ?, ?, ?, ?)`,
		id, personID, start.UTC(), end.UTC(), amount, status, f.now, f.now,
	)
	return id
}
