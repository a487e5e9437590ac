package domain

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypePayment      Type = "payment"
	TypeCommission   Type = "commission"
	TypeSubscription Type = "subscription"
)

func (t Type) Valid() bool {
	switch t {
	case TypePayment, TypeCommission, TypeSubscription:
		return true
	}
	return false
}

// Title is the heading printed on the report, e.g. "NewsExpress - Payment Report".
func (t Type) Title() string {
	name := string(t)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return "NewsExpress - " + name + " Report"
}

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

func (f Format) Valid() bool {
	return f == FormatPDF || f == FormatXLSX
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Filename follows <type>_report_<YYYY-MM-DD>.<ext>.
func Filename(t Type, f Format, day time.Time) string {
	return fmt.Sprintf("%s_report_%s.%s", t, day.Format("2006-01-02"), f)
}

// Money is an amount in cents.
type Money int64

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s$%d.%02d", sign, m/100, m%100)
}

// Dollars is the amount as a spreadsheet number.
func (m Money) Dollars() float64 {
	return float64(m) / 100
}

type Percent float64

func (p Percent) String() string {
	return fmt.Sprintf("%.1f%%", float64(p))
}

// Table is a rendered report: a header row plus typed cells. Cells are
// string, int64, Money or Percent.
type Table struct {
	Title       string
	GeneratedOn time.Time
	Sheet       string
	Headers     []string
	Rows        [][]any
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PaymentLine is one completed payment inside the report window.
type PaymentLine struct {
	PaymentDate time.Time
	Amount      int64
}

type PaymentDay struct {
	Date    time.Time
	Total   int64
	Count   int64
	Average int64
}

type CommissionSummary struct {
	DeliveryPersonID   int64
	DeliveryPersonName string
	Total              int64
	Pending            int64
	Approved           int64
	Paid               int64
	Records            int64
}

type PublicationSummary struct {
	PublicationID int64
	Title         string
	Type          string
	Total         int64
	Active        int64
	Paused        int64
	Cancelled     int64
}

// ActiveRate is the active share of all subscriptions, 0 when there are none.
func (s PublicationSummary) ActiveRate() Percent {
	if s.Total == 0 {
		return 0
	}
	return Percent(float64(s.Active) / float64(s.Total) * 100)
}
