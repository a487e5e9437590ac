package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/newsexpress/internal/clock"
	obsmetrics "github.com/smallbiznis/newsexpress/internal/observability/metrics"
	"github.com/smallbiznis/newsexpress/internal/providers/pdf"
	"github.com/smallbiznis/newsexpress/internal/providers/spreadsheet"
	"github.com/smallbiznis/newsexpress/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// paymentWindowDays is how far back the payment report looks.
const paymentWindowDays = 30

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	PDF        pdf.Provider
	Sheet      spreadsheet.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	pdf        pdf.Provider
	sheet      spreadsheet.Provider
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		pdf:        p.PDF,
		sheet:      p.Sheet,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.File, error) {
	reportType := domain.Type(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if !reportType.Valid() {
		return nil, domain.ErrInvalidType
	}
	format := domain.Format(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if format == "" {
		format = domain.FormatPDF
	}
	if !format.Valid() {
		return nil, domain.ErrInvalidFormat
	}

	today := clock.Today(s.clock)
	table, err := s.build(ctx, reportType, today)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch format {
	case domain.FormatXLSX:
		content, err = s.sheet.Table(ctx, table)
	default:
		content, err = s.pdf.Table(ctx, table)
	}
	if err != nil {
		s.log.Error("render report failed",
			zap.String("type", string(reportType)),
			zap.String("format", string(format)),
			zap.Error(err),
		)
		return nil, err
	}

	s.obsMetrics.RecordReport(ctx, string(reportType), string(format))
	s.log.Info("report generated",
		zap.String("type", string(reportType)),
		zap.String("format", string(format)),
		zap.Int("rows", len(table.Rows)),
	)
	return &domain.File{
		Filename:    domain.Filename(reportType, format, today),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

func (s *Service) build(ctx context.Context, reportType domain.Type, today time.Time) (domain.Table, error) {
	table := domain.Table{
		Title:       reportType.Title(),
		GeneratedOn: today,
	}

	switch reportType {
	case domain.TypePayment:
		lines, err := s.repo.CompletedPaymentsSince(ctx, s.db, today.AddDate(0, 0, -paymentWindowDays))
		if err != nil {
			return table, err
		}
		table.Sheet = "Payments"
		table.Headers = []string{"Date", "Total Amount", "Number of Payments", "Average Payment"}
		for _, day := range PaymentDays(lines) {
			table.Rows = append(table.Rows, []any{
				day.Date.Format("2006-01-02"),
				domain.Money(day.Total),
				day.Count,
				domain.Money(day.Average),
			})
		}

	case domain.TypeCommission:
		items, err := s.repo.CommissionSummaries(ctx, s.db)
		if err != nil {
			return table, err
		}
		table.Sheet = "Commissions"
		table.Headers = []string{"Delivery Person", "Total Commission", "Pending", "Approved", "Paid", "Records"}
		for _, item := range items {
			table.Rows = append(table.Rows, []any{
				item.DeliveryPersonName,
				domain.Money(item.Total),
				domain.Money(item.Pending),
				domain.Money(item.Approved),
				domain.Money(item.Paid),
				item.Records,
			})
		}

	case domain.TypeSubscription:
		items, err := s.repo.PublicationSummaries(ctx, s.db)
		if err != nil {
			return table, err
		}
		table.Sheet = "Subscriptions"
		table.Headers = []string{"Publication", "Type", "Total", "Active", "Paused", "Cancelled", "Active Rate"}
		for _, item := range items {
			table.Rows = append(table.Rows, []any{
				item.Title,
				item.Type,
				item.Total,
				item.Active,
				item.Paused,
				item.Cancelled,
				item.ActiveRate(),
			})
		}
	}
	return table, nil
}

// PaymentDays folds payment lines into one row per day, oldest first. The
// average is rounded half up to the cent.
func PaymentDays(lines []domain.PaymentLine) []domain.PaymentDay {
	days := make([]domain.PaymentDay, 0)
	for _, line := range lines {
		date := clock.DateOf(line.PaymentDate)
		if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
			days[n-1].Total += line.Amount
			days[n-1].Count++
			continue
		}
		days = append(days, domain.PaymentDay{Date: date, Total: line.Amount, Count: 1})
	}
	for i := range days {
		days[i].Average = (days[i].Total + days[i].Count/2) / days[i].Count
	}
	return days
}
