package services

import (
	"context"
	"fmt"
	"log/slog"

	"agrotrack/internal/core"
	"agrotrack/internal/sheets"
)

// Report names.
const (
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
)

// ReportService produces periodic ledger reports and hands them to the
// optional publisher and sheet exporter.
type ReportService struct {
	ledger    *LedgerService
	publisher ReportPublisher
	exporter  sheets.ReportExporter
}

func NewReportService(ledger *LedgerService, publisher ReportPublisher, exporter sheets.ReportExporter) *ReportService {
	return &ReportService{ledger: ledger, publisher: publisher, exporter: exporter}
}

// Weekly reports on the seven days before today.
func (s *ReportService) Weekly(ctx context.Context) (core.LedgerReport, error) {
	return s.Generate(ctx, ReportWeekly, core.PreviousWeek(s.ledger.Today()))
}

// Monthly reports on the previous calendar month.
func (s *ReportService) Monthly(ctx context.Context) (core.LedgerReport, error) {
	return s.Generate(ctx, ReportMonthly, core.PreviousMonth(s.ledger.Today()))
}

// Generate builds the report and delivers it. Delivery failures are logged,
// the report is still returned.
func (s *ReportService) Generate(ctx context.Context, name string, period core.Period) (core.LedgerReport, error) {
	r, err := s.ledger.Report(ctx, name, period)
	if err != nil {
		return core.LedgerReport{}, fmt.Errorf("build %s report: %w", name, err)
	}

	slog.InfoContext(ctx, "Ledger report generated",
		"report", name,
		"period_start", period.Start.String(),
		"period_end", period.End.String(),
		"transactions", r.TransactionCount,
		"total_income", r.Summary.TotalIncome.String(),
		"total_expenses", r.Summary.TotalExpenses.String(),
		"net_profit", r.Summary.NetProfit.String())

	if s.exporter != nil {
		if ref, err := s.exporter.WriteReport(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to export ledger report", "report", name, "error", err)
		} else {
			slog.InfoContext(ctx, "Ledger report exported", "report", name, "sheets_ref", ref)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLedgerReport(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger report", "report", name, "error", err)
		}
	}
	return r, nil
}
