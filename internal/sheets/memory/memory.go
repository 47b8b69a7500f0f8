package memory

import (
	"context"
	"fmt"
	"sync"

	"agrotrack/internal/core"
	ports "agrotrack/internal/sheets"
)

// Exporter keeps exported rows in memory. It stands in for Google Sheets when
// no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	rows    []core.Transaction
	reports []core.LedgerReport
}

var (
	_ ports.LedgerExporter = (*Exporter)(nil)
	_ ports.ReportExporter = (*Exporter)(nil)
)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransaction stores the transaction and returns a synthetic row reference.
func (e *Exporter) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("transaction without id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, tx)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) WriteReport(_ context.Context, r core.LedgerReport) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports = append(e.reports, r)
	return fmt.Sprintf("mem-report:%d", len(e.reports)), nil
}

// Rows returns a copy of the exported transactions in export order.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.rows...)
}

func (e *Exporter) Reports() []core.LedgerReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.LedgerReport(nil), e.reports...)
}
