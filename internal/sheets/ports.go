package sheets

import (
	"context"

	"agrotrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter appends ledger rows to an external spreadsheet.
	LedgerExporter interface {
		// AppendTransaction writes one row and returns a reference to it.
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// ReportExporter writes a period report to its own sheet range.
	ReportExporter interface {
		WriteReport(ctx context.Context, r core.LedgerReport) (rangeRef string, err error)
	}
)
