package core

import "time"

// LedgerReport is a point-in-time summary of one period of the ledger.
type LedgerReport struct {
	Name             string
	Period           Period
	Summary          LedgerSummary
	Breakdown        []CategoryAmount
	TransactionCount int
	GeneratedAt      time.Time
}

// NewLedgerReport aggregates txs, which must already be filtered to period.
func NewLedgerReport(name string, period Period, txs []Transaction, now time.Time) LedgerReport {
	return LedgerReport{
		Name:             name,
		Period:           period,
		Summary:          Summarize(txs),
		Breakdown:        Breakdown(txs),
		TransactionCount: len(txs),
		GeneratedAt:      now.UTC(),
	}
}
