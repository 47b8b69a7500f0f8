package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agrotrack/internal/core"
	applog "agrotrack/internal/log"
	"agrotrack/internal/store"
)

// LedgerService records transactions and derives summaries from them.
type LedgerService struct {
	store     store.LedgerStore
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

func NewLedgerService(st store.LedgerStore, publisher EventPublisher, opts ...Option) *LedgerService {
	o := buildOptions(opts)
	return &LedgerService{
		store:     st,
		publisher: publisher,
		now:       o.now,
		newID:     o.newID,
	}
}

// AddTransaction validates and stores a new transaction, then publishes it.
// Publish failures are logged; the transaction is already saved.
func (s *LedgerService) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := core.NewTransaction(s.newID(), in, s.now())
	if err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithTransaction(saved.ID, string(saved.Kind), string(saved.Category), saved.Amount.Cents)
	applog.FromContext(ctx).WithComponent(applog.ComponentLedger).InfoContext(ctx, "Transaction recorded",
		append(fields.ToSlice(), "date", saved.Date.String())...)

	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping transaction message")
		return saved, nil
	}
	if err := s.publisher.PublishTransactionRecorded(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction message",
			"transaction_id", saved.ID, "error", err)
	}
	return saved, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// ListTransactions returns transactions in period, most recent first.
func (s *LedgerService) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Summary totals income and expenses over period.
func (s *LedgerService) Summary(ctx context.Context, period core.Period) (core.LedgerSummary, error) {
	txs, err := s.ListTransactions(ctx, period)
	if err != nil {
		return core.LedgerSummary{}, err
	}
	return core.Summarize(txs), nil
}

// CategoryBreakdown groups the period's expenses by category, largest first.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, period core.Period) ([]core.CategoryAmount, error) {
	txs, err := s.ListTransactions(ctx, period)
	if err != nil {
		return nil, err
	}
	return core.Breakdown(txs), nil
}

// LedgerOverview bundles everything a ledger dashboard shows for one period.
type LedgerOverview struct {
	Period       core.Period
	Transactions []core.Transaction
	Summary      core.LedgerSummary
	Breakdown    []core.CategoryAmount
}

// Overview reads the period once and derives every view from that snapshot.
func (s *LedgerService) Overview(ctx context.Context, period core.Period) (LedgerOverview, error) {
	txs, err := s.ListTransactions(ctx, period)
	if err != nil {
		return LedgerOverview{}, err
	}
	return LedgerOverview{
		Period:       period,
		Transactions: txs,
		Summary:      core.Summarize(txs),
		Breakdown:    core.Breakdown(txs),
	}, nil
}

// Report builds a named report for period.
func (s *LedgerService) Report(ctx context.Context, name string, period core.Period) (core.LedgerReport, error) {
	txs, err := s.ListTransactions(ctx, period)
	if err != nil {
		return core.LedgerReport{}, err
	}
	return core.NewLedgerReport(name, period, txs, s.now()), nil
}

// Today is the service clock's current date.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now())
}
