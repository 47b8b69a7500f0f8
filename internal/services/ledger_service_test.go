package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agrotrack/internal/core"
	"agrotrack/internal/store/memory"
)

func newLedger(pub EventPublisher) (*LedgerService, *memory.Store) {
	st := memory.New()
	return NewLedgerService(st, pub, WithClock(fixedClock(testNow)), WithIDGenerator(sequentialIDs("tx"))), st
}

func mustAdd(t *testing.T, s *LedgerService, kind core.Kind, amount string, cat core.Category, desc string, date core.Date) core.Transaction {
	t.Helper()
	m, err := core.ParseMoney(amount)
	if err != nil {
		t.Fatalf("parse %s: %v", amount, err)
	}
	tx, err := s.AddTransaction(context.Background(), core.TransactionInput{
		Kind: kind, Amount: m, Category: cat, Description: desc, Date: date,
	})
	if err != nil {
		t.Fatalf("add %s: %v", desc, err)
	}
	return tx
}

func TestLedgerService_SummaryScenario(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newLedger(pub)
	ctx := context.Background()

	mustAdd(t, svc, core.Expense, "15000.00", core.CategorySeeds, "Wheat seeds for 5 acres", core.NewDate(2025, 9, 15))
	mustAdd(t, svc, core.Income, "45000.00", core.CategoryCropSales, "Sold rice harvest", core.NewDate(2025, 9, 12))

	sum, err := svc.Summary(ctx, core.Period{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalIncome.String() != "45000.00" || sum.TotalExpenses.String() != "15000.00" || sum.NetProfit.String() != "30000.00" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(pub.transactions) != 2 || pub.transactions[0] != "tx-1" {
		t.Fatalf("expected both transactions published, got %v", pub.transactions)
	}
}

func TestLedgerService_BreakdownScenario(t *testing.T) {
	svc, _ := newLedger(nil)
	ctx := context.Background()

	mustAdd(t, svc, core.Expense, "8500.00", core.CategoryFertilizers, "Organic fertilizer", core.NewDate(2025, 9, 14))
	mustAdd(t, svc, core.Expense, "5500.00", core.CategoryPesticides, "Pest control", core.NewDate(2025, 9, 13))
	mustAdd(t, svc, core.Income, "1000.00", core.CategoryDairy, "Milk", core.NewDate(2025, 9, 13))

	got, err := svc.CategoryBreakdown(ctx, core.Period{})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != core.CategoryFertilizers || got[0].Amount.String() != "8500.00" || got[0].Percentage != 61 {
		t.Fatalf("unexpected first entry %+v", got[0])
	}
	if got[1].Category != core.CategoryPesticides || got[1].Amount.String() != "5500.00" || got[1].Percentage != 39 {
		t.Fatalf("unexpected second entry %+v", got[1])
	}
}

func TestLedgerService_EmptyBreakdown(t *testing.T) {
	svc, _ := newLedger(nil)
	mustAdd(t, svc, core.Income, "100", core.CategoryConsulting, "Advice", core.NewDate(2025, 9, 1))
	got, err := svc.CategoryBreakdown(context.Background(), core.Period{})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil breakdown, got %#v", got)
	}
}

func TestLedgerService_AddTransactionValidation(t *testing.T) {
	pub := &recordingPublisher{}
	svc, st := newLedger(pub)
	ctx := context.Background()
	date := core.NewDate(2025, 9, 15)

	tests := []struct {
		name string
		in   core.TransactionInput
	}{
		{"zero amount", core.TransactionInput{Kind: core.Expense, Amount: core.Money{}, Category: core.CategoryFuel, Description: "Diesel", Date: date}},
		{"negative amount", core.TransactionInput{Kind: core.Expense, Amount: core.Money{Cents: -5}, Category: core.CategoryFuel, Description: "Diesel", Date: date}},
		{"empty description", core.TransactionInput{Kind: core.Expense, Amount: core.Money{Cents: 100}, Category: core.CategoryFuel, Description: "   ", Date: date}},
		{"income category on expense", core.TransactionInput{Kind: core.Expense, Amount: core.Money{Cents: 100}, Category: core.CategoryCropSales, Description: "x", Date: date}},
		{"unknown kind", core.TransactionInput{Kind: "refund", Amount: core.Money{Cents: 100}, Category: core.CategoryFuel, Description: "x", Date: date}},
		{"description too long", core.TransactionInput{Kind: core.Expense, Amount: core.Money{Cents: 100}, Category: core.CategoryFuel, Description: strings.Repeat("a", 201), Date: date}},
		{"zero date", core.TransactionInput{Kind: core.Expense, Amount: core.Money{Cents: 100}, Category: core.CategoryFuel, Description: "x"}},
		{"amount over cap", core.TransactionInput{Kind: core.Income, Amount: core.Money{Cents: 92233720368547758}, Category: core.CategoryCropSales, Description: "x", Date: date}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(ctx, tt.in)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if n, _ := st.Counts(); n != 0 {
		t.Fatalf("rejected transactions must not be stored, got %d", n)
	}
	if len(pub.transactions) != 0 {
		t.Fatalf("rejected transactions must not be published")
	}
}

func TestLedgerService_PublishFailureDoesNotFailAdd(t *testing.T) {
	svc, st := newLedger(&recordingPublisher{err: errors.New("broker down")})
	tx := mustAdd(t, svc, core.Expense, "10", core.CategoryFuel, "Diesel", core.NewDate(2025, 9, 1))
	if tx.ID == "" {
		t.Fatalf("expected id")
	}
	if n, _ := st.Counts(); n != 1 {
		t.Fatalf("expected transaction stored despite publish failure")
	}
}

func TestLedgerService_PeriodFilterAndOrder(t *testing.T) {
	svc, _ := newLedger(nil)
	ctx := context.Background()
	a := mustAdd(t, svc, core.Expense, "10", core.CategoryFuel, "a", core.NewDate(2025, 8, 31))
	b := mustAdd(t, svc, core.Expense, "20", core.CategoryFuel, "b", core.NewDate(2025, 9, 10))
	c := mustAdd(t, svc, core.Income, "30", core.CategoryDairy, "c", core.NewDate(2025, 9, 10))

	all, err := svc.ListTransactions(ctx, core.Period{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("unexpected order %v", all)
	}

	sept, _ := core.PresetPeriod(core.PresetMonth, core.NewDate(2025, 9, 16))
	ov, err := svc.Overview(ctx, sept)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(ov.Transactions) != 2 || ov.Summary.TotalExpenses.Cents != 2000 || ov.Summary.TotalIncome.Cents != 3000 {
		t.Fatalf("unexpected overview %+v", ov)
	}
	if len(ov.Breakdown) != 1 || ov.Breakdown[0].Percentage != 100 {
		t.Fatalf("unexpected breakdown %+v", ov.Breakdown)
	}

	_, err = svc.ListTransactions(ctx, core.Period{Start: core.NewDate(2025, 9, 2), End: core.NewDate(2025, 9, 1)})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for reversed period, got %v", err)
	}
}

// Summaries are recomputed on every call, never cached.
func TestLedgerService_SummaryReflectsNewTransactions(t *testing.T) {
	svc, _ := newLedger(nil)
	ctx := context.Background()
	mustAdd(t, svc, core.Income, "100", core.CategoryLivestock, "Goat", core.NewDate(2025, 9, 1))
	first, _ := svc.Summary(ctx, core.Period{})
	mustAdd(t, svc, core.Expense, "40", core.CategoryFuel, "Diesel", core.NewDate(2025, 9, 1))
	second, _ := svc.Summary(ctx, core.Period{})
	if first.NetProfit.Cents != 10000 || second.NetProfit.Cents != 6000 {
		t.Fatalf("summary not recomputed: %+v then %+v", first, second)
	}
}

func TestLedgerService_ReturnedTransactionsAreCopies(t *testing.T) {
	svc, _ := newLedger(nil)
	ctx := context.Background()
	mustAdd(t, svc, core.Expense, "10", core.CategoryFuel, "Diesel", core.NewDate(2025, 9, 1))
	list, _ := svc.ListTransactions(ctx, core.Period{})
	list[0].Amount = core.Money{Cents: 1}
	again, _ := svc.ListTransactions(ctx, core.Period{})
	if again[0].Amount.Cents != 1000 {
		t.Fatalf("ledger mutated through a returned slice")
	}
}
