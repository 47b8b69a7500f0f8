package core

import (
	"sort"
)

// LedgerSummary holds totals derived from a set of transactions.
type LedgerSummary struct {
	TotalIncome   Money
	TotalExpenses Money
	NetProfit     Money
}

// CategoryAmount is one expense category's share of total expenses.
type CategoryAmount struct {
	Category   Category
	Amount     Money
	Percentage int
}

// Summarize folds transactions into income, expense and net totals.
func Summarize(txs []Transaction) LedgerSummary {
	var s LedgerSummary
	for _, tx := range txs {
		switch tx.Kind {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Breakdown groups expenses by category, largest first. Percentages are
// rounded independently and need not add up to 100. Income is ignored; with
// no expenses the result is empty.
func Breakdown(txs []Transaction) []CategoryAmount {
	sums := make(map[Category]int64)
	var total int64
	for _, tx := range txs {
		if tx.Kind != Expense {
			continue
		}
		sums[tx.Category] += tx.Amount.Cents
		total += tx.Amount.Cents
	}
	if len(sums) == 0 {
		return []CategoryAmount{}
	}

	out := make([]CategoryAmount, 0, len(sums))
	for _, c := range expenseCategories {
		cents, ok := sums[c]
		if !ok {
			continue
		}
		out = append(out, CategoryAmount{
			Category:   c,
			Amount:     Money{Cents: cents},
			Percentage: Percentage(Money{Cents: cents}, Money{Cents: total}),
		})
	}
	// Equal amounts keep category declaration order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// FilterPeriod returns the transactions dated within p, preserving order.
func FilterPeriod(txs []Transaction, p Period) []Transaction {
	if p.IsAllTime() {
		return append([]Transaction(nil), txs...)
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// SortRecentFirst orders by date descending, newest insertion first on equal dates.
func SortRecentFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].Seq > txs[j].Seq
	})
}
