package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		kind Kind
		in   string
		want Category
		ok   bool
	}{
		{Income, "crop_sales", CategoryCropSales, true},
		{Income, "Crop Sales", CategoryCropSales, true},
		{Income, "CropSales", CategoryCropSales, true},
		{Income, "GOVERNMENT SUBSIDY", CategoryGovernmentSubsidy, true},
		{Income, "other", CategoryOther, true},
		{Expense, "Fertilizers", CategoryFertilizers, true},
		{Expense, "other", CategoryOther, true},
		{Expense, "crop_sales", "", false}, // income-only category
		{Income, "seeds", "", false},       // expense-only category
		{Expense, "", "", false},
		{Expense, "rent", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.kind, tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%s/%q: got %q (err=%v), want %q", tc.kind, tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%s/%q: expected ErrInvalidCategory, got %v", tc.kind, tc.in, err)
		}
	}
}

func TestKindCategories(t *testing.T) {
	if n := len(Expense.Categories()); n != 12 {
		t.Fatalf("expected 12 expense categories, got %d", n)
	}
	if n := len(Income.Categories()); n != 8 {
		t.Fatalf("expected 8 income categories, got %d", n)
	}
	if CategoryCropSales.Label() != "Crop Sales" {
		t.Fatalf("unexpected label %q", CategoryCropSales.Label())
	}
	// Returned slices must not alias the package tables.
	cats := Expense.Categories()
	cats[0] = "mutated"
	if Expense.Categories()[0] != CategorySeeds {
		t.Fatalf("category table was mutated through returned slice")
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Kind:        Expense,
		Amount:      Money{Cents: 850000},
		Category:    CategoryFertilizers,
		Description: "Urea, 20 bags",
		Date:        NewDate(2025, 9, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"empty description", func(in *TransactionInput) { in.Description = "   " }, ErrEmptyDescription},
		{"long description", func(in *TransactionInput) { in.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"wrong kind category", func(in *TransactionInput) { in.Category = CategoryDairy }, ErrInvalidCategory},
		{"unknown kind", func(in *TransactionInput) { in.Kind = "refund" }, ErrInvalidKind},
		{"zero date", func(in *TransactionInput) { in.Date = Date{} }, ErrZeroDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mutate(&in)
			err := in.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestNewTransactionTrimsDescription(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	tx, err := NewTransaction("tx-1", TransactionInput{
		Kind:        Income,
		Amount:      Money{Cents: 4500000},
		Category:    CategoryCropSales,
		Description: "  Wheat harvest  ",
		Date:        NewDate(2025, 9, 1),
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Description != "Wheat harvest" || tx.ID != "tx-1" || !tx.CreatedAt.Equal(now) {
		t.Fatalf("unexpected transaction %+v", tx)
	}
}
