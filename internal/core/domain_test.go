package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-09-18")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(NewDate(2025, 9, 18).Time) {
		t.Fatalf("unexpected date %v", d)
	}
	for _, bad := range []string{"", "18/09/2025", "2025-13-01", "2025-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", bad, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 2, 29))
	if err != nil || string(b) != `"2024-02-29"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-01"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-03-01" {
		t.Fatalf("round trip gave %s", d)
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{Start: NewDate(2025, 1, 1), End: NewDate(2025, 1, 31)}
	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2024, 12, 31), false},
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 1, 15), true},
		{NewDate(2025, 1, 31), true},
		{NewDate(2025, 2, 1), false},
	}
	for _, tc := range cases {
		if got := p.Contains(tc.d); got != tc.want {
			t.Fatalf("Contains(%s) = %v, want %v", tc.d, got, tc.want)
		}
	}
	if !(Period{}).Contains(NewDate(1999, 1, 1)) {
		t.Fatalf("zero period must contain everything")
	}
	openEnd := Period{Start: NewDate(2025, 1, 1)}
	if !openEnd.Contains(NewDate(2030, 1, 1)) || openEnd.Contains(NewDate(2024, 1, 1)) {
		t.Fatalf("open-ended period misbehaves")
	}
}

func TestPeriodValidate(t *testing.T) {
	if err := (Period{Start: NewDate(2025, 2, 1), End: NewDate(2025, 1, 1)}).Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if err := (Period{Start: NewDate(2025, 1, 1), End: NewDate(2025, 1, 1)}).Validate(); err != nil {
		t.Fatalf("single-day period should be valid: %v", err)
	}
}

func TestPresetPeriod(t *testing.T) {
	today := NewDate(2025, 3, 15)
	cases := []struct {
		preset     string
		start, end string
	}{
		{"week", "2025-03-09", "2025-03-15"},
		{"month", "2025-03-01", "2025-03-31"},
		{"YEAR", "2025-01-01", "2025-12-31"},
		{"all", "", ""},
	}
	for _, tc := range cases {
		p, err := PresetPeriod(tc.preset, today)
		if err != nil {
			t.Fatalf("%s: %v", tc.preset, err)
		}
		if p.Start.String() != tc.start || p.End.String() != tc.end {
			t.Fatalf("%s: got %s..%s, want %s..%s", tc.preset, p.Start, p.End, tc.start, tc.end)
		}
	}
	if _, err := PresetPeriod("fortnight", today); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown preset, got %v", err)
	}
}

func TestPreviousPeriods(t *testing.T) {
	today := NewDate(2025, 3, 1)
	w := PreviousWeek(today)
	if w.Start.String() != "2025-02-22" || w.End.String() != "2025-02-28" {
		t.Fatalf("previous week = %s..%s", w.Start, w.End)
	}
	m := PreviousMonth(today)
	if m.Start.String() != "2025-02-01" || m.End.String() != "2025-02-28" {
		t.Fatalf("previous month = %s..%s", m.Start, m.End)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrInvalidAmount, ErrValidation},
		{&NotFoundError{Entity: "shipment", ID: "x"}, ErrNotFound},
		{&InvalidTransitionError{ShipmentID: "x", From: StatusProcessing, To: StatusDelivered}, ErrInvalidTransition},
		{&ConflictError{Entity: "shipment", ID: "x", Reason: "status changed"}, ErrConflict},
	}
	kinds := []error{ErrValidation, ErrNotFound, ErrInvalidTransition, ErrConflict}
	for _, tc := range cases {
		for _, k := range kinds {
			if got := errors.Is(tc.err, k); got != (k == tc.kind) {
				t.Fatalf("errors.Is(%v, %v) = %v", tc.err, k, got)
			}
		}
	}
	var vErr *ValidationError
	if !errors.As(ErrEmptyDescription, &vErr) || vErr.Field != "description" {
		t.Fatalf("expected description field, got %+v", vErr)
	}
}
