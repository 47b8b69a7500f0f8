package core

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds free-text descriptions on transactions and events.
const MaxDescriptionLength = 200

type (
	// Date is a calendar date. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	// Period is an inclusive date range. A zero Start or End leaves that side open,
	// so the zero Period matches every date.
	Period struct {
		Start Date
		End   Date
	}
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	// Check basic ranges
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrZeroDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, invalid("date", "expected YYYY-MM-DD, got "+s)
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return invalid("date", "expected a YYYY-MM-DD string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate rejects ranges whose start falls after their end.
func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && p.Start.After(p.End.Time) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether d lies within the inclusive range.
func (p Period) Contains(d Date) bool {
	if !p.Start.IsZero() && d.Before(p.Start.Time) {
		return false
	}
	if !p.End.IsZero() && d.After(p.End.Time) {
		return false
	}
	return true
}

// IsAllTime is true when neither side of the range is bounded.
func (p Period) IsAllTime() bool {
	return p.Start.IsZero() && p.End.IsZero()
}
