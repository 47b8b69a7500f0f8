package core

import (
	"strings"
)

// Period presets understood by PresetPeriod.
const (
	PresetAll   = "all"
	PresetWeek  = "week"
	PresetMonth = "month"
	PresetYear  = "year"
)

// PresetPeriod resolves a named preset against today into an explicit range.
//
//	week  -> the seven days ending today
//	month -> the calendar month containing today
//	year  -> the calendar year containing today
//	all   -> unbounded
func PresetPeriod(preset string, today Date) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", PresetAll:
		return Period{}, nil
	case PresetWeek:
		return Period{Start: today.AddDays(-6), End: today}, nil
	case PresetMonth:
		start := NewDate(today.Year(), int(today.Month()), 1)
		return Period{Start: start, End: Date{Time: start.AddDate(0, 1, -1)}}, nil
	case PresetYear:
		return Period{Start: NewDate(today.Year(), 1, 1), End: NewDate(today.Year(), 12, 31)}, nil
	default:
		return Period{}, invalid("period", "unknown preset "+preset+" (want week, month, year or all)")
	}
}

// PreviousWeek is the seven days ending the day before today.
func PreviousWeek(today Date) Period {
	end := today.AddDays(-1)
	return Period{Start: end.AddDays(-6), End: end}
}

// PreviousMonth is the full calendar month before the one containing today.
func PreviousMonth(today Date) Period {
	firstOfThis := NewDate(today.Year(), int(today.Month()), 1)
	start := Date{Time: firstOfThis.AddDate(0, -1, 0)}
	return Period{Start: start, End: firstOfThis.AddDays(-1)}
}
