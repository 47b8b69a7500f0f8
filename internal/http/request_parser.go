// Package http exposes the ledger and shipment services as a JSON API.
//
// This file turns query strings into domain values: periods for ledger
// queries and status filters for shipment lists.
package http

import (
	"net/url"
	"strings"

	"agrotrack/internal/core"
)

// ParsePeriod reads either a named preset (?preset=week|month|year|all) or an
// explicit inclusive range (?start=YYYY-MM-DD&end=YYYY-MM-DD, either side
// optional). Presets resolve against today. Mixing the two forms is rejected.
func ParsePeriod(query url.Values, today core.Date) (core.Period, error) {
	preset := strings.TrimSpace(query.Get("preset"))
	start := strings.TrimSpace(query.Get("start"))
	end := strings.TrimSpace(query.Get("end"))

	if preset != "" {
		if start != "" || end != "" {
			return core.Period{}, &core.ValidationError{Field: "period", Reason: "use either preset or start/end, not both"}
		}
		return core.PresetPeriod(preset, today)
	}

	var p core.Period
	var err error
	if start != "" {
		if p.Start, err = core.ParseDate(start); err != nil {
			return core.Period{}, &core.ValidationError{Field: "start", Reason: "expected YYYY-MM-DD"}
		}
	}
	if end != "" {
		if p.End, err = core.ParseDate(end); err != nil {
			return core.Period{}, &core.ValidationError{Field: "end", Reason: "expected YYYY-MM-DD"}
		}
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

// ParseStatusFilter reads ?status=, where empty or "all" means no filter.
func ParseStatusFilter(query url.Values) (core.Status, error) {
	return core.ParseStatusFilter(query.Get("status"))
}
