package services

import (
	"time"

	"agrotrack/internal/core"
)

// ShipmentSummary is the list-view projection of a shipment.
type ShipmentSummary struct {
	ID                    string
	Title                 string
	Buyer                 string
	Commodity             string
	Quantity              float64
	Unit                  string
	Value                 core.Money
	Origin                string
	Destination           string
	ShipDate              core.Date
	EstimatedDeliveryDate core.Date
	Status                core.Status
	Progress              float64
	ProgressPercent       int
	AllowedTransitions    []core.Status
	LastEvent             core.Event
	UpdatedAt             time.Time
}

// Summarize projects s for list views. Progress is derived from status only.
func Summarize(s core.Shipment) ShipmentSummary {
	sum := ShipmentSummary{
		ID:                    s.ID,
		Title:                 s.Title,
		Buyer:                 s.Buyer,
		Commodity:             s.Commodity,
		Quantity:              s.Quantity,
		Unit:                  s.Unit,
		Value:                 s.Value,
		Origin:                s.Origin,
		Destination:           s.Destination,
		ShipDate:              s.ShipDate,
		EstimatedDeliveryDate: s.EstimatedDeliveryDate,
		Status:                s.Status,
		Progress:              s.Status.Progress(),
		ProgressPercent:       s.Status.ProgressPercent(),
		AllowedTransitions:    s.Status.AllowedTransitions(),
		UpdatedAt:             s.UpdatedAt,
	}
	if n := len(s.Timeline); n > 0 {
		sum.LastEvent = s.Timeline[n-1]
	}
	return sum
}

func SummarizeAll(list []core.Shipment) []ShipmentSummary {
	out := make([]ShipmentSummary, 0, len(list))
	for _, s := range list {
		out = append(out, Summarize(s))
	}
	return out
}

// ShipmentCounts tallies shipments per status.
func ShipmentCounts(list []core.Shipment) map[core.Status]int {
	counts := make(map[core.Status]int, len(core.Statuses()))
	for _, st := range core.Statuses() {
		counts[st] = 0
	}
	for _, s := range list {
		counts[s.Status]++
	}
	return counts
}
