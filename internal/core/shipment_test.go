package core

import (
	"errors"
	"testing"
	"time"
)

func sampleShipmentInput() ShipmentInput {
	return ShipmentInput{
		Title:                 "Wheat Export to Delhi",
		Buyer:                 "Delhi Grain Traders",
		BuyerContact:          "+91-9876543210",
		Transporter:           "Punjab Transport Co.",
		TransporterContact:    "+91-9876543211",
		Commodity:             "Wheat",
		Quantity:              500,
		Unit:                  "quintals",
		Weight:                50000,
		Value:                 Money{Cents: 125000000},
		Origin:                "Punjab Farm",
		Destination:           "Delhi Mandi",
		ShipDate:              NewDate(2025, 9, 18),
		EstimatedDeliveryDate: NewDate(2025, 9, 22),
	}
}

func TestTransitionGraph(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusProcessing, StatusInTransit}: true,
		{StatusProcessing, StatusDelayed}:   true,
		{StatusInTransit, StatusDelayed}:    true,
		{StatusDelayed, StatusInTransit}:    true,
		{StatusInTransit, StatusDelivered}:  true,
	}
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if got := CanTransition(from, to); got != allowed[[2]Status{from, to}] {
				t.Fatalf("CanTransition(%s, %s) = %v", from, to, got)
			}
		}
	}
	if !StatusDelivered.IsTerminal() || StatusDelayed.IsTerminal() {
		t.Fatalf("only delivered is terminal")
	}
}

func TestProgress(t *testing.T) {
	cases := map[Status]float64{
		StatusPending:    0.2,
		StatusProcessing: 0.4,
		StatusDelayed:    0.5,
		StatusInTransit:  0.7,
		StatusDelivered:  1.0,
	}
	for s, want := range cases {
		if got := s.Progress(); got != want {
			t.Fatalf("%s progress = %v, want %v", s, got, want)
		}
	}
	if StatusInTransit.ProgressPercent() != 70 {
		t.Fatalf("unexpected percent %d", StatusInTransit.ProgressPercent())
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"in_transit": StatusInTransit,
		"In Transit": StatusInTransit,
		"InTransit":  StatusInTransit,
		"DELIVERED":  StatusDelivered,
	} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("cancelled"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if s, err := ParseStatusFilter("all"); err != nil || s != "" {
		t.Fatalf("all filter = %q, %v", s, err)
	}
	if _, err := ParseStatusFilter("lost"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown filter, got %v", err)
	}
}

func TestNewShipment(t *testing.T) {
	now := time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC)
	s, err := NewShipment("shp-1", sampleShipmentInput(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != StatusPending {
		t.Fatalf("expected pending, got %s", s.Status)
	}
	if len(s.Timeline) != 1 || s.Timeline[0].Title != OrderPlacedTitle || !s.Timeline[0].Completed {
		t.Fatalf("unexpected initial timeline %+v", s.Timeline)
	}
	if !s.Timeline[0].Timestamp.Equal(now) {
		t.Fatalf("order placed timestamp %v", s.Timeline[0].Timestamp)
	}
}

func TestShipmentInputValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ShipmentInput)
		field  string
	}{
		{"missing title", func(in *ShipmentInput) { in.Title = "" }, "title"},
		{"missing buyer", func(in *ShipmentInput) { in.Buyer = " " }, "buyer"},
		{"zero quantity", func(in *ShipmentInput) { in.Quantity = 0 }, "quantity"},
		{"zero weight", func(in *ShipmentInput) { in.Weight = 0 }, "weight"},
		{"negative value", func(in *ShipmentInput) { in.Value = Money{Cents: -1} }, "value"},
		{"missing ship date", func(in *ShipmentInput) { in.ShipDate = Date{} }, "ship_date"},
		{"delivery before ship", func(in *ShipmentInput) { in.EstimatedDeliveryDate = NewDate(2025, 9, 1) }, "estimated_delivery_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sampleShipmentInput()
			tc.mutate(&in)
			var vErr *ValidationError
			if err := in.Validate(); !errors.As(err, &vErr) || vErr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestShipmentAdvance(t *testing.T) {
	t0 := time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC)
	s, _ := NewShipment("shp-1", sampleShipmentInput(), t0)

	if _, err := s.Advance(StatusProcessing, Event{Title: "Processing Started", Timestamp: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("advance to processing: %v", err)
	}
	_, err := s.Advance(StatusDelivered, Event{Title: "Delivered", Timestamp: t0.Add(2 * time.Hour)})
	var tErr *InvalidTransitionError
	if !errors.As(err, &tErr) || tErr.From != StatusProcessing || tErr.To != StatusDelivered {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if s.Status != StatusProcessing || len(s.Timeline) != 2 {
		t.Fatalf("failed advance must not change shipment: %s, %d events", s.Status, len(s.Timeline))
	}
}

func TestShipmentAppendClampsTimestamps(t *testing.T) {
	t0 := time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC)
	s, _ := NewShipment("shp-1", sampleShipmentInput(), t0)
	stored := s.Append(Event{Title: "Note", Timestamp: t0.Add(-time.Hour)})
	if !stored.Timestamp.Equal(t0) {
		t.Fatalf("expected clamp to %v, got %v", t0, stored.Timestamp)
	}
	for i := 1; i < len(s.Timeline); i++ {
		if s.Timeline[i].Timestamp.Before(s.Timeline[i-1].Timestamp) {
			t.Fatalf("timeline not ascending at %d", i)
		}
	}
}

func TestShipmentCloneIsolation(t *testing.T) {
	s, _ := NewShipment("shp-1", sampleShipmentInput(), time.Now())
	c := s.Clone()
	c.Timeline[0].Title = "changed"
	c.Append(Event{Title: "extra", Timestamp: time.Now()})
	if s.Timeline[0].Title != OrderPlacedTitle || len(s.Timeline) != 1 {
		t.Fatalf("clone shares timeline with original")
	}
}

func TestTransitionTitle(t *testing.T) {
	cases := []struct {
		from, to Status
		want     string
	}{
		{StatusPending, StatusProcessing, "Processing Started"},
		{StatusProcessing, StatusInTransit, "Shipment Dispatched"},
		{StatusDelayed, StatusInTransit, "Delay Cleared"},
		{StatusInTransit, StatusDelayed, "Shipment Delayed"},
		{StatusInTransit, StatusDelivered, "Delivered"},
	}
	for _, tc := range cases {
		if got := TransitionTitle(tc.from, tc.to); got != tc.want {
			t.Fatalf("TransitionTitle(%s, %s) = %q, want %q", tc.from, tc.to, got, tc.want)
		}
	}
}
