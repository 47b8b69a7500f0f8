package core

import (
	"strings"
	"time"
)

// Status is a shipment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusInTransit  Status = "in_transit"
	StatusDelayed    Status = "delayed"
	StatusDelivered  Status = "delivered"
)

// StatusAll is the list filter keyword matching every status.
const StatusAll = "all"

// OrderPlacedTitle is the title of the event every new shipment starts with.
const OrderPlacedTitle = "Order Placed"

var (
	statuses = []Status{StatusPending, StatusProcessing, StatusInTransit, StatusDelayed, StatusDelivered}

	// transitions is the whole lifecycle graph. Delivered has no way out.
	transitions = map[Status][]Status{
		StatusPending:    {StatusProcessing},
		StatusProcessing: {StatusInTransit, StatusDelayed},
		StatusInTransit:  {StatusDelayed, StatusDelivered},
		StatusDelayed:    {StatusInTransit},
	}

	statusLabels = map[Status]string{
		StatusPending:    "Pending",
		StatusProcessing: "Processing",
		StatusInTransit:  "In Transit",
		StatusDelayed:    "Delayed",
		StatusDelivered:  "Delivered",
	}

	progress = map[Status]float64{
		StatusPending:    0.2,
		StatusProcessing: 0.4,
		StatusDelayed:    0.5,
		StatusInTransit:  0.7,
		StatusDelivered:  1.0,
	}
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// ParseStatus accepts a code ("in_transit"), label ("In Transit") or joined
// name ("InTransit"), ignoring case. Anything else is a validation error.
func ParseStatus(s string) (Status, error) {
	key := foldName(s)
	for _, st := range statuses {
		if foldName(string(st)) == key {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// ParseStatusFilter is ParseStatus plus "all" (or empty), which yields the zero Status.
func ParseStatusFilter(s string) (Status, error) {
	if t := strings.TrimSpace(s); t == "" || strings.EqualFold(t, StatusAll) {
		return "", nil
	}
	return ParseStatus(s)
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Progress maps the status onto [0,1]. It is never stored.
func (s Status) Progress() float64 {
	return progress[s]
}

// ProgressPercent is Progress as a rounded whole percentage.
func (s Status) ProgressPercent() int {
	return int(s.Progress()*100 + 0.5)
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AllowedTransitions lists the statuses reachable in one step.
func (s Status) AllowedTransitions() []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTitle names the timeline event recorded for a status change.
func TransitionTitle(from, to Status) string {
	switch to {
	case StatusProcessing:
		return "Processing Started"
	case StatusInTransit:
		if from == StatusDelayed {
			return "Delay Cleared"
		}
		return "Shipment Dispatched"
	case StatusDelayed:
		return "Shipment Delayed"
	case StatusDelivered:
		return "Delivered"
	}
	return to.Label()
}

// TransitionDescription is the default event text when the caller gives none.
func TransitionDescription(from, to Status) string {
	return "Status changed from " + from.Label() + " to " + to.Label()
}

// Event is one entry of a shipment timeline.
type Event struct {
	Title       string
	Timestamp   time.Time
	Description string
	Completed   bool
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", "event title is required")
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if e.Timestamp.IsZero() {
		return invalid("timestamp", "event timestamp is required")
	}
	return nil
}

// NotBefore returns ts, or last when ts would precede it. Keeps timelines ascending.
func NotBefore(ts, last time.Time) time.Time {
	if ts.Before(last) {
		return last
	}
	return ts
}

// ShipmentInput carries the caller-supplied fields of a new shipment.
type ShipmentInput struct {
	Title                 string
	Buyer                 string
	BuyerContact          string
	Transporter           string
	TransporterContact    string
	Commodity             string
	Quantity              float64
	Unit                  string
	Weight                float64
	Value                 Money
	Origin                string
	Destination           string
	ShipDate              Date
	EstimatedDeliveryDate Date
}

func (in ShipmentInput) Validate() error {
	required := []struct{ field, value string }{
		{"title", in.Title},
		{"buyer", in.Buyer},
		{"commodity", in.Commodity},
		{"unit", in.Unit},
		{"origin", in.Origin},
		{"destination", in.Destination},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "is required")
		}
	}
	if in.Quantity <= 0 {
		return invalid("quantity", "must be greater than zero")
	}
	if in.Weight <= 0 {
		return invalid("weight", "must be greater than zero")
	}
	if in.Value.Cents < 0 {
		return invalid("value", "must not be negative")
	}
	if err := in.ShipDate.Validate(); err != nil {
		return invalid("ship_date", err.Error())
	}
	if err := in.EstimatedDeliveryDate.Validate(); err != nil {
		return invalid("estimated_delivery_date", err.Error())
	}
	if in.EstimatedDeliveryDate.Before(in.ShipDate.Time) {
		return invalid("estimated_delivery_date", "must not be before ship date")
	}
	return nil
}

// Shipment is a consignment of goods moving from farm to buyer. It owns its timeline.
type Shipment struct {
	ID                    string
	Title                 string
	Buyer                 string
	BuyerContact          string
	Transporter           string
	TransporterContact    string
	Commodity             string
	Quantity              float64
	Unit                  string
	Weight                float64
	Value                 Money
	Origin                string
	Destination           string
	ShipDate              Date
	EstimatedDeliveryDate Date
	Status                Status
	Timeline              []Event
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewShipment builds a Pending shipment whose timeline holds a single completed
// "Order Placed" event.
func NewShipment(id string, in ShipmentInput, now time.Time) (Shipment, error) {
	if err := in.Validate(); err != nil {
		return Shipment{}, err
	}
	now = now.UTC()
	return Shipment{
		ID:                    id,
		Title:                 strings.TrimSpace(in.Title),
		Buyer:                 strings.TrimSpace(in.Buyer),
		BuyerContact:          strings.TrimSpace(in.BuyerContact),
		Transporter:           strings.TrimSpace(in.Transporter),
		TransporterContact:    strings.TrimSpace(in.TransporterContact),
		Commodity:             strings.TrimSpace(in.Commodity),
		Quantity:              in.Quantity,
		Unit:                  strings.TrimSpace(in.Unit),
		Weight:                in.Weight,
		Value:                 in.Value,
		Origin:                strings.TrimSpace(in.Origin),
		Destination:           strings.TrimSpace(in.Destination),
		ShipDate:              in.ShipDate,
		EstimatedDeliveryDate: in.EstimatedDeliveryDate,
		Status:                StatusPending,
		Timeline: []Event{{
			Title:       OrderPlacedTitle,
			Timestamp:   now,
			Description: "Order confirmed by " + strings.TrimSpace(in.Buyer),
			Completed:   true,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a copy that shares no timeline storage with s.
func (s Shipment) Clone() Shipment {
	s.Timeline = append([]Event(nil), s.Timeline...)
	return s
}

// LastEventAt is the timestamp of the newest timeline event.
func (s Shipment) LastEventAt() time.Time {
	if len(s.Timeline) == 0 {
		return time.Time{}
	}
	return s.Timeline[len(s.Timeline)-1].Timestamp
}

// Append adds ev to the timeline, clamping its timestamp so order stays
// ascending, and returns the event as stored.
func (s *Shipment) Append(ev Event) Event {
	ev.Timestamp = NotBefore(ev.Timestamp, s.LastEventAt())
	s.Timeline = append(s.Timeline, ev)
	if ev.Timestamp.After(s.UpdatedAt) {
		s.UpdatedAt = ev.Timestamp
	}
	return ev
}

// Advance applies a status change and records its event. The edge must
// already be allowed from the current status.
func (s *Shipment) Advance(to Status, ev Event) (Event, error) {
	if !to.Valid() {
		return Event{}, ErrInvalidStatus
	}
	if !CanTransition(s.Status, to) {
		return Event{}, &InvalidTransitionError{ShipmentID: s.ID, From: s.Status, To: to}
	}
	ev.Completed = true
	stored := s.Append(ev)
	s.Status = to
	return stored, nil
}
