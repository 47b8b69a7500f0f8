package amqp

import (
	"encoding/json"
	"time"

	"agrotrack/internal/core"
)

// Message types, also used as routing keys.
const (
	TypeTransactionRecorded = "transaction.recorded"
	TypeShipmentUpdated     = "shipment.updated"
	TypeLedgerReport        = "ledger.report"
)

// TransactionRecordedMessage announces a new ledger entry.
// Consumers load the full transaction by ID.
type TransactionRecordedMessage struct {
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(tx core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		TransactionID: tx.ID,
		Kind:          string(tx.Kind),
		Category:      string(tx.Category),
		Amount:        tx.Amount.String(),
		Date:          tx.Date.String(),
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ShipmentUpdatedMessage announces a shipment change. StatusFrom is empty for
// a new shipment and equals StatusTo for an informational event.
type ShipmentUpdatedMessage struct {
	ShipmentID      string    `json:"shipment_id"`
	StatusFrom      string    `json:"status_from,omitempty"`
	StatusTo        string    `json:"status_to"`
	EventTitle      string    `json:"event_title"`
	ProgressPercent int       `json:"progress_percent"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewShipmentUpdatedMessage(s core.Shipment, from core.Status) *ShipmentUpdatedMessage {
	msg := &ShipmentUpdatedMessage{
		ShipmentID:      s.ID,
		StatusFrom:      string(from),
		StatusTo:        string(s.Status),
		ProgressPercent: s.Status.ProgressPercent(),
		Timestamp:       time.Now(),
	}
	if n := len(s.Timeline); n > 0 {
		msg.EventTitle = s.Timeline[n-1].Title
	}
	return msg
}

func (m *ShipmentUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

type ReportCategory struct {
	Category   string `json:"category"`
	Label      string `json:"label"`
	Amount     string `json:"amount"`
	Percentage int    `json:"percentage"`
}

// LedgerReportMessage carries a generated period report.
type LedgerReportMessage struct {
	Name             string           `json:"name"`
	PeriodStart      string           `json:"period_start"`
	PeriodEnd        string           `json:"period_end"`
	TotalIncome      string           `json:"total_income"`
	TotalExpenses    string           `json:"total_expenses"`
	NetProfit        string           `json:"net_profit"`
	TransactionCount int              `json:"transaction_count"`
	Breakdown        []ReportCategory `json:"breakdown"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

func NewLedgerReportMessage(r core.LedgerReport) *LedgerReportMessage {
	msg := &LedgerReportMessage{
		Name:             r.Name,
		PeriodStart:      r.Period.Start.String(),
		PeriodEnd:        r.Period.End.String(),
		TotalIncome:      r.Summary.TotalIncome.String(),
		TotalExpenses:    r.Summary.TotalExpenses.String(),
		NetProfit:        r.Summary.NetProfit.String(),
		TransactionCount: r.TransactionCount,
		Breakdown:        make([]ReportCategory, 0, len(r.Breakdown)),
		GeneratedAt:      r.GeneratedAt,
	}
	for _, c := range r.Breakdown {
		msg.Breakdown = append(msg.Breakdown, ReportCategory{
			Category:   string(c.Category),
			Label:      c.Category.Label(),
			Amount:     c.Amount.String(),
			Percentage: c.Percentage,
		})
	}
	return msg
}

func (m *LedgerReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
