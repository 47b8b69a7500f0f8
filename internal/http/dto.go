package http

import (
	"time"

	"agrotrack/internal/core"
	"agrotrack/internal/services"
)

// Wire types. Money is a decimal string, dates are YYYY-MM-DD.

type transactionRequest struct {
	Kind        string     `json:"kind"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

type transactionResponse struct {
	ID            string     `json:"id"`
	Kind          core.Kind  `json:"kind"`
	Amount        core.Money `json:"amount"`
	Category      string     `json:"category"`
	CategoryLabel string     `json:"category_label"`
	Description   string     `json:"description"`
	Date          core.Date  `json:"date"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toTransaction(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Category:      string(tx.Category),
		CategoryLabel: tx.Category.Label(),
		Description:   tx.Description,
		Date:          tx.Date,
		CreatedAt:     tx.CreatedAt,
	}
}

func toTransactions(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransaction(tx))
	}
	return out
}

type periodResponse struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

func toPeriod(p core.Period) periodResponse {
	return periodResponse{Start: p.Start, End: p.End}
}

type summaryResponse struct {
	Period        periodResponse `json:"period"`
	TotalIncome   core.Money     `json:"total_income"`
	TotalExpenses core.Money     `json:"total_expenses"`
	NetProfit     core.Money     `json:"net_profit"`
}

func toSummary(p core.Period, s core.LedgerSummary) summaryResponse {
	return summaryResponse{
		Period:        toPeriod(p),
		TotalIncome:   s.TotalIncome,
		TotalExpenses: s.TotalExpenses,
		NetProfit:     s.NetProfit,
	}
}

type categoryAmountResponse struct {
	Category   string     `json:"category"`
	Label      string     `json:"label"`
	Amount     core.Money `json:"amount"`
	Percentage int        `json:"percentage"`
}

func toBreakdown(groups []core.CategoryAmount) []categoryAmountResponse {
	out := make([]categoryAmountResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, categoryAmountResponse{
			Category:   string(g.Category),
			Label:      g.Category.Label(),
			Amount:     g.Amount,
			Percentage: g.Percentage,
		})
	}
	return out
}

type overviewResponse struct {
	Summary      summaryResponse          `json:"summary"`
	Breakdown    []categoryAmountResponse `json:"breakdown"`
	Transactions []transactionResponse    `json:"transactions"`
}

func toOverview(o services.LedgerOverview) overviewResponse {
	return overviewResponse{
		Summary:      toSummary(o.Period, o.Summary),
		Breakdown:    toBreakdown(o.Breakdown),
		Transactions: toTransactions(o.Transactions),
	}
}

type categoryResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type shipmentRequest struct {
	Title                 string     `json:"title"`
	Buyer                 string     `json:"buyer"`
	BuyerContact          string     `json:"buyer_contact"`
	Transporter           string     `json:"transporter"`
	TransporterContact    string     `json:"transporter_contact"`
	Commodity             string     `json:"commodity"`
	Quantity              float64    `json:"quantity"`
	Unit                  string     `json:"unit"`
	Weight                float64    `json:"weight"`
	Value                 core.Money `json:"value"`
	Origin                string     `json:"origin"`
	Destination           string     `json:"destination"`
	ShipDate              core.Date  `json:"ship_date"`
	EstimatedDeliveryDate core.Date  `json:"estimated_delivery_date"`
}

func (r shipmentRequest) input() core.ShipmentInput {
	return core.ShipmentInput{
		Title:                 sanitizeInput(r.Title),
		Buyer:                 sanitizeInput(r.Buyer),
		BuyerContact:          sanitizeInput(r.BuyerContact),
		Transporter:           sanitizeInput(r.Transporter),
		TransporterContact:    sanitizeInput(r.TransporterContact),
		Commodity:             sanitizeInput(r.Commodity),
		Quantity:              r.Quantity,
		Unit:                  sanitizeInput(r.Unit),
		Weight:                r.Weight,
		Value:                 r.Value,
		Origin:                sanitizeInput(r.Origin),
		Destination:           sanitizeInput(r.Destination),
		ShipDate:              r.ShipDate,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
	}
}

type statusRequest struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type eventResponse struct {
	Title       string    `json:"title"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
}

func toEvent(e core.Event) eventResponse {
	return eventResponse{
		Title:       e.Title,
		Timestamp:   e.Timestamp,
		Description: e.Description,
		Completed:   e.Completed,
	}
}

func statusCodes(list []core.Status) []core.Status {
	if list == nil {
		return []core.Status{}
	}
	return list
}

type shipmentResponse struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	Buyer                 string          `json:"buyer"`
	BuyerContact          string          `json:"buyer_contact,omitempty"`
	Transporter           string          `json:"transporter,omitempty"`
	TransporterContact    string          `json:"transporter_contact,omitempty"`
	Commodity             string          `json:"commodity"`
	Quantity              float64         `json:"quantity"`
	Unit                  string          `json:"unit"`
	Weight                float64         `json:"weight"`
	Value                 core.Money      `json:"value"`
	Origin                string          `json:"origin"`
	Destination           string          `json:"destination"`
	ShipDate              core.Date       `json:"ship_date"`
	EstimatedDeliveryDate core.Date       `json:"estimated_delivery_date"`
	Status                core.Status     `json:"status"`
	StatusLabel           string          `json:"status_label"`
	Progress              float64         `json:"progress"`
	ProgressPercent       int             `json:"progress_percent"`
	AllowedTransitions    []core.Status   `json:"allowed_transitions"`
	Timeline              []eventResponse `json:"timeline"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func toShipment(s core.Shipment) shipmentResponse {
	timeline := make([]eventResponse, 0, len(s.Timeline))
	for _, e := range s.Timeline {
		timeline = append(timeline, toEvent(e))
	}
	return shipmentResponse{
		ID:                    s.ID,
		Title:                 s.Title,
		Buyer:                 s.Buyer,
		BuyerContact:          s.BuyerContact,
		Transporter:           s.Transporter,
		TransporterContact:    s.TransporterContact,
		Commodity:             s.Commodity,
		Quantity:              s.Quantity,
		Unit:                  s.Unit,
		Weight:                s.Weight,
		Value:                 s.Value,
		Origin:                s.Origin,
		Destination:           s.Destination,
		ShipDate:              s.ShipDate,
		EstimatedDeliveryDate: s.EstimatedDeliveryDate,
		Status:                s.Status,
		StatusLabel:           s.Status.Label(),
		Progress:              s.Status.Progress(),
		ProgressPercent:       s.Status.ProgressPercent(),
		AllowedTransitions:    statusCodes(s.Status.AllowedTransitions()),
		Timeline:              timeline,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

type shipmentSummaryResponse struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	Buyer                 string        `json:"buyer"`
	Commodity             string        `json:"commodity"`
	Quantity              float64       `json:"quantity"`
	Unit                  string        `json:"unit"`
	Value                 core.Money    `json:"value"`
	Origin                string        `json:"origin"`
	Destination           string        `json:"destination"`
	ShipDate              core.Date     `json:"ship_date"`
	EstimatedDeliveryDate core.Date     `json:"estimated_delivery_date"`
	Status                core.Status   `json:"status"`
	StatusLabel           string        `json:"status_label"`
	Progress              float64       `json:"progress"`
	ProgressPercent       int           `json:"progress_percent"`
	AllowedTransitions    []core.Status `json:"allowed_transitions"`
	LastEvent             eventResponse `json:"last_event"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func toShipmentSummary(s services.ShipmentSummary) shipmentSummaryResponse {
	return shipmentSummaryResponse{
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
		StatusLabel:           s.Status.Label(),
		Progress:              s.Progress,
		ProgressPercent:       s.ProgressPercent,
		AllowedTransitions:    statusCodes(s.AllowedTransitions),
		LastEvent:             toEvent(s.LastEvent),
		UpdatedAt:             s.UpdatedAt,
	}
}

type shipmentListResponse struct {
	Shipments []shipmentSummaryResponse `json:"shipments"`
	Counts    map[core.Status]int       `json:"counts"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	// Transition details, set for invalid_transition only.
	From    core.Status   `json:"from,omitempty"`
	To      core.Status   `json:"to,omitempty"`
	Allowed []core.Status `json:"allowed,omitempty"`
}

type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}
