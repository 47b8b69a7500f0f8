package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"agrotrack/internal/core"
)

// handleListCategories lists the closed category set for ?kind=income|expense.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats := kind.Categories()
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{Code: string(c), Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "categories": out})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := core.ParseCategory(kind, req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date := req.Date
	if date.IsZero() {
		date = s.ledger.Today()
	}

	tx, err := s.ledger.AddTransaction(r.Context(), core.TransactionInput{
		Kind:        kind,
		Amount:      req.Amount,
		Category:    category,
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, toTransaction(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	tx, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransaction(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query(), s.ledger.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":       toPeriod(period),
		"transactions": toTransactions(txs),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query(), s.ledger.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummary(period, sum))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query(), s.ledger.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := s.ledger.CategoryBreakdown(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":    toPeriod(period),
		"breakdown": toBreakdown(groups),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query(), s.ledger.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.ledger.Overview(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverview(o))
}
