package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"agrotrack/internal/core"
	"agrotrack/internal/services"
)

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.CreateShipment(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/shipments/"+sh.ID)
	writeJSON(w, http.StatusCreated, toShipment(sh))
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := s.shipments.GetShipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipment(sh))
}

// handleListShipments returns summaries for ?status= (default all) plus the
// per-status counts over every shipment.
func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	status, err := ParseStatusFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	all, err := s.shipments.ListShipments(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list := all
	if status != "" {
		if list, err = s.shipments.ListShipments(r.Context(), status); err != nil {
			writeError(w, r, err)
			return
		}
	}

	summaries := services.SummarizeAll(list)
	out := make([]shipmentSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toShipmentSummary(sum))
	}
	writeJSON(w, http.StatusOK, shipmentListResponse{
		Shipments: out,
		Counts:    services.ShipmentCounts(all),
	})
}

func (s *Server) handleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := core.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.AdvanceStatus(r.Context(), mux.Vars(r)["id"], to, sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipment(sh))
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.AppendEvent(r.Context(), mux.Vars(r)["id"],
		sanitizeInput(req.Title), sanitizeInput(req.Description), req.Completed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipment(sh))
}
