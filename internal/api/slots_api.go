package api

import (
	"net/http"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/metrics"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

// SlotsResponse is the response for GET /api/slots.
type SlotsResponse struct {
	AssetID        string       `json:"asset_id"`
	Date           string       `json:"date"`
	AvailableCount int          `json:"available_count"`
	Slots          []slots.Slot `json:"slots"`
}

// EndSlotsResponse is the response for GET /api/end-slots.
type EndSlotsResponse struct {
	AssetID   string       `json:"asset_id"`
	StartTime string       `json:"start_time"`
	EndSlots  []slots.Slot `json:"end_slots"`
}

// handleSlots returns the slot grid of a day.
// GET /api/slots?asset_id=boat-1&date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	const endpoint = "slots"
	metrics.IncHTTP(endpoint)
	defer metrics.ObserveHTTP(endpoint, time.Now())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	assetID := r.URL.Query().Get("asset_id")
	date := r.URL.Query().Get("date")

	gen, err := s.generatorFor(assetID)
	if err != nil {
		metrics.IncSlotQuery("get_slots", "error")
		s.writeFailure(w, endpoint, err)
		return
	}

	daySlots, err := gen.GetSlots(r.Context(), date)
	if err != nil {
		metrics.IncSlotQuery("get_slots", "error")
		s.writeFailure(w, endpoint, err)
		return
	}
	metrics.IncSlotQuery("get_slots", "ok")

	if daySlots == nil {
		daySlots = []slots.Slot{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{
		AssetID:        assetID,
		Date:           date,
		AvailableCount: len(slots.GetAvailableSlots(daySlots)),
		Slots:          daySlots,
	})
}

// handleEndSlots returns the priced end slots for a start time.
// GET /api/end-slots?asset_id=boat-1&start_time=2026-01-15T08:00:00Z
func (s *HTTPServer) handleEndSlots(w http.ResponseWriter, r *http.Request) {
	const endpoint = "end_slots"
	metrics.IncHTTP(endpoint)
	defer metrics.ObserveHTTP(endpoint, time.Now())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	assetID := r.URL.Query().Get("asset_id")
	startTime := r.URL.Query().Get("start_time")

	gen, err := s.generatorFor(assetID)
	if err != nil {
		metrics.IncSlotQuery("get_end_slots", "error")
		s.writeFailure(w, endpoint, err)
		return
	}

	endSlots, err := gen.GetEndSlots(r.Context(), startTime)
	if err != nil {
		metrics.IncSlotQuery("get_end_slots", "error")
		s.writeFailure(w, endpoint, err)
		return
	}
	metrics.IncSlotQuery("get_end_slots", "ok")
	metrics.ObserveEndSlotRun(len(endSlots))

	writeJSON(w, http.StatusOK, EndSlotsResponse{AssetID: assetID, StartTime: startTime, EndSlots: endSlots})
}
