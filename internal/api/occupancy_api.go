package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/manifest"
	"github.com/kenlai212/booking-api-sub001/internal/metrics"
	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

// CreateOccupancyRequest is the request body for POST /api/occupancies.
type CreateOccupancyRequest struct {
	AssetID       string    `json:"asset_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ReferenceType string    `json:"reference_type,omitempty"` // BOOKING, MAINTENANCE, BLOCKED
	ReferenceID   string    `json:"reference_id,omitempty"`
	Status        string    `json:"status,omitempty"`
}

// OccupanciesResponse is the response for GET /api/occupancies.
type OccupanciesResponse struct {
	AssetID     string            `json:"asset_id"`
	Date        string            `json:"date"`
	Occupancies []model.Occupancy `json:"occupancies"`
}

// handleOccupancies lists a day's occupancies or records a new one.
// GET  /api/occupancies?asset_id=boat-1&date=YYYY-MM-DD
// POST /api/occupancies
func (s *HTTPServer) handleOccupancies(w http.ResponseWriter, r *http.Request) {
	const endpoint = "occupancies"
	metrics.IncHTTP(endpoint)
	defer metrics.ObserveHTTP(endpoint, time.Now())

	switch r.Method {
	case http.MethodGet:
		s.listOccupancies(w, r)
	case http.MethodPost:
		s.createOccupancy(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or POST")
	}
}

func (s *HTTPServer) listOccupancies(w http.ResponseWriter, r *http.Request) {
	assetID := r.URL.Query().Get("asset_id")
	date := r.URL.Query().Get("date")

	from, to, err := s.calendarDay(assetID, date)
	if err != nil {
		s.writeFailure(w, "occupancies", err)
		return
	}

	list, err := s.service.ListOccupancies(r.Context(), assetID, from, to)
	if err != nil {
		s.writeFailure(w, "occupancies", err)
		return
	}
	writeJSON(w, http.StatusOK, OccupanciesResponse{AssetID: assetID, Date: date, Occupancies: list})
}

func (s *HTTPServer) createOccupancy(w http.ResponseWriter, r *http.Request) {
	var req CreateOccupancyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	assetID := strings.TrimSpace(req.AssetID)
	if assetID != "" {
		if _, ok := s.assets.Lookup(assetID); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown asset %q", assetID))
			return
		}
	}

	o := &model.Occupancy{
		AssetID:       assetID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Status:        req.Status,
	}
	if err := s.service.CreateOccupancy(r.Context(), o); err != nil {
		s.writeFailure(w, "occupancies", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleOccupancyByID reads or releases a single occupancy.
// GET    /api/occupancies/{id}
// DELETE /api/occupancies/{id}
func (s *HTTPServer) handleOccupancyByID(w http.ResponseWriter, r *http.Request) {
	const endpoint = "occupancy"
	metrics.IncHTTP(endpoint)
	defer metrics.ObserveHTTP(endpoint, time.Now())

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/occupancies/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "occupancy id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		o, err := s.service.GetOccupancy(r.Context(), id)
		if err != nil {
			s.writeFailure(w, endpoint, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case http.MethodDelete:
		if _, err := s.service.ReleaseOccupancy(r.Context(), id); err != nil {
			s.writeFailure(w, endpoint, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or DELETE")
	}
}

// handleManifest exports a day's occupancies and slot grid as an xlsx workbook.
// GET /api/manifest?asset_id=boat-1&date=YYYY-MM-DD
func (s *HTTPServer) handleManifest(w http.ResponseWriter, r *http.Request) {
	const endpoint = "manifest"
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
		s.writeFailure(w, endpoint, err)
		return
	}
	daySlots, err := gen.GetSlots(r.Context(), date)
	if err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}
	from, to, err := s.calendarDay(assetID, date)
	if err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}
	list, err := s.service.ListOccupancies(r.Context(), assetID, from, to)
	if err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}

	book := manifest.NewWriter(gen.Config().Location)
	defer book.Close()
	if err := book.WriteOccupancies(date, list); err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}
	if err := book.WriteSlots("slots", daySlots); err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}

	var buf bytes.Buffer
	if err := book.Save(&buf); err != nil {
		s.writeFailure(w, endpoint, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", manifest.Filename(assetID, date)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// calendarDay returns [00:00:00, 23:59:59] of date in the asset's location.
func (s *HTTPServer) calendarDay(assetID, date string) (from, to time.Time, err error) {
	gen, err := s.generatorFor(assetID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), gen.Config().Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q is not a valid YYYY-MM-DD date", slots.ErrInvalidInput, date)
	}
	return day, day.AddDate(0, 0, 1).Add(-time.Second), nil
}
