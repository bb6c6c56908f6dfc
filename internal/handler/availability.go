package handler

import (
	"net/http"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// checkAvailabilityRequest is the body of POST /api/availability/check.
type checkAvailabilityRequest struct {
	UnitID   string `json:"unitId"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

// CheckAvailability handles POST /api/availability/check.
// Dates are YYYY-MM-DD; the response is {"available": bool}.
func (s *Server) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req checkAvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
		return
	}
	if req.UnitID == "" || req.CheckIn == "" || req.CheckOut == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("unitId, checkIn, and checkOut are required"))
		return
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("checkIn must be a YYYY-MM-DD date"))
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("checkOut must be a YYYY-MM-DD date"))
		return
	}

	// Zero- or negative-night requests are a client input error; they never
	// reach the resolver.
	if !checkIn.Before(checkOut) {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("checkOut must be after checkIn"))
		return
	}

	available, err := s.availability.IsAvailable(r.Context(), req.UnitID, checkIn, checkOut)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// busyRangeResponse is one merged calendar entry.
type busyRangeResponse struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Source   string `json:"source"`
}

// ListBusyRanges handles GET /api/availability/busy?unitId=&start=&end=.
// It returns the union of internal and external busy ranges intersecting
// the window, for calendar UI rendering.
func (s *Server) ListBusyRanges(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unitId")
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if unitID == "" || startStr == "" || endStr == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("unitId, start, and end are required"))
		return
	}

	start, err := parseDate(startStr)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("start must be a YYYY-MM-DD date"))
		return
	}
	end, err := parseDate(endStr)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("end must be a YYYY-MM-DD date"))
		return
	}

	// An inverted or empty window is a client input error, not an empty
	// calendar.
	if !start.Before(end) {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("end must be after start"))
		return
	}

	ranges, err := s.availability.ListBusyRanges(r.Context(), unitID, start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		return
	}

	out := make([]busyRangeResponse, len(ranges))
	for i, br := range ranges {
		out[i] = toBusyRangeResponse(br)
	}
	writeJSON(w, http.StatusOK, map[string][]busyRangeResponse{"ranges": out})
}

func toBusyRangeResponse(br domain.BusyRange) busyRangeResponse {
	return busyRangeResponse{
		CheckIn:  br.CheckIn.Format(time.DateOnly),
		CheckOut: br.CheckOut.Format(time.DateOnly),
		Source:   br.Source,
	}
}
