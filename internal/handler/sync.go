package handler

import (
	"fmt"
	"net/http"

	"github.com/BrainsyETH/dillardmill/internal/service"
)

// syncResponse is the body of a completed sync run: one entry per
// (unit, source) pair plus a human-readable tally.
type syncResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Results []service.SyncResult `json:"results"`
}

// TriggerSync handles POST /api/calendar/sync.
// Called by the cron schedule and available for manual runs; guarded by the
// configured bearer token. Per-pair failures are reported in the results,
// not as an HTTP error — only failing to enumerate units is a 5xx.
func (s *Server) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, unauthorizedBody())
		return
	}

	results, err := s.sync.SyncAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "sync_failed", Message: "calendar sync failed"},
		})
		return
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success: true,
		Message: fmt.Sprintf("Calendar sync complete: %d successful, %d failed",
			succeeded, len(results)-succeeded),
		Results: results,
	})
}
