package handlers

import (
	"net/http"
	"strconv"

	"github.com/nomis52/reactivities/server/runner"
)

// HistoryResponse is the JSON response for GET /api/history.
type HistoryResponse struct {
	Runs []runner.RunStatus `json:"runs"`
}

// HistoryHandler serves refresh run status and history.
type HistoryHandler struct {
	provider HistoryProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{provider: provider}
}

// Status handles GET requests for the current or last refresh run.
func (h *HistoryHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.RefreshStatus())
}

// List handles GET requests for finished runs, most recent first. An optional
// ?limit=N caps the number returned.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	runs := h.provider.RefreshHistory()

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		if limit < len(runs) {
			runs = runs[:limit]
		}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Runs: runs})
}
