package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nomis52/reactivities/server/runner"
)

// RefreshRequest defines the request body for POST /api/refresh.
type RefreshRequest struct {
	Targets []string `json:"targets"`
}

// RefreshHandler handles requests to reload stores from the API.
type RefreshHandler struct {
	logger    *slog.Logger
	refresher Refresher
	available map[string]bool
}

// NewRefreshHandler creates a new RefreshHandler accepting the given targets.
func NewRefreshHandler(logger *slog.Logger, refresher Refresher, available map[string]bool) *RefreshHandler {
	return &RefreshHandler{
		logger:    logger,
		refresher: refresher,
		available: available,
	}
}

// ServeHTTP implements http.Handler.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Targets) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "targets array cannot be empty",
		})
		return
	}

	seen := make(map[string]bool, len(req.Targets))
	for _, target := range req.Targets {
		if seen[target] {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("duplicate target %q in request", target),
			})
			return
		}
		if !h.available[target] {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("unknown target %q", target),
			})
			return
		}
		seen[target] = true
	}

	err := h.refresher.Refresh(r.Context(), req.Targets)
	if errors.Is(err, runner.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.Warn("refresh failed", "targets", req.Targets, "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
