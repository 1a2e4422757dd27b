package handlers

import (
	"net/http"
	"strconv"
)

// NoticesHandler serves the notice board.
type NoticesHandler struct {
	roots RootProvider
}

// NewNoticesHandler creates a new NoticesHandler.
func NewNoticesHandler(roots RootProvider) *NoticesHandler {
	return &NoticesHandler{roots: roots}
}

// List handles GET /api/notices. It returns the active notices, or every retained
// notice with ?all=true.
func (h *NoticesHandler) List(w http.ResponseWriter, r *http.Request) {
	board := h.roots.Root().Notices
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		writeJSON(w, http.StatusOK, board.All())
		return
	}
	writeJSON(w, http.StatusOK, board.Active())
}

// Dismiss handles DELETE /api/notices/{id}.
func (h *NoticesHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.roots.Root().Notices.Dismiss(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "notice not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
