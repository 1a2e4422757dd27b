package handlers

import (
	"net/http"
)

// DiagnosticsHandler serves the recent log records of every store.
type DiagnosticsHandler struct {
	roots RootProvider
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(roots RootProvider) *DiagnosticsHandler {
	return &DiagnosticsHandler{roots: roots}
}

// ServeHTTP implements http.Handler. ?store=name limits the answer to one store.
func (h *DiagnosticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	collector, ok := h.roots.Root().Collector()
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "log capture is disabled"})
		return
	}

	if store := r.URL.Query().Get("store"); store != "" {
		writeJSON(w, http.StatusOK, collector.Logs(store))
		return
	}
	writeJSON(w, http.StatusOK, collector.All())
}
