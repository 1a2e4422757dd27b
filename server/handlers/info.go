package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/reactivities/server/types"
)

// NextRefreshResponse describes the refresh schedule.
type NextRefreshResponse struct {
	Scheduled   bool       `json:"scheduled"`
	NextRefresh *time.Time `json:"next_refresh,omitempty"`
}

// InfoResponse is the JSON response for /api/info.
type InfoResponse struct {
	Server  types.ServerProperties `json:"server"`
	Refresh NextRefreshResponse    `json:"refresh"`
}

// InfoHandler handles requests for server metadata.
type InfoHandler struct {
	provider InfoProvider
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(provider InfoProvider) *InfoHandler {
	return &InfoHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	next := h.provider.NextRefresh()
	writeJSON(w, http.StatusOK, InfoResponse{
		Server: h.provider.Properties(),
		Refresh: NextRefreshResponse{
			Scheduled:   next != nil,
			NextRefresh: next,
		},
	})
}

// StateHandler answers with a snapshot of every store.
type StateHandler struct {
	roots RootProvider
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(roots RootProvider) *StateHandler {
	return &StateHandler{roots: roots}
}

// ServeHTTP implements http.Handler.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(h.roots.Root()))
}
