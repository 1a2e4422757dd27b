package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/stores/activitystore"
	"github.com/nomis52/reactivities/stores/profilestore"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// writeFailure answers a failed action. Requests refused before reaching the API
// map to client errors, API 404s stay 404s and every other failure is a 502.
func writeFailure(w http.ResponseWriter, result action.Result) {
	writeJSON(w, failureStatus(result.Err), ErrorResponse{Error: result.Err.Error(), Action: result.Action})
}

func failureStatus(err error) int {
	var se *apiclient.StatusError
	switch {
	case errors.Is(err, profilestore.ErrDisplayNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, activitystore.ErrNoCurrentUser):
		return http.StatusUnauthorized
	case errors.Is(err, activitystore.ErrActivityNotFound),
		errors.Is(err, profilestore.ErrPhotoNotFound),
		errors.Is(err, profilestore.ErrNoProfile):
		return http.StatusNotFound
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
