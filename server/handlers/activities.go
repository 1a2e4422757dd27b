package handlers

import (
	"net/http"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// ActivityHandler serves the activity store.
type ActivityHandler struct {
	roots RootProvider
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(roots RootProvider) *ActivityHandler {
	return &ActivityHandler{roots: roots}
}

// GroupsResponse is the JSON response for GET /api/activities.
type GroupsResponse struct {
	Groups []dateGroupView `json:"groups"`
}

// List handles GET /api/activities: the activities grouped by calendar date.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	groups := h.roots.Root().Activities.ActivitiesByDate()
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: newDateGroupViews(groups)})
}

// Load handles POST /api/activities/load.
func (h *ActivityHandler) Load(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Activities
	if result := store.LoadActivities(r.Context()); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: newDateGroupViews(store.ActivitiesByDate())})
}

// Get handles GET /api/activities/{id}.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, result := h.roots.Root().Activities.LoadActivity(r.Context(), r.PathValue("id"))
	if !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, newActivityView(a))
}

// Create handles POST /api/activities. It answers with the stored activity.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var a apiclient.Activity
	if !decodeJSON(w, r, &a) {
		return
	}
	created, result := h.roots.Root().Activities.CreateActivity(r.Context(), a)
	if !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusCreated, newActivityView(created))
}

// Update handles PUT /api/activities/{id}. The path ID wins over the body.
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var a apiclient.Activity
	if !decodeJSON(w, r, &a) {
		return
	}
	a.ID = r.PathValue("id")
	edited, result := h.roots.Root().Activities.EditActivity(r.Context(), a)
	if !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, newActivityView(edited))
}

// Delete handles DELETE /api/activities/{id}. The optional "target" query
// parameter names the element that started the delete and defaults to the ID.
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	target := r.URL.Query().Get("target")
	if target == "" {
		target = id
	}
	if result := h.roots.Root().Activities.DeleteActivity(r.Context(), target, id); !result.OK() {
		writeFailure(w, result)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Attend handles POST /api/activities/{id}/attend.
func (h *ActivityHandler) Attend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if result := h.roots.Root().Activities.Attend(r.Context(), id); !result.OK() {
		writeFailure(w, result)
		return
	}
	h.writeActivity(w, id)
}

// CancelAttendance handles DELETE /api/activities/{id}/attend.
func (h *ActivityHandler) CancelAttendance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if result := h.roots.Root().Activities.CancelAttendance(r.Context(), id); !result.OK() {
		writeFailure(w, result)
		return
	}
	h.writeActivity(w, id)
}

func (h *ActivityHandler) writeActivity(w http.ResponseWriter, id string) {
	st := h.roots.Root().Activities.Snapshot()
	a, ok := st.Registry[id]
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newActivityView(a))
}
