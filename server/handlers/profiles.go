package handlers

import (
	"net/http"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// maxPhotoSize bounds multipart photo uploads.
const maxPhotoSize = 10 << 20

// ProfileHandler serves the profile store.
type ProfileHandler struct {
	roots RootProvider
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(roots RootProvider) *ProfileHandler {
	return &ProfileHandler{roots: roots}
}

// TabRequest is the body of PUT /api/profile/tab.
type TabRequest struct {
	Tab int `json:"tab"`
}

// Get handles GET /api/profiles/{username}: it loads the profile and answers with
// the profile store state.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Profiles
	if result := store.LoadProfile(r.Context(), r.PathValue("username")); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// Follow handles POST /api/profiles/{username}/follow.
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Profiles
	if result := store.Follow(r.Context(), r.PathValue("username")); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// Unfollow handles DELETE /api/profiles/{username}/follow.
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Profiles
	if result := store.Unfollow(r.Context(), r.PathValue("username")); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// Edit handles PUT /api/profile.
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var details apiclient.ProfileDetails
	if !decodeJSON(w, r, &details) {
		return
	}
	store := h.roots.Root().Profiles
	if result := store.EditProfile(r.Context(), details); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// SetTab handles PUT /api/profile/tab. Selecting the followers or following tab
// loads the list before answering.
func (h *ProfileHandler) SetTab(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	store := h.roots.Root().Profiles
	store.SetActiveTab(r.Context(), req.Tab)
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// UploadPhoto handles POST /api/profile/photos with a multipart "File" field.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	file, header, err := r.FormFile("File")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing file: " + err.Error()})
		return
	}
	defer file.Close()

	store := h.roots.Root().Profiles
	if result := store.UploadPhoto(r.Context(), header.Filename, file); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusCreated, store.Snapshot())
}

// SetMainPhoto handles POST /api/profile/photos/{id}/main.
func (h *ProfileHandler) SetMainPhoto(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Profiles
	if result := store.SetMainPhoto(r.Context(), h.photo(r.PathValue("id"))); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// DeletePhoto handles DELETE /api/profile/photos/{id}.
func (h *ProfileHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	store := h.roots.Root().Profiles
	if result := store.DeletePhoto(r.Context(), h.photo(r.PathValue("id"))); !result.OK() {
		writeFailure(w, result)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// photo returns the loaded profile's photo with the given ID, or a bare Photo
// carrying only the ID.
func (h *ProfileHandler) photo(id string) apiclient.Photo {
	st := h.roots.Root().Profiles.Snapshot()
	if st.Profile != nil {
		for _, p := range st.Profile.Photos {
			if p.ID == id {
				return p
			}
		}
	}
	return apiclient.Photo{ID: id}
}
