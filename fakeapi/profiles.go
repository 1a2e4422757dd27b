package fakeapi

import (
	"encoding/json"
	"net/http"
	"path"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// maxPhotoSize bounds uploaded photos.
const maxPhotoSize = 10 << 20

// GET /user
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.users[s.viewerLocked(r)]
	var user apiclient.User
	if ok {
		user = apiclient.User{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Image:       u.Image,
			Token:       TokenFor(u.Username),
		}
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /profiles/{username}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.mu.Lock()
	p, ok := s.profileLocked(username, s.viewerLocked(r))
	s.mu.Unlock()

	if !ok {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PUT /profiles
func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	var details apiclient.ProfileDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		http.Error(w, "invalid profile", http.StatusBadRequest)
		return
	}
	if details.DisplayName == "" {
		http.Error(w, "display name is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[s.viewerLocked(r)]
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u.DisplayName = details.DisplayName
	u.Bio = details.Bio
	w.WriteHeader(http.StatusOK)
}

// POST /profiles/{username}/follow
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "username")

	s.mu.Lock()
	defer s.mu.Unlock()

	viewer := s.viewerLocked(r)
	if _, ok := s.users[viewer]; !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, ok := s.users[target]; !ok {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	if viewer == target {
		http.Error(w, "you cannot follow yourself", http.StatusBadRequest)
		return
	}
	if s.follows[viewer][target] {
		http.Error(w, "you are already following this user", http.StatusBadRequest)
		return
	}
	s.addFollowLocked(viewer, target)
	w.WriteHeader(http.StatusOK)
}

// DELETE /profiles/{username}/follow
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "username")

	s.mu.Lock()
	defer s.mu.Unlock()

	viewer := s.viewerLocked(r)
	if !s.follows[viewer][target] {
		http.Error(w, "you are not following this user", http.StatusBadRequest)
		return
	}
	delete(s.follows[viewer], target)
	w.WriteHeader(http.StatusOK)
}

// GET /profiles/{username}/follow?predicate=followers|following
func (s *Server) handleListFollowings(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	predicate := apiclient.FollowPredicate(r.URL.Query().Get("predicate"))
	if !predicate.Valid() {
		http.Error(w, "invalid predicate", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	var names []string
	switch predicate {
	case apiclient.Followers:
		for follower, followees := range s.follows {
			if followees[username] {
				names = append(names, follower)
			}
		}
	case apiclient.Following:
		for followee := range s.follows[username] {
			names = append(names, followee)
		}
	}
	sort.Strings(names)

	viewer := s.viewerLocked(r)
	profiles := make([]apiclient.Profile, 0, len(names))
	for _, name := range names {
		if p, ok := s.profileLocked(name, viewer); ok {
			p.Photos = nil
			profiles = append(profiles, p)
		}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// POST /photos
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("File")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	file.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[s.viewerLocked(r)]
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := uuid.NewString()
	photo := apiclient.Photo{
		ID:     id,
		URL:    "/images/" + id + "/" + path.Base(header.Filename),
		IsMain: len(u.Photos) == 0,
	}
	u.Photos = append(u.Photos, photo)
	if photo.IsMain {
		u.Image = photo.URL
	}
	writeJSON(w, http.StatusOK, photo)
}

// POST /photos/{id}/setMain
func (s *Server) handleSetMainPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[s.viewerLocked(r)]
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	idx := photoIndex(u.Photos, id)
	if idx < 0 {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	for i := range u.Photos {
		u.Photos[i].IsMain = i == idx
	}
	u.Image = u.Photos[idx].URL
	w.WriteHeader(http.StatusOK)
}

// DELETE /photos/{id}
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[s.viewerLocked(r)]
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	idx := photoIndex(u.Photos, id)
	if idx < 0 {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	if u.Photos[idx].IsMain {
		http.Error(w, "you cannot delete your main photo", http.StatusBadRequest)
		return
	}
	u.Photos = append(u.Photos[:idx:idx], u.Photos[idx+1:]...)
	w.WriteHeader(http.StatusOK)
}

// profileLocked returns the profile of username as seen by viewer.
func (s *Server) profileLocked(username, viewer string) (apiclient.Profile, bool) {
	u, ok := s.users[username]
	if !ok {
		return apiclient.Profile{}, false
	}
	p := u.Clone()
	p.Following = s.follows[viewer][username]
	p.FollowingCount = len(s.follows[username])
	p.FollowersCount = 0
	for _, followees := range s.follows {
		if followees[username] {
			p.FollowersCount++
		}
	}
	return p, true
}

func (s *Server) addFollowLocked(follower, followee string) {
	if s.follows[follower] == nil {
		s.follows[follower] = make(map[string]bool)
	}
	s.follows[follower][followee] = true
}

func photoIndex(photos []apiclient.Photo, id string) int {
	for i, p := range photos {
		if p.ID == id {
			return i
		}
	}
	return -1
}
