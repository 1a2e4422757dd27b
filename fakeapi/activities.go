package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// GET /activities
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]apiclient.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		list = append(list, a.Clone())
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, http.StatusOK, list)
}

// GET /activities/{id}
func (s *Server) handleActivityDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	a, ok := s.activities[id]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.Clone())
}

// POST /activities
func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var a apiclient.Activity
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid activity", http.StatusBadRequest)
		return
	}
	if a.ID == "" || a.Title == "" {
		http.Error(w, "id and title are required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activities[a.ID]; exists {
		http.Error(w, "activity already exists", http.StatusBadRequest)
		return
	}
	if len(a.Attendees) == 0 {
		if u, ok := s.users[s.viewerLocked(r)]; ok {
			a.Attendees = []apiclient.Attendee{attendee(u, true)}
		}
	}
	s.activities[a.ID] = a.Clone()
	w.WriteHeader(http.StatusOK)
}

// PUT /activities/{id}
func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a apiclient.Activity
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid activity", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.activities[id]
	if !ok {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	a.ID = id
	if a.Attendees == nil {
		a.Attendees = existing.Attendees
	}
	s.activities[id] = a.Clone()
	w.WriteHeader(http.StatusOK)
}

// DELETE /activities/{id}
func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[id]; !ok {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	delete(s.activities, id)
	w.WriteHeader(http.StatusOK)
}

// POST /activities/{id}/attend
func (s *Server) handleAttend(w http.ResponseWriter, r *http.Request) {
	s.changeAttendance(w, r, true)
}

// DELETE /activities/{id}/attend
func (s *Server) handleUnattend(w http.ResponseWriter, r *http.Request) {
	s.changeAttendance(w, r, false)
}

func (s *Server) changeAttendance(w http.ResponseWriter, r *http.Request, going bool) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[id]
	if !ok {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	u, ok := s.users[s.viewerLocked(r)]
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	idx := -1
	for i, att := range a.Attendees {
		if att.Username == u.Username {
			idx = i
		}
	}

	switch {
	case going && idx >= 0:
		http.Error(w, "already attending", http.StatusBadRequest)
		return
	case going:
		a.Attendees = append(a.Attendees, attendee(u, false))
	case idx < 0:
		http.Error(w, "not attending", http.StatusBadRequest)
		return
	case a.Attendees[idx].IsHost:
		http.Error(w, "the host cannot leave the activity", http.StatusBadRequest)
		return
	default:
		a.Attendees = append(a.Attendees[:idx:idx], a.Attendees[idx+1:]...)
	}
	s.activities[id] = a
	w.WriteHeader(http.StatusOK)
}

func attendee(u *apiclient.Profile, host bool) apiclient.Attendee {
	return apiclient.Attendee{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Image:       u.Image,
		IsHost:      host,
	}
}
