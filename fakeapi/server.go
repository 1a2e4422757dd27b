// Package fakeapi is an in-memory implementation of the reactivities API, used by
// tests and by cmd/fakeapi for local development.
//
// The server is mounted under /api. Requests are made on behalf of the user whose
// token is sent as a bearer token, or of the default viewer when no token is sent.
//
//	fake := fakeapi.New(fakeapi.WithViewer("bob"))
//	fake.AddUser(apiclient.Profile{Username: "bob", DisplayName: "Bob"})
//	srv := httptest.NewServer(fake)
//	client, _ := apiclient.New(srv.URL + "/api")
package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/logging"
)

// Route names accepted by FailNext and Requests. They are the method followed by the
// chi pattern, relative to /api.
const (
	RouteListActivities  = "GET /activities"
	RouteActivityDetails = "GET /activities/{id}"
	RouteCreateActivity  = "POST /activities"
	RouteUpdateActivity  = "PUT /activities/{id}"
	RouteDeleteActivity  = "DELETE /activities/{id}"
	RouteAttend          = "POST /activities/{id}/attend"
	RouteUnattend        = "DELETE /activities/{id}/attend"
	RouteCurrentUser     = "GET /user"
	RouteGetProfile      = "GET /profiles/{username}"
	RouteEditProfile     = "PUT /profiles"
	RouteFollow          = "POST /profiles/{username}/follow"
	RouteUnfollow        = "DELETE /profiles/{username}/follow"
	RouteListFollowings  = "GET /profiles/{username}/follow"
	RouteUploadPhoto     = "POST /photos"
	RouteSetMainPhoto    = "POST /photos/{id}/setMain"
	RouteDeletePhoto     = "DELETE /photos/{id}"
)

// Server is the fake API. It implements http.Handler.
type Server struct {
	router chi.Router
	logger *slog.Logger

	mu         sync.Mutex
	viewer     string
	activities map[string]apiclient.Activity
	users      map[string]*apiclient.Profile
	follows    map[string]map[string]bool // follower -> followees
	failures   map[string][]int
	requests   map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithViewer sets the user requests without a token are made by.
func WithViewer(username string) Option {
	return func(s *Server) {
		s.viewer = username
	}
}

// New creates an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		logger:     logging.Discard(),
		activities: make(map[string]apiclient.Activity),
		users:      make(map[string]*apiclient.Profile),
		follows:    make(map[string]map[string]bool),
		failures:   make(map[string][]int),
		requests:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		s.handle(r, RouteListActivities, s.handleListActivities)
		s.handle(r, RouteActivityDetails, s.handleActivityDetails)
		s.handle(r, RouteCreateActivity, s.handleCreateActivity)
		s.handle(r, RouteUpdateActivity, s.handleUpdateActivity)
		s.handle(r, RouteDeleteActivity, s.handleDeleteActivity)
		s.handle(r, RouteAttend, s.handleAttend)
		s.handle(r, RouteUnattend, s.handleUnattend)
		s.handle(r, RouteCurrentUser, s.handleCurrentUser)
		s.handle(r, RouteGetProfile, s.handleGetProfile)
		s.handle(r, RouteEditProfile, s.handleEditProfile)
		s.handle(r, RouteFollow, s.handleFollow)
		s.handle(r, RouteUnfollow, s.handleUnfollow)
		s.handle(r, RouteListFollowings, s.handleListFollowings)
		s.handle(r, RouteUploadPhoto, s.handleUploadPhoto)
		s.handle(r, RouteSetMainPhoto, s.handleSetMainPhoto)
		s.handle(r, RouteDeletePhoto, s.handleDeletePhoto)
	})
	return r
}

// handle registers h for route, counting requests and applying injected failures.
func (s *Server) handle(r chi.Router, route string, h http.HandlerFunc) {
	method, pattern, _ := strings.Cut(route, " ")
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		status := s.record(route)
		s.logger.Debug("fake api request", "route", route, "path", req.URL.Path, "injected_status", status)
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		h(w, req)
	}))
}

func (s *Server) record(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[route]++
	queue := s.failures[route]
	if len(queue) == 0 {
		return 0
	}
	s.failures[route] = queue[1:]
	return queue[0]
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next request to route answer with status. Calls queue up.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Requests returns how many requests route has received.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// SetViewer changes the default viewer.
func (s *Server) SetViewer(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = username
}

// AddUser stores a profile. Its follow counts are computed, not stored.
func (s *Server) AddUser(p apiclient.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Clone()
	s.users[p.Username] = &p
}

// AddActivity stores an activity as is.
func (s *Server) AddActivity(a apiclient.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[a.ID] = a.Clone()
}

// AddFollow records that follower follows followee.
func (s *Server) AddFollow(follower, followee string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFollowLocked(follower, followee)
}

// Activity returns the stored activity.
func (s *Server) Activity(id string) (apiclient.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	return a.Clone(), ok
}

// Profile returns the stored profile as seen by the default viewer.
func (s *Server) Profile(username string) (apiclient.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileLocked(username, s.viewer)
}

// TokenFor returns the bearer token that identifies username.
func TokenFor(username string) string {
	return "token-" + username
}

// viewerLocked returns the user the request is made by.
func (s *Server) viewerLocked(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if username, ok := strings.CutPrefix(token, "token-"); ok {
			if _, known := s.users[username]; known {
				return username
			}
		}
	}
	return s.viewer
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
