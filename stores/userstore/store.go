// Package userstore holds the signed-in viewer shared by the other stores.
package userstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/observable"
)

// API is the part of the API client used by the store.
type API interface {
	CurrentUser(ctx context.Context) (apiclient.User, error)
}

// tokenSetter is implemented by clients that send a bearer token.
type tokenSetter interface {
	SetToken(token string)
}

// State is the observable state of the store.
type State struct {
	User    *apiclient.User `json:"user"`
	Loading action.Flag     `json:"loading"`
}

func cloneState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Store holds the current user.
type Store struct {
	api    API
	runner *action.Runner
	logger *slog.Logger
	value  *observable.Value[State]
}

// New creates an empty Store.
func New(api API, runner *action.Runner, logger *slog.Logger) *Store {
	return &Store{
		api:    api,
		runner: runner,
		logger: logger,
		value:  observable.New(State{}, cloneState),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.value.Snapshot()
}

// Subscribe registers fn for state changes.
func (s *Store) Subscribe(fn observable.Listener[State]) (unsubscribe func()) {
	return s.value.Subscribe(fn)
}

// OnUserChange calls fn each time the signed-in username changes, including sign in
// and sign out. It returns a function that removes the reaction.
func (s *Store) OnUserChange(fn func(ctx context.Context, prev, next string)) (dispose func()) {
	return observable.React(s.value, username, func(ctx context.Context, prev, next string, _ State) {
		fn(ctx, prev, next)
	})
}

func username(st State) string {
	if st.User == nil {
		return ""
	}
	return st.User.Username
}

// User returns the current user, if one is signed in.
func (s *Store) User() (apiclient.User, bool) {
	var (
		user apiclient.User
		ok   bool
	)
	s.value.Read(func(st *State) {
		if st.User != nil {
			user, ok = *st.User, true
		}
	})
	return user, ok
}

// SetUser replaces the current user. A non-empty token is handed to the API client.
func (s *Store) SetUser(ctx context.Context, user apiclient.User) {
	if t, ok := s.api.(tokenSetter); ok && user.Token != "" {
		t.SetToken(user.Token)
	}
	s.value.Update(ctx, func(st *State) {
		st.User = &user
	})
	s.logger.InfoContext(ctx, "current user set", "username", user.Username)
}

// Clear signs the user out locally.
func (s *Store) Clear(ctx context.Context) {
	s.value.Update(ctx, func(st *State) {
		st.User = nil
	})
}

// SetImage updates the current user's image. It is a no-op when nobody is signed in.
func (s *Store) SetImage(ctx context.Context, url string) {
	s.value.Update(ctx, func(st *State) {
		if st.User != nil {
			st.User.Image = url
		}
	})
}

// SetDisplayName updates the current user's display name.
func (s *Store) SetDisplayName(ctx context.Context, name string) {
	s.value.Update(ctx, func(st *State) {
		if st.User != nil {
			st.User.DisplayName = name
		}
	})
}

// LoadCurrentUser fetches the viewer from the API and makes it the current user.
// The token already held is kept when the response carries none.
func (s *Store) LoadCurrentUser(ctx context.Context) action.Result {
	s.value.Update(ctx, func(st *State) { st.Loading.Begin() })

	var user apiclient.User
	call := func(ctx context.Context) error {
		var err error
		if user, err = s.api.CurrentUser(ctx); err != nil {
			return fmt.Errorf("loading current user: %w", err)
		}
		return nil
	}
	commit := func(result action.Result) {
		if result.OK() {
			if t, ok := s.api.(tokenSetter); ok && user.Token != "" {
				t.SetToken(user.Token)
			}
		}
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				if user.Token == "" && st.User != nil {
					user.Token = st.User.Token
				}
				st.User = &user
			}
			st.Loading.End()
		})
	}
	return s.runner.Run(ctx, action.Spec{Name: "loadCurrentUser"}, call, commit)
}
