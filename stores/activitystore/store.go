// Package activitystore owns the canonical set of activities, the selected activity
// and the busy flags of the activity actions.
//
// Every action raises its flag, waits for the API and then applies the result and
// lowers the flag in one observable update, so subscribers never see a half applied
// change. Failures are returned as an action.Result and leave the state untouched.
package activitystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/observable"
	"github.com/nomis52/reactivities/sanitize"
)

var (
	// ErrNoCurrentUser is returned by the attendance actions when nobody is signed in.
	ErrNoCurrentUser = errors.New("no current user")
	// ErrActivityNotFound is returned by EditActivity for an activity without an ID.
	ErrActivityNotFound = errors.New("activity not found")
)

// API is the part of the API client used by the store.
type API interface {
	ListActivities(ctx context.Context) ([]apiclient.Activity, error)
	ActivityDetails(ctx context.Context, id string) (apiclient.Activity, error)
	CreateActivity(ctx context.Context, activity apiclient.Activity) error
	UpdateActivity(ctx context.Context, activity apiclient.Activity) error
	DeleteActivity(ctx context.Context, id string) error
	AttendActivity(ctx context.Context, id string) error
	UnattendActivity(ctx context.Context, id string) error
}

// UserSource provides the signed-in viewer.
type UserSource interface {
	User() (apiclient.User, bool)
}

// Store is the activity store.
type Store struct {
	api       API
	users     UserSource
	runner    *action.Runner
	logger    *slog.Logger
	sanitizer *sanitize.Sanitizer
	value     *observable.Value[State]

	groupsMu      sync.Mutex
	groups        []DateGroup
	groupsVersion uint64
	groupsValid   bool
	groupsBuilt   int
}

// New creates an empty Store. users may be nil when there is never a viewer.
func New(api API, users UserSource, runner *action.Runner, logger *slog.Logger) *Store {
	return &Store{
		api:       api,
		users:     users,
		runner:    runner,
		logger:    logger,
		sanitizer: sanitize.New(),
		value:     observable.New(State{Registry: map[string]apiclient.Activity{}}, cloneState),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.value.Snapshot()
}

// Version returns the number of state changes so far.
func (s *Store) Version() uint64 {
	return s.value.Version()
}

// Subscribe registers fn for state changes.
func (s *Store) Subscribe(fn observable.Listener[State]) (unsubscribe func()) {
	return s.value.Subscribe(fn)
}

func (s *Store) currentUser() *apiclient.User {
	if s.users == nil {
		return nil
	}
	if u, ok := s.users.User(); ok {
		return &u
	}
	return nil
}

// LoadActivities replaces the registry with the server's list.
func (s *Store) LoadActivities(ctx context.Context) action.Result {
	s.value.Update(ctx, func(st *State) { st.LoadingInitial.Begin() })

	var list []apiclient.Activity
	call := func(ctx context.Context) error {
		var err error
		if list, err = s.api.ListActivities(ctx); err != nil {
			return fmt.Errorf("listing activities: %w", err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				// The viewer is read under the lock so a concurrent sign in is
				// either seen here or refreshed after this update.
				user := s.currentUser()
				registry := make(map[string]apiclient.Activity, len(list))
				for _, a := range list {
					registry[a.ID] = decorate(a, user)
				}
				st.Registry = registry
				if st.Selected != nil {
					st.selectID(st.Selected.ID)
				}
			}
			st.LoadingInitial.End()
		})
	}

	result := s.runner.Run(ctx, action.Spec{Name: "loadActivities"}, call, commit)
	if result.OK() {
		s.logger.InfoContext(ctx, "activities loaded", "count", len(list))
	}
	return result
}

// LoadActivity selects and returns the activity with the given ID. The registry is
// consulted first; the API is only called on a miss.
func (s *Store) LoadActivity(ctx context.Context, id string) (apiclient.Activity, action.Result) {
	var (
		cached apiclient.Activity
		hit    bool
	)
	s.value.Update(ctx, func(st *State) {
		if a, ok := st.Registry[id]; ok {
			cached, hit = a.Clone(), true
			st.selectActivity(a)
			return
		}
		st.LoadingInitial.Begin()
	})
	if hit {
		return cached, s.runner.Succeed("loadActivity")
	}

	var fetched apiclient.Activity
	call := func(ctx context.Context) error {
		var err error
		if fetched, err = s.api.ActivityDetails(ctx, id); err != nil {
			return fmt.Errorf("loading activity %s: %w", id, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		if result.OK() {
			fetched = decorate(fetched, s.currentUser())
		}
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				st.Registry[fetched.ID] = fetched
				st.selectActivity(fetched)
			}
			st.LoadingInitial.End()
		})
	}

	result := s.runner.Run(ctx, action.Spec{Name: "loadActivity"}, call, commit)
	if !result.OK() {
		return apiclient.Activity{}, result
	}
	return fetched.Clone(), result
}

// CreateActivity creates an activity and returns the stored record. An empty ID is
// replaced by a new UUID and the viewer, if any, is added as the host.
func (s *Store) CreateActivity(ctx context.Context, a apiclient.Activity) (apiclient.Activity, action.Result) {
	a = a.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Description = s.sanitizer.Description(a.Description)

	user := s.currentUser()
	if user != nil && !hasAttendee(a, user.Username) {
		a.Attendees = append(a.Attendees, apiclient.Attendee{
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Image:       user.Image,
			IsHost:      true,
		})
	}

	s.value.Update(ctx, func(st *State) { st.Submitting.Begin() })

	call := func(ctx context.Context) error {
		if err := s.api.CreateActivity(ctx, a); err != nil {
			return fmt.Errorf("creating activity %s: %w", a.ID, err)
		}
		return nil
	}
	created := decorate(a, user)
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				st.Registry[created.ID] = created
				st.selectActivity(created)
				st.EditMode = false
			}
			st.Submitting.End()
		})
	}

	spec := action.Spec{Name: "create", Key: a.ID, Notice: "Problem submitting data"}
	result := s.runner.Run(ctx, spec, call, commit)
	if !result.OK() {
		return apiclient.Activity{}, result
	}
	return created.Clone(), result
}

// EditActivity saves changes to an activity and returns the stored record.
// Attendees are kept from the registry when a carries none.
func (s *Store) EditActivity(ctx context.Context, a apiclient.Activity) (apiclient.Activity, action.Result) {
	spec := action.Spec{Name: "edit", Key: a.ID, Notice: "Problem submitting data"}
	if a.ID == "" {
		return apiclient.Activity{}, s.runner.Reject(ctx, spec, ErrActivityNotFound)
	}

	a = a.Clone()
	a.Description = s.sanitizer.Description(a.Description)

	s.value.Update(ctx, func(st *State) {
		if existing, ok := st.Registry[a.ID]; ok && a.Attendees == nil {
			a.Attendees = existing.Clone().Attendees
		}
		st.Submitting.Begin()
	})

	call := func(ctx context.Context) error {
		if err := s.api.UpdateActivity(ctx, a); err != nil {
			return fmt.Errorf("updating activity %s: %w", a.ID, err)
		}
		return nil
	}
	var edited apiclient.Activity
	commit := func(result action.Result) {
		edited = decorate(a, s.currentUser())
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				st.Registry[edited.ID] = edited
				st.selectActivity(edited)
				st.EditMode = false
			}
			st.Submitting.End()
		})
	}
	result := s.runner.Run(ctx, spec, call, commit)
	if !result.OK() {
		return apiclient.Activity{}, result
	}
	return edited.Clone(), result
}

// DeleteActivity deletes the activity with the given ID. target names the element
// that started the delete and is exposed as State.Target while the call is pending.
func (s *Store) DeleteActivity(ctx context.Context, target, id string) action.Result {
	s.value.Update(ctx, func(st *State) {
		st.Submitting.Begin()
		st.Target = target
	})

	call := func(ctx context.Context) error {
		if err := s.api.DeleteActivity(ctx, id); err != nil {
			return fmt.Errorf("deleting activity %s: %w", id, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				delete(st.Registry, id)
				if st.Selected != nil && st.Selected.ID == id {
					st.Selected = nil
					st.EditMode = false
				}
			}
			if st.Target == target {
				st.Target = ""
			}
			st.Submitting.End()
		})
	}

	spec := action.Spec{Name: "delete", Key: id, Notice: "Problem deleting activity"}
	return s.runner.Run(ctx, spec, call, commit)
}

// Attend signs the viewer up to an activity.
func (s *Store) Attend(ctx context.Context, id string) action.Result {
	return s.changeAttendance(ctx, id, true)
}

// CancelAttendance removes the viewer from an activity.
func (s *Store) CancelAttendance(ctx context.Context, id string) action.Result {
	return s.changeAttendance(ctx, id, false)
}

func (s *Store) changeAttendance(ctx context.Context, id string, going bool) action.Result {
	spec := action.Spec{Name: "attend", Key: id, Notice: "Problem signing up to activity"}
	apiCall := s.api.AttendActivity
	if !going {
		spec = action.Spec{Name: "cancelAttendance", Key: id, Notice: "Problem cancelling attendance"}
		apiCall = s.api.UnattendActivity
	}

	user := s.currentUser()
	if user == nil {
		return s.runner.Reject(ctx, spec, ErrNoCurrentUser)
	}

	s.value.Update(ctx, func(st *State) { st.Loading.Begin() })

	call := func(ctx context.Context) error {
		if err := apiCall(ctx, id); err != nil {
			return fmt.Errorf("%s %s: %w", spec.Name, id, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if a, ok := st.Registry[id]; ok && result.OK() {
				a = a.Clone()
				if going {
					if !hasAttendee(a, user.Username) {
						a.Attendees = append(a.Attendees, apiclient.Attendee{
							Username:    user.Username,
							DisplayName: user.DisplayName,
							Image:       user.Image,
						})
					}
				} else {
					a.Attendees = removeAttendee(a.Attendees, user.Username)
				}
				st.put(decorate(a, user))
			}
			st.Loading.End()
		})
	}
	return s.runner.Run(ctx, spec, call, commit)
}

// RefreshViewerFlags recomputes IsGoing and IsHost, e.g. after the viewer changed.
func (s *Store) RefreshViewerFlags(ctx context.Context) {
	s.value.Update(ctx, func(st *State) {
		user := s.currentUser()
		for id, a := range st.Registry {
			st.Registry[id] = decorate(a, user)
		}
		if st.Selected != nil {
			st.selectID(st.Selected.ID)
		}
	})
}

// OpenCreateForm enters edit mode with nothing selected.
func (s *Store) OpenCreateForm(ctx context.Context) {
	s.value.Update(ctx, func(st *State) {
		st.EditMode = true
		st.Selected = nil
	})
}

// OpenEditForm selects the activity and enters edit mode.
func (s *Store) OpenEditForm(ctx context.Context, id string) {
	s.value.Update(ctx, func(st *State) {
		st.selectID(id)
		st.EditMode = true
	})
}

// SelectActivity selects the activity and leaves edit mode. An empty id clears the
// selection.
func (s *Store) SelectActivity(ctx context.Context, id string) {
	s.value.Update(ctx, func(st *State) {
		st.selectID(id)
		st.EditMode = false
	})
}

// CancelSelectedActivity clears the selection.
func (s *Store) CancelSelectedActivity(ctx context.Context) {
	s.value.Update(ctx, func(st *State) {
		st.Selected = nil
	})
}

// CancelFormOpen leaves edit mode.
func (s *Store) CancelFormOpen(ctx context.Context) {
	s.value.Update(ctx, func(st *State) {
		st.EditMode = false
	})
}

// ActivitiesByDate returns the activities grouped by calendar date, in ascending
// date order. The grouping is rebuilt only when the state has changed.
func (s *Store) ActivitiesByDate() []DateGroup {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	if !s.groupsValid || s.groupsVersion != s.value.Version() {
		cur := s.value.Current()
		s.groups = groupByDate(cur.State.Registry)
		s.groupsVersion = cur.Version
		s.groupsValid = true
		s.groupsBuilt++
	}
	return cloneGroups(s.groups)
}

func hasAttendee(a apiclient.Activity, username string) bool {
	for _, att := range a.Attendees {
		if att.Username == username {
			return true
		}
	}
	return false
}

func removeAttendee(attendees []apiclient.Attendee, username string) []apiclient.Attendee {
	result := make([]apiclient.Attendee, 0, len(attendees))
	for _, att := range attendees {
		if att.Username != username {
			result = append(result, att)
		}
	}
	return result
}
