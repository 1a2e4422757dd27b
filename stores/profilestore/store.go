// Package profilestore owns the profile being viewed, its photo gallery, its follow
// relationship with the viewer and the followings list shown on the profile tabs.
//
// Selecting the followers or following tab loads the matching list; any other tab
// clears it. While the followers tab is open, a change of the follow relationship
// reloads the followers so the list matches the counts.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/observable"
	"github.com/nomis52/reactivities/sanitize"
)

var (
	// ErrNoProfile is returned by actions that need a loaded profile.
	ErrNoProfile = errors.New("no profile loaded")
	// ErrPhotoNotFound is returned when a photo is not in the loaded profile.
	ErrPhotoNotFound = errors.New("photo not found in profile")
	// ErrDisplayNameRequired is returned when a profile edit has no display name.
	ErrDisplayNameRequired = errors.New("display name is required")
)

// API is the part of the API client used by the store.
type API interface {
	GetProfile(ctx context.Context, username string) (apiclient.Profile, error)
	UploadPhoto(ctx context.Context, filename string, r io.Reader) (apiclient.Photo, error)
	SetMainPhoto(ctx context.Context, id string) error
	DeletePhoto(ctx context.Context, id string) error
	EditProfile(ctx context.Context, details apiclient.ProfileDetails) error
	Follow(ctx context.Context, username string) error
	Unfollow(ctx context.Context, username string) error
	ListFollowings(ctx context.Context, username string, predicate apiclient.FollowPredicate) ([]apiclient.Profile, error)
}

// Viewer is the signed-in user as seen by the profile store.
type Viewer interface {
	User() (apiclient.User, bool)
	SetImage(ctx context.Context, url string)
	SetDisplayName(ctx context.Context, name string)
}

// Store is the profile store.
type Store struct {
	api       API
	viewer    Viewer
	runner    *action.Runner
	logger    *slog.Logger
	sanitizer *sanitize.Sanitizer
	value     *observable.Value[State]
	disposers []func()
}

// New creates a Store and installs its tab and follow reactions. viewer may be nil.
func New(api API, viewer Viewer, runner *action.Runner, logger *slog.Logger) *Store {
	s := &Store{
		api:       api,
		viewer:    viewer,
		runner:    runner,
		logger:    logger,
		sanitizer: sanitize.New(),
		value:     observable.New(State{}, cloneState),
	}
	s.disposers = append(s.disposers,
		observable.React(s.value, func(st State) int { return st.ActiveTab }, s.onTabChange),
		observable.React(s.value, followKeyOf, s.onFollowChange),
	)
	return s
}

// Close removes the reactions.
func (s *Store) Close() {
	for _, dispose := range s.disposers {
		dispose()
	}
	s.disposers = nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.value.Snapshot()
}

// Subscribe registers fn for state changes.
func (s *Store) Subscribe(fn observable.Listener[State]) (unsubscribe func()) {
	return s.value.Subscribe(fn)
}

func (s *Store) onTabChange(ctx context.Context, prev, next int, st State) {
	switch next {
	case TabFollowers:
		s.LoadFollowings(ctx, apiclient.Followers)
	case TabFollowing:
		s.LoadFollowings(ctx, apiclient.Following)
	default:
		s.value.Update(ctx, func(st *State) {
			st.Followings = nil
			st.followingsSeq++
		})
	}
}

func (s *Store) onFollowChange(ctx context.Context, prev, next followKey, st State) {
	if prev.username == "" || prev.username != next.username {
		return
	}
	if st.ActiveTab == TabFollowers {
		s.LoadFollowings(ctx, apiclient.Followers)
	}
}

func (s *Store) viewerName() string {
	if s.viewer == nil {
		return ""
	}
	if u, ok := s.viewer.User(); ok {
		return u.Username
	}
	return ""
}

// ownedBy reports whether p belongs to the viewer named viewer.
func ownedBy(p *apiclient.Profile, viewer string) bool {
	return p != nil && viewer != "" && p.Username == viewer
}

// IsCurrentUser reports whether the loaded profile is the viewer's own.
func (s *Store) IsCurrentUser() bool {
	viewer := s.viewerName()
	var own bool
	s.value.Read(func(st *State) { own = ownedBy(st.Profile, viewer) })
	return own
}

// profileName returns the username of the loaded profile, or "".
func (s *Store) profileName() string {
	var name string
	s.value.Read(func(st *State) {
		if st.Profile != nil {
			name = st.Profile.Username
		}
	})
	return name
}

// LoadProfile fetches the profile of username and replaces the loaded one. There is
// no cache.
func (s *Store) LoadProfile(ctx context.Context, username string) action.Result {
	s.value.Update(ctx, func(st *State) { st.LoadingProfile.Begin() })

	var profile apiclient.Profile
	call := func(ctx context.Context) error {
		var err error
		if profile, err = s.api.GetProfile(ctx, username); err != nil {
			return fmt.Errorf("loading profile %s: %w", username, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				st.Profile = &profile
			}
			st.LoadingProfile.End()
		})
	}
	return s.runner.Run(ctx, action.Spec{Name: "loadProfile", Notice: "Problem loading profile"}, call, commit)
}

// UploadPhoto uploads a photo to the viewer's gallery. When the server makes it the
// main photo, the profile and viewer images follow it.
func (s *Store) UploadPhoto(ctx context.Context, filename string, r io.Reader) action.Result {
	viewer := s.viewerName()
	s.value.Update(ctx, func(st *State) { st.UploadingPhoto.Begin() })

	var photo apiclient.Photo
	call := func(ctx context.Context) error {
		var err error
		if photo, err = s.api.UploadPhoto(ctx, filename, r); err != nil {
			return fmt.Errorf("uploading photo %s: %w", filename, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() && ownedBy(st.Profile, viewer) {
				st.Profile.Photos = append(st.Profile.Photos, photo)
				if photo.IsMain {
					st.Profile.Image = photo.URL
				}
			}
			st.UploadingPhoto.End()
		})
		if result.OK() && photo.IsMain && s.viewer != nil {
			s.viewer.SetImage(ctx, photo.URL)
		}
	}
	return s.runner.Run(ctx, action.Spec{Name: "uploadPhoto", Key: viewer, Notice: "Problem uploading photo"}, call, commit)
}

// SetMainPhoto makes photo the main one. After the call succeeds, every other photo
// loses its main flag in the same update, so exactly one photo is main afterwards.
func (s *Store) SetMainPhoto(ctx context.Context, photo apiclient.Photo) action.Result {
	spec := action.Spec{Name: "setMainPhoto", Notice: "Problem setting main photo"}
	viewer := s.viewerName()

	var (
		found bool
		owner string
	)
	s.value.Update(ctx, func(st *State) {
		if st.Profile == nil || photoIndex(st.Profile.Photos, photo.ID) < 0 {
			return
		}
		found, owner = true, st.Profile.Username
		st.Loading.Begin()
	})
	if !found {
		return s.runner.Reject(ctx, spec, fmt.Errorf("%w: %s", ErrPhotoNotFound, photo.ID))
	}
	spec.Key = owner

	call := func(ctx context.Context) error {
		if err := s.api.SetMainPhoto(ctx, photo.ID); err != nil {
			return fmt.Errorf("setting main photo %s: %w", photo.ID, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		var (
			url string
			own bool
		)
		s.value.Update(ctx, func(st *State) {
			st.Loading.End()
			if !result.OK() || st.Profile == nil {
				return
			}
			idx := photoIndex(st.Profile.Photos, photo.ID)
			if idx < 0 {
				return
			}
			for i := range st.Profile.Photos {
				st.Profile.Photos[i].IsMain = i == idx
			}
			url = st.Profile.Photos[idx].URL
			st.Profile.Image = url
			own = ownedBy(st.Profile, viewer)
		})
		if own && url != "" && s.viewer != nil {
			s.viewer.SetImage(ctx, url)
		}
	}
	return s.runner.Run(ctx, spec, call, commit)
}

// DeletePhoto removes photo from the gallery.
func (s *Store) DeletePhoto(ctx context.Context, photo apiclient.Photo) action.Result {
	s.value.Update(ctx, func(st *State) { st.Deleting.Begin() })

	call := func(ctx context.Context) error {
		if err := s.api.DeletePhoto(ctx, photo.ID); err != nil {
			return fmt.Errorf("deleting photo %s: %w", photo.ID, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() && st.Profile != nil {
				if idx := photoIndex(st.Profile.Photos, photo.ID); idx >= 0 {
					photos := st.Profile.Photos
					st.Profile.Photos = append(photos[:idx:idx], photos[idx+1:]...)
				}
			}
			st.Deleting.End()
		})
	}
	spec := action.Spec{Name: "deletePhoto", Key: s.profileName(), Notice: "Problem deleting photo"}
	return s.runner.Run(ctx, spec, call, commit)
}

// EditProfile saves the viewer's display name and bio. The bio is stripped of markup.
func (s *Store) EditProfile(ctx context.Context, details apiclient.ProfileDetails) action.Result {
	viewer := s.viewerName()
	spec := action.Spec{Name: "editProfile", Key: viewer, Notice: "Problem updating profile"}

	details.DisplayName = strings.TrimSpace(details.DisplayName)
	if details.DisplayName == "" {
		return s.runner.Reject(ctx, spec, ErrDisplayNameRequired)
	}
	details.Bio = s.sanitizer.Bio(details.Bio)

	s.value.Update(ctx, func(st *State) { st.Loading.Begin() })

	call := func(ctx context.Context) error {
		if err := s.api.EditProfile(ctx, details); err != nil {
			return fmt.Errorf("editing profile: %w", err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() && ownedBy(st.Profile, viewer) {
				st.Profile.DisplayName = details.DisplayName
				st.Profile.Bio = details.Bio
			}
			st.Loading.End()
		})
		if result.OK() && s.viewer != nil {
			s.viewer.SetDisplayName(ctx, details.DisplayName)
		}
	}
	return s.runner.Run(ctx, spec, call, commit)
}

// Follow makes the viewer follow username.
func (s *Store) Follow(ctx context.Context, username string) action.Result {
	return s.changeFollow(ctx, username, true)
}

// Unfollow stops the viewer following username.
func (s *Store) Unfollow(ctx context.Context, username string) action.Result {
	return s.changeFollow(ctx, username, false)
}

func (s *Store) changeFollow(ctx context.Context, username string, follow bool) action.Result {
	spec := action.Spec{Name: "follow", Key: username, Notice: "Problem following user"}
	apiCall := s.api.Follow
	if !follow {
		spec = action.Spec{Name: "unfollow", Key: username, Notice: "Problem unfollowing user"}
		apiCall = s.api.Unfollow
	}

	s.value.Update(ctx, func(st *State) { st.Loading.Begin() })

	call := func(ctx context.Context) error {
		if err := apiCall(ctx, username); err != nil {
			return fmt.Errorf("%s %s: %w", spec.Name, username, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() {
				if st.Profile != nil && st.Profile.Username == username {
					adjustFollow(st.Profile, follow)
				}
				for i := range st.Followings {
					if st.Followings[i].Username == username {
						adjustFollow(&st.Followings[i], follow)
					}
				}
			}
			st.Loading.End()
		})
	}
	return s.runner.Run(ctx, spec, call, commit)
}

// LoadFollowings replaces the followings list with the profiles related to the
// loaded profile by predicate. Only the newest request's response is applied.
func (s *Store) LoadFollowings(ctx context.Context, predicate apiclient.FollowPredicate) action.Result {
	spec := action.Spec{Name: "loadFollowings", Notice: "Problem loading followings"}

	var (
		username string
		seq      uint64
	)
	s.value.Update(ctx, func(st *State) {
		if st.Profile == nil {
			return
		}
		username = st.Profile.Username
		st.followingsSeq++
		seq = st.followingsSeq
		st.FollowingsLoading.Begin()
	})
	if username == "" {
		return s.runner.Reject(ctx, action.Spec{Name: spec.Name}, ErrNoProfile)
	}

	var profiles []apiclient.Profile
	call := func(ctx context.Context) error {
		var err error
		if profiles, err = s.api.ListFollowings(ctx, username, predicate); err != nil {
			return fmt.Errorf("loading %s of %s: %w", predicate, username, err)
		}
		return nil
	}
	commit := func(result action.Result) {
		s.value.Update(ctx, func(st *State) {
			if result.OK() && st.followingsSeq == seq {
				st.Followings = profiles
			}
			st.FollowingsLoading.End()
		})
	}
	return s.runner.Run(ctx, spec, call, commit)
}

// SetActiveTab selects a profile page tab. The followers and following tabs load
// their list before SetActiveTab returns.
func (s *Store) SetActiveTab(ctx context.Context, tab int) {
	s.value.Update(ctx, func(st *State) {
		st.ActiveTab = tab
	})
}
