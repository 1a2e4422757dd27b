package profilestore

import (
	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
)

// Profile page tabs that show a followings list.
const (
	TabFollowers = 3
	TabFollowing = 4
)

// State is the observable state of the profile store.
type State struct {
	Profile        *apiclient.Profile `json:"profile"`
	LoadingProfile action.Flag        `json:"loadingProfile"`
	UploadingPhoto action.Flag        `json:"uploadingPhoto"`
	// Loading covers set-main-photo, profile edits and follow changes.
	Loading  action.Flag `json:"loading"`
	Deleting action.Flag `json:"deleting"`

	Followings        []apiclient.Profile `json:"followings"`
	FollowingsLoading action.Flag         `json:"followingsLoading"`
	ActiveTab         int                 `json:"activeTab"`

	// followingsSeq identifies the newest followings request; older responses are dropped.
	followingsSeq uint64
}

func cloneState(s State) State {
	if s.Profile != nil {
		p := s.Profile.Clone()
		s.Profile = &p
	}
	if s.Followings != nil {
		followings := make([]apiclient.Profile, len(s.Followings))
		for i, p := range s.Followings {
			followings[i] = p.Clone()
		}
		s.Followings = followings
	}
	return s
}

// followKey is what the follow reaction watches.
type followKey struct {
	username  string
	following bool
}

func followKeyOf(s State) followKey {
	if s.Profile == nil {
		return followKey{}
	}
	return followKey{username: s.Profile.Username, following: s.Profile.Following}
}

func photoIndex(photos []apiclient.Photo, id string) int {
	for i, p := range photos {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// adjustFollow flips the following flag of p and moves its follower count, never
// below zero.
func adjustFollow(p *apiclient.Profile, following bool) {
	if p.Following == following {
		return
	}
	p.Following = following
	if following {
		p.FollowersCount++
	} else if p.FollowersCount > 0 {
		p.FollowersCount--
	}
}
