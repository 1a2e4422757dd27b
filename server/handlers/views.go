package handlers

import (
	"sort"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/stores/activitystore"
	"github.com/nomis52/reactivities/stores/profilestore"
	"github.com/nomis52/reactivities/stores/rootstore"
	"github.com/nomis52/reactivities/stores/userstore"
)

// activityView exposes the viewer flags that the wire type leaves out.
type activityView struct {
	apiclient.Activity
	IsGoing bool `json:"isGoing"`
	IsHost  bool `json:"isHost"`
}

func newActivityView(a apiclient.Activity) activityView {
	return activityView{Activity: a, IsGoing: a.IsGoing, IsHost: a.IsHost}
}

type dateGroupView struct {
	Date       string         `json:"date"`
	Activities []activityView `json:"activities"`
}

func newDateGroupViews(groups []activitystore.DateGroup) []dateGroupView {
	views := make([]dateGroupView, 0, len(groups))
	for _, g := range groups {
		v := dateGroupView{Date: g.Date, Activities: make([]activityView, 0, len(g.Activities))}
		for _, a := range g.Activities {
			v.Activities = append(v.Activities, newActivityView(a))
		}
		views = append(views, v)
	}
	return views
}

type activityStateView struct {
	Activities     []activityView `json:"activities"`
	Selected       *activityView  `json:"selected"`
	EditMode       bool           `json:"editMode"`
	LoadingInitial action.Flag    `json:"loadingInitial"`
	Submitting     action.Flag    `json:"submitting"`
	Loading        action.Flag    `json:"loading"`
	Target         string         `json:"target"`
}

// newActivityStateView lists the registry sorted by ID so output is stable.
func newActivityStateView(st activitystore.State) activityStateView {
	ids := make([]string, 0, len(st.Registry))
	for id := range st.Registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	v := activityStateView{
		Activities:     make([]activityView, 0, len(ids)),
		EditMode:       st.EditMode,
		LoadingInitial: st.LoadingInitial,
		Submitting:     st.Submitting,
		Loading:        st.Loading,
		Target:         st.Target,
	}
	for _, id := range ids {
		v.Activities = append(v.Activities, newActivityView(st.Registry[id]))
	}
	if st.Selected != nil {
		selected := newActivityView(*st.Selected)
		v.Selected = &selected
	}
	return v
}

// userView hides the bearer token.
type userView struct {
	User    *apiclient.User `json:"user"`
	Loading action.Flag     `json:"loading"`
}

func newUserView(st userstore.State) userView {
	if st.User != nil {
		u := *st.User
		u.Token = ""
		st.User = &u
	}
	return userView{User: st.User, Loading: st.Loading}
}

// StateResponse is the JSON response for /api/state.
type StateResponse struct {
	User       userView           `json:"user"`
	Activities activityStateView  `json:"activities"`
	Profile    profilestore.State `json:"profile"`
}

func newStateResponse(root *rootstore.Root) StateResponse {
	return StateResponse{
		User:       newUserView(root.Users.Snapshot()),
		Activities: newActivityStateView(root.Activities.Snapshot()),
		Profile:    root.Profiles.Snapshot(),
	}
}
