package activitystore

import (
	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
)

// State is the observable state of the activity store.
type State struct {
	// Registry holds every known activity by ID.
	Registry map[string]apiclient.Activity `json:"registry"`
	// Selected is a copy of the activity being viewed or edited.
	Selected *apiclient.Activity `json:"selected"`
	EditMode bool                `json:"editMode"`

	LoadingInitial action.Flag `json:"loadingInitial"`
	Submitting     action.Flag `json:"submitting"`
	// Loading covers the attendance actions.
	Loading action.Flag `json:"loading"`
	// Target names the element that started the pending delete.
	Target string `json:"target"`
}

func cloneState(s State) State {
	registry := make(map[string]apiclient.Activity, len(s.Registry))
	for id, a := range s.Registry {
		registry[id] = a.Clone()
	}
	s.Registry = registry
	if s.Selected != nil {
		selected := s.Selected.Clone()
		s.Selected = &selected
	}
	return s
}

// put stores a and keeps the selection in step with it.
func (s *State) put(a apiclient.Activity) {
	s.Registry[a.ID] = a
	if s.Selected != nil && s.Selected.ID == a.ID {
		s.selectActivity(a)
	}
}

func (s *State) selectActivity(a apiclient.Activity) {
	selected := a.Clone()
	s.Selected = &selected
}

// selectID selects the registry entry with the given ID, or clears the selection.
func (s *State) selectID(id string) {
	if a, ok := s.Registry[id]; ok {
		s.selectActivity(a)
		return
	}
	s.Selected = nil
}

// decorate normalises an activity received from the API or built locally, and
// derives the viewer specific flags.
func decorate(a apiclient.Activity, user *apiclient.User) apiclient.Activity {
	a = a.Clone()
	a.NormalizeDate()
	a.IsGoing, a.IsHost = false, false
	if user == nil {
		return a
	}
	for _, att := range a.Attendees {
		if att.Username == user.Username {
			a.IsGoing = true
			a.IsHost = att.IsHost
		}
	}
	return a
}
