package fakeapi

import (
	"github.com/nomis52/reactivities/clients/apiclient"
)

// Seed fills s with a small data set: three users who follow each other in part,
// and a handful of activities spread over a few days. The dates carry fractional
// seconds the way the real API sends them.
func Seed(s *Server) {
	users := []apiclient.Profile{
		{Username: "bob", DisplayName: "Bob", Bio: "Likes hiking", Photos: []apiclient.Photo{
			{ID: "bob-1", URL: "/images/bob-1/bob.jpg", IsMain: true},
		}, Image: "/images/bob-1/bob.jpg"},
		{Username: "jane", DisplayName: "Jane"},
		{Username: "tom", DisplayName: "Tom", Bio: "Film buff"},
	}
	for _, u := range users {
		s.AddUser(u)
	}

	s.AddFollow("jane", "bob")
	s.AddFollow("tom", "bob")
	s.AddFollow("bob", "tom")

	host := func(username, displayName string) []apiclient.Attendee {
		return []apiclient.Attendee{{Username: username, DisplayName: displayName, IsHost: true}}
	}

	activities := []apiclient.Activity{
		{
			ID: "past-1", Title: "Past Activity 1", Category: "drinks",
			Description: "Activity 2 months ago", Date: "2024-03-01T20:00:00.0000000",
			City: "London", Venue: "Pub", Attendees: host("bob", "Bob"),
		},
		{
			ID: "future-1", Title: "Future Activity 1", Category: "culture",
			Description: "Activity 1 month in future", Date: "2024-06-01T19:30:00.1234567",
			City: "Paris", Venue: "The Louvre", Attendees: host("jane", "Jane"),
		},
		{
			ID: "future-2", Title: "Future Activity 2", Category: "music",
			Description: "Late concert", Date: "2024-06-01T22:00:00",
			City: "London", Venue: "O2 Arena", Attendees: host("tom", "Tom"),
		},
		{
			ID: "future-3", Title: "Future Activity 3", Category: "film",
			Description: "Cinema night", Date: "2024-07-12T18:00:00.5",
			City: "London", Venue: "Cinema", Attendees: []apiclient.Attendee{
				{Username: "tom", DisplayName: "Tom", IsHost: true},
				{Username: "bob", DisplayName: "Bob"},
			},
		},
	}
	for _, a := range activities {
		s.AddActivity(a)
	}
}
