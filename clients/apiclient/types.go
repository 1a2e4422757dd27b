package apiclient

import (
	"strings"
	"time"
)

// dateLayouts are the timestamp formats the API is known to send for activity dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Attendee is a user attending an activity.
type Attendee struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Image       string `json:"image,omitempty"`
	IsHost      bool   `json:"isHost"`
}

// Activity is an event record with schedule, venue and attendee metadata.
type Activity struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	City        string     `json:"city"`
	Venue       string     `json:"venue"`
	Attendees   []Attendee `json:"attendees,omitempty"`

	// IsGoing and IsHost are derived locally from the current user.
	IsGoing bool `json:"-"`
	IsHost  bool `json:"-"`
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	if a.Attendees != nil {
		attendees := make([]Attendee, len(a.Attendees))
		copy(attendees, a.Attendees)
		a.Attendees = attendees
	}
	return a
}

// NormalizeDate strips any fractional seconds suffix from the date string.
func (a *Activity) NormalizeDate() {
	if i := strings.Index(a.Date, "."); i >= 0 {
		a.Date = a.Date[:i]
	}
}

// ParsedDate parses the activity date. The boolean is false if the date is not
// in any known layout.
func (a Activity) ParsedDate() (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, a.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CalendarDate returns the date part of the date string, e.g. "2024-05-01".
func (a Activity) CalendarDate() string {
	if i := strings.Index(a.Date, "T"); i >= 0 {
		return a.Date[:i]
	}
	return a.Date
}

// Photo is an image in a profile's gallery.
type Photo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

// Profile is a user's public account record.
type Profile struct {
	Username       string  `json:"username"`
	DisplayName    string  `json:"displayName"`
	Bio            string  `json:"bio,omitempty"`
	Image          string  `json:"image,omitempty"`
	Following      bool    `json:"following"`
	FollowersCount int     `json:"followersCount"`
	FollowingCount int     `json:"followingCount"`
	Photos         []Photo `json:"photos,omitempty"`
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	if p.Photos != nil {
		photos := make([]Photo, len(p.Photos))
		copy(photos, p.Photos)
		p.Photos = photos
	}
	return p
}

// MainPhoto returns the photo flagged as main, if any.
func (p Profile) MainPhoto() (Photo, bool) {
	for _, photo := range p.Photos {
		if photo.IsMain {
			return photo, true
		}
	}
	return Photo{}, false
}

// ProfileDetails are the user editable fields of a profile.
type ProfileDetails struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
}

// User is the signed-in viewer.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Image       string `json:"image,omitempty"`
	Token       string `json:"token,omitempty"`
}

// FollowPredicate selects which side of a follow relationship to list.
type FollowPredicate string

const (
	// Followers lists the profiles following a user.
	Followers FollowPredicate = "followers"
	// Following lists the profiles a user follows.
	Following FollowPredicate = "following"
)

// Valid reports whether p is a known predicate.
func (p FollowPredicate) Valid() bool {
	return p == Followers || p == Following
}
