package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/stores/activitystore"
)

// now is replaced in tests so relative times are stable.
var now = time.Now

func printGroups(w io.Writer, groups []activitystore.DateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "no activities")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(w, g.Date)
		for _, a := range g.Activities {
			fmt.Fprintf(w, "  %-12s %-24s %s, %s%s\n", a.ID, a.Title, a.Venue, a.City, flags(a))
		}
	}
}

func printActivity(w io.Writer, a apiclient.Activity) {
	fmt.Fprintf(w, "%s: %s%s\n", a.ID, a.Title, flags(a))
	if t, ok := a.ParsedDate(); ok {
		fmt.Fprintf(w, "  when:  %s (%s)\n", t.Format("Mon 2 Jan 2006 15:04"), humanize.RelTime(t, now(), "ago", "from now"))
	}
	fmt.Fprintf(w, "  where: %s, %s\n", a.Venue, a.City)
	if a.Category != "" {
		fmt.Fprintf(w, "  category: %s\n", a.Category)
	}
	if a.Description != "" {
		fmt.Fprintf(w, "  %s\n", a.Description)
	}
	names := make([]string, 0, len(a.Attendees))
	for _, att := range a.Attendees {
		name := att.DisplayName
		if att.IsHost {
			name += " (host)"
		}
		names = append(names, name)
	}
	fmt.Fprintf(w, "  %s going: %s\n", humanize.Comma(int64(len(a.Attendees))), strings.Join(names, ", "))
}

func flags(a apiclient.Activity) string {
	switch {
	case a.IsHost:
		return " [hosting]"
	case a.IsGoing:
		return " [going]"
	default:
		return ""
	}
}

func printProfile(w io.Writer, p apiclient.Profile, own bool) {
	fmt.Fprintf(w, "%s (%s)", p.DisplayName, p.Username)
	switch {
	case own:
		fmt.Fprint(w, " [you]")
	case p.Following:
		fmt.Fprint(w, " [following]")
	}
	fmt.Fprintln(w)
	if p.Bio != "" {
		fmt.Fprintf(w, "  %s\n", p.Bio)
	}
	fmt.Fprintf(w, "  %s followers, %s following\n",
		humanize.Comma(int64(p.FollowersCount)), humanize.Comma(int64(p.FollowingCount)))
	for _, photo := range p.Photos {
		main := ""
		if photo.IsMain {
			main = " (main)"
		}
		fmt.Fprintf(w, "  photo %s %s%s\n", photo.ID, photo.URL, main)
	}
}

func printProfileLine(w io.Writer, p apiclient.Profile) {
	following := ""
	if p.Following {
		following = " [following]"
	}
	fmt.Fprintf(w, "%-12s %s%s\n", p.Username, p.DisplayName, following)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
