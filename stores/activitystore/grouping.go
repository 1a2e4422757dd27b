package activitystore

import (
	"sort"

	"github.com/nomis52/reactivities/clients/apiclient"
)

// DateGroup is the activities sharing one calendar date.
type DateGroup struct {
	Date       string               `json:"date"`
	Activities []apiclient.Activity `json:"activities"`
}

// groupByDate sorts the activities by date, ascending, and partitions them by
// calendar date. Activities with an unparseable date sort last.
func groupByDate(registry map[string]apiclient.Activity) []DateGroup {
	type dated struct {
		activity apiclient.Activity
		at       int64
		ok       bool
	}

	list := make([]dated, 0, len(registry))
	for _, a := range registry {
		t, ok := a.ParsedDate()
		list = append(list, dated{activity: a, at: t.UnixNano(), ok: ok})
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.ok != b.ok {
			return a.ok
		}
		if a.ok && a.at != b.at {
			return a.at < b.at
		}
		return a.activity.ID < b.activity.ID
	})

	var groups []DateGroup
	index := make(map[string]int)
	for _, d := range list {
		date := d.activity.CalendarDate()
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, DateGroup{Date: date})
		}
		groups[i].Activities = append(groups[i].Activities, d.activity)
	}
	return groups
}

func cloneGroups(groups []DateGroup) []DateGroup {
	result := make([]DateGroup, len(groups))
	for i, g := range groups {
		activities := make([]apiclient.Activity, len(g.Activities))
		for j, a := range g.Activities {
			activities[j] = a.Clone()
		}
		result[i] = DateGroup{Date: g.Date, Activities: activities}
	}
	return result
}
