// Package sanitize cleans user supplied text before it is sent to the API.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer holds the policies for the free text fields of activities and profiles.
type Sanitizer struct {
	bioPolicy         *bluemonday.Policy
	descriptionPolicy *bluemonday.Policy
}

// New creates a Sanitizer.
func New() *Sanitizer {
	return &Sanitizer{
		bioPolicy:         bluemonday.StrictPolicy(),
		descriptionPolicy: descriptionPolicy(),
	}
}

// Bio strips all markup from a profile bio.
func (s *Sanitizer) Bio(bio string) string {
	return strings.TrimSpace(s.bioPolicy.Sanitize(bio))
}

// Description keeps basic inline formatting and links in an activity description.
func (s *Sanitizer) Description(description string) string {
	return strings.TrimSpace(s.descriptionPolicy.Sanitize(description))
}

func descriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowStandardURLs()

	policy.AllowElements("i", "b", "em", "strong", "br")

	policy.AllowAttrs("href").OnElements("a")
	policy.RequireNoFollowOnLinks(true)

	return policy
}
