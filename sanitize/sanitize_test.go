package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Bio(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text unchanged", in: "Loves hiking", want: "Loves hiking"},
		{name: "tags stripped", in: "<b>Loves</b> hiking", want: "Loves hiking"},
		{name: "script removed", in: "hi<script>alert(1)</script>", want: "hi"},
		{name: "whitespace trimmed", in: "  bio  ", want: "bio"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Bio(tt.in))
		})
	}
}

func TestSanitizer_Description(t *testing.T) {
	s := New()

	tests := []struct {
		name         string
		in           string
		wantContains []string
		wantMissing  []string
	}{
		{
			name:         "formatting kept",
			in:           "Bring <strong>water</strong>",
			wantContains: []string{"<strong>water</strong>"},
		},
		{
			name:        "script removed",
			in:          "Meet up<script>alert(1)</script>",
			wantMissing: []string{"script", "alert"},
		},
		{
			name:         "links get nofollow",
			in:           `<a href="https://example.com">map</a>`,
			wantContains: []string{`href="https://example.com"`, `rel="nofollow"`},
		},
		{
			name:        "javascript urls dropped",
			in:          `<a href="javascript:alert(1)">x</a>`,
			wantMissing: []string{"javascript"},
		},
		{
			name:        "event handlers dropped",
			in:          `<b onclick="steal()">bold</b>`,
			wantMissing: []string{"onclick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Description(tt.in)
			for _, want := range tt.wantContains {
				assert.Contains(t, got, want)
			}
			for _, missing := range tt.wantMissing {
				assert.NotContains(t, got, missing)
			}
		})
	}
}
