package contact

import (
	"regexp"
	"strings"
)

// Contact is one address-book entry. The core only reads it.
type Contact struct {
	// ID is the stable identifier from the address book; it keys the counters
	ID string `json:"id" yaml:"id"`

	// DisplayName is what a surface shows
	DisplayName string `json:"display_name" yaml:"display_name"`

	// PhotoRef is an optional locator for the contact's picture (URL or file path)
	PhotoRef string `json:"photo_ref,omitempty" yaml:"photo_ref,omitempty"`
}

// HasPhoto reports whether the contact carries a photo reference.
// Surfaces render a placeholder when it does not.
func (c Contact) HasPhoto() bool {
	return strings.TrimSpace(c.PhotoRef) != ""
}

// Counters is the durable per-contact record owned by the counter store.
type Counters struct {
	ContactID string `json:"contact_id"`
	Proposed  int64  `json:"proposed"`
	Engaged   int64  `json:"engaged"`
}

// Ratio returns engaged/proposed, or 0 when the contact was never proposed.
// Not clamped: engagement recorded across restarts can push it above 1.
func (c Counters) Ratio() float64 {
	return Ratio(c.Proposed, c.Engaged)
}

// Ratio computes the engagement ratio for raw counter values.
func Ratio(proposed, engaged int64) float64 {
	if proposed <= 0 {
		return 0
	}
	return float64(engaged) / float64(proposed)
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
// Used for display-name matching only; contact ids are compared verbatim.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}
