package normalize

import (
	"regexp"
	"strings"
)

var (
	multiSpace  = regexp.MustCompile(`\s+`)
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	nonLetters  = regexp.MustCompile(`[^a-z\s]`)
)

const maxFileNameLen = 90

// Key normalizes a value for sorting and grouping: non-breaking spaces
// become plain spaces, runs of whitespace collapse, and the result is
// trimmed and upper-cased.
func Key(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// MatchKey normalizes a name for matching documents against directory
// rows: lowercase, letters and spaces only, collapsed whitespace.
func MatchKey(s string) string {
	s = strings.ToLower(s)
	s = nonLetters.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SafeFileName reduces an entity name to a Document Store safe subset
// (word characters, spaces, dashes) capped at 90 characters.
func SafeFileName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	return s
}

// HeaderKey normalizes a column header for lookup: lowercase, trimmed,
// non-breaking spaces replaced.
func HeaderKey(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(strings.ToLower(s))
}
