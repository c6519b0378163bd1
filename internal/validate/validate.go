// Package validate provides the input validation primitives shared by the
// HTTP layer and services. All functions are pure, deterministic, and never
// panic; they are the first line of defense before any repository call.
package validate

import (
	"regexp"
	"unicode/utf8"
)

// uuidRE matches the canonical 36-character textual UUID form
// (8-4-4-4-12 hex groups), restricted to versions 1-5 and the RFC 4122
// variant (leading nibble 8, 9, a, or b), case-insensitive.
var uuidRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// IsUUID reports whether s is a well-formed RFC 4122 UUID string.
//
// Unlike uuid.Parse, it does not accept URN prefixes, braces, or the
// hyphen-less form; identifiers arriving over the API must use the
// canonical form so malformed input is rejected uniformly before any
// backend lookup.
func IsUUID(s string) bool {
	return len(s) == 36 && uuidRE.MatchString(s)
}

// BoundedString reports whether s is non-empty and at most max runes long.
// A max <= 0 always yields false.
func BoundedString(s string, max int) bool {
	if max <= 0 || s == "" {
		return false
	}
	return utf8.RuneCountInString(s) <= max
}
