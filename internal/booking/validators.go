package booking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ValidName accepts any name with at least two characters once trimmed.
// The same rule applies to owner and pet names.
func ValidName(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= 2
}

// ValidPhone accepts 7 to 15 digits with an optional leading +, ignoring
// whitespace, hyphens, parentheses and dots.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(stripPhone(s))
}

// stripPhone drops every Unicode space (NBSP from pasted numbers included)
// and the - ( ) . separators.
func stripPhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune("-().", r) {
			return -1
		}
		return r
	}, s)
}

// IsAffirmative reports whether a confirmation reply means yes. Matching is a
// loose substring test, so "yesterday" counts as yes.
func IsAffirmative(input string) bool {
	return containsAny(strings.ToLower(input), "yes", "confirm", "correct")
}

// IsNegative reports whether a confirmation reply means no. Callers check
// IsAffirmative first.
func IsNegative(input string) bool {
	return containsAny(strings.ToLower(input), "no", "cancel", "restart")
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
