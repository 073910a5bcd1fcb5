package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a display name to a URL-safe slug.
// "Exam Prep" -> "exam-prep", "C++ / Systems" -> "c-systems".
// Returns "" when nothing survives, e.g. for punctuation-only input.
func Slugify(s string) string {
	// Decompose accented characters, then drop anything outside ASCII.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
