package catalog

import (
	"regexp"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]`)

// Normalize lower-cases text and strips every character that is not a
// letter, digit, or space. All keyword and name comparisons go through
// this so punctuation and case never affect matching.
func Normalize(text string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(text), "")
}
