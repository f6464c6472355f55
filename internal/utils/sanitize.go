package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

const maxSanitizeRounds = 8

// SanitizeText strips any markup from user supplied text and trims it.
// Entity-encoded markup is decoded and stripped again until the text is stable.
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizeRounds; i++ {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// still changing: keep the escaped form, which carries no live markup
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
