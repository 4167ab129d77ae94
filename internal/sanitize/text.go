package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes every tag and attribute.
var strictPolicy = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 4

// Text strips all markup from user-supplied text and returns it unescaped, so
// "A & B" is stored as typed rather than as "A &amp; B". Entity-encoded markup
// is decoded and stripped again until the value is stable.
// Use for: review comments, course codes and names, professor and university names.
func Text(input string) string {
	if input == "" || !strings.ContainsAny(input, "<>&") {
		return input
	}
	current := input
	for range maxPasses {
		next := html.UnescapeString(strictPolicy.Sanitize(current))
		if next == current {
			return next
		}
		current = next
	}
	// Still changing: drop angle brackets rather than store anything tag-shaped.
	return strings.NewReplacer("<", "", ">", "").Replace(current)
}
