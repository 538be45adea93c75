// Package sanitize strips markup from user-authored text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute; it is safe for concurrent use
var strict = bluemonday.StrictPolicy()

// Text returns s with all HTML removed and surrounding whitespace trimmed.
// Reserved characters in the remaining text are entity-escaped.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}

// HasMarkup reports whether s carries tags the strict policy would strip.
// Plain reserved characters such as '&' or an apostrophe are not markup.
func HasMarkup(s string) bool {
	return html.UnescapeString(strict.Sanitize(s)) != s
}

// Email normalizes an address for storage and lookup
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
