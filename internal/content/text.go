// ABOUTME: Plain-text derivation of show notes for search and keyword extraction
// ABOUTME: Strips all markup, unescapes entities and collapses whitespace

package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

var blockBreak = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6]|/tr|/blockquote|/pre)\b[^>]*>`)

// CleanText strips markup and returns whitespace-normalized text.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = blockBreak.ReplaceAllString(s, "$0\n")
	s = strict.Sanitize(s)
	return CollapseWhitespace(html.UnescapeString(s))
}

// CollapseWhitespace collapses runs of spaces within lines and drops blank lines.
func CollapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
