// ABOUTME: Content classification and terminal conversion for show notes
// ABOUTME: Detects HTML and converts it to Markdown for glamour rendering

package content

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern matches common HTML tags, including ones whose content is dropped on cleaning
var htmlTagPattern = regexp.MustCompile(`(?i)<\s*(p|div|span|a|br|img|h[1-6]|ul|ol|li|table|tr|td|th|strong|em|b|i|code|pre|blockquote|script|style|iframe)[^>]*>`)

// IsHTML checks if content appears to be HTML
func IsHTML(content string) bool {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return true
	}
	return htmlTagPattern.MatchString(content)
}

// ToMarkdown converts HTML content to Markdown.
// Content that doesn't look like HTML is returned unchanged.
func ToMarkdown(content string) string {
	if content == "" || !IsHTML(content) {
		return content
	}

	markdown, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(markdown)
}
