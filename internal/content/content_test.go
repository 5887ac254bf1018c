// ABOUTME: Tests for content classification, sanitizing and plain-text derivation
// ABOUTME: Validates HTML detection, link wrapping, dropped script content and Markdown conversion

package content

import (
	"strings"
	"testing"
)

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{
			name:     "plain text",
			content:  "This is just plain text without any HTML.",
			expected: false,
		},
		{
			name:     "paragraph tag",
			content:  "<p>This is a paragraph.</p>",
			expected: true,
		},
		{
			name:     "div tag",
			content:  "<div class=\"content\">Some content</div>",
			expected: true,
		},
		{
			name:     "link tag",
			content:  "Check out <a href=\"https://example.com\">this link</a>.",
			expected: true,
		},
		{
			name:     "DOCTYPE",
			content:  "<!DOCTYPE html><html><body>Test</body></html>",
			expected: true,
		},
		{
			name:     "br tag",
			content:  "Line one<br>Line two",
			expected: true,
		},
		{
			name:     "empty string",
			content:  "",
			expected: false,
		},
		{
			name:     "script only",
			content:  "<script>alert(1)</script>",
			expected: true,
		},
		{
			name:     "uppercase tag",
			content:  "<P>Shouting</P>",
			expected: true,
		},
		{
			name:     "angle brackets but not HTML",
			content:  "5 < 10 and 10 > 5",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsHTML(tt.content)
			if result != tt.expected {
				t.Errorf("IsHTML(%q) = %v, want %v", tt.content, result, tt.expected)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string // strings that should be in the output
		excludes []string // strings that should NOT be in the output
	}{
		{
			name:     "plain text unchanged",
			input:    "Just plain text here.",
			contains: []string{"Just plain text here."},
		},
		{
			name:     "paragraph to text",
			input:    "<p>A paragraph of text.</p>",
			contains: []string{"A paragraph of text."},
			excludes: []string{"<p>", "</p>"},
		},
		{
			name:     "link to markdown",
			input:    "<a href=\"https://example.com\">Example</a>",
			contains: []string{"[Example]", "(https://example.com)"},
			excludes: []string{"<a", "</a>"},
		},
		{
			name:     "bold to markdown",
			input:    "<strong>Bold text</strong>",
			contains: []string{"**Bold text**"},
			excludes: []string{"<strong>"},
		},
		{
			name:     "italic to markdown",
			input:    "<em>Italic text</em>",
			contains: []string{"*Italic text*"},
			excludes: []string{"<em>"},
		},
		{
			name:     "list to markdown",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			contains: []string{"Item 1", "Item 2"},
			excludes: []string{"<ul>", "<li>"},
		},
		{
			name:     "empty string",
			input:    "",
			contains: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMarkdown(tt.input)

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("ToMarkdown() result should contain %q, got %q", s, result)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("ToMarkdown() result should NOT contain %q, got %q", s, result)
				}
			}
		})
	}
}

func TestMarkdownify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
		anchors  int
	}{
		{
			name:    "script removed entirely",
			input:   "<script>alert('x')</script>",
			anchors: 0,
		},
		{
			name:     "style and iframe content dropped",
			input:    "<p>keep</p><style>p{color:red}</style><iframe src=\"https://evil.example.com\">frame text</iframe>",
			contains: []string{"keep"},
			excludes: []string{"color:red", "frame text", "<iframe"},
		},
		{
			name:     "disallowed tag unwrapped",
			input:    "<p><font color=\"red\">warm</font> words</p>",
			contains: []string{"warm words"},
			excludes: []string{"<font"},
		},
		{
			name:     "markdown rendered",
			input:    "**bold** move",
			contains: []string{"<strong>bold</strong>"},
		},
		{
			name:     "bare url wrapped once",
			input:    "Visit https://example.com/show.",
			contains: []string{`href="https://example.com/show"`, "</a>.", `rel="nofollow noopener noreferrer"`, `target="_blank"`},
			anchors:  1,
		},
		{
			name:     "www prefix",
			input:    "<p>See www.example.com/path, then rest</p>",
			contains: []string{`href="http://www.example.com/path"`, ">www.example.com/path</a>, then rest"},
			anchors:  1,
		},
		{
			name:     "existing anchor not rewrapped",
			input:    `<p>Go to <a href="https://example.com">https://example.com</a> now</p>`,
			contains: []string{`rel="nofollow noopener noreferrer"`, `target="_blank"`},
			anchors:  1,
		},
		{
			name:     "javascript href dropped",
			input:    `<p><a href="javascript:alert(1)">click</a></p>`,
			contains: []string{"click"},
			excludes: []string{"javascript"},
		},
		{
			name:     "two urls in one text node",
			input:    "<p>a http://one.example.com b ftp://two.example.com</p>",
			contains: []string{`href="http://one.example.com"`, `href="ftp://two.example.com"`},
			anchors:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Markdownify(tt.input)

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("Markdownify() should contain %q, got %q", s, result)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("Markdownify() should NOT contain %q, got %q", s, result)
				}
			}
			if n := strings.Count(result, "<a "); n != tt.anchors {
				t.Errorf("Markdownify() has %d anchors, want %d: %q", n, tt.anchors, result)
			}
		})
	}

	if got := Markdownify("<script>alert(1)</script>"); got != "" {
		t.Errorf("Markdownify(script) = %q, want empty", got)
	}
	if got := Markdownify("   "); got != "" {
		t.Errorf("Markdownify(blank) = %q, want empty", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"tags and entities", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
		{"blocks become lines", "<p>one</p><p>two</p>", "one\ntwo"},
		{"breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"spaces collapsed", "lots    of\t\tspace", "lots of space"},
		{"blank lines dropped", "first\n\n\n  \nsecond", "first\nsecond"},
		{"script dropped", "<script>var x = 1;</script>text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
