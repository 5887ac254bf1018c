// ABOUTME: Show-note sanitizer producing safe HTML from HTML or Markdown input
// ABOUTME: Renders Markdown, applies an allow-list, then linkifies bare URLs outside anchors

package content

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	anchorRel    = "nofollow noopener noreferrer"
	anchorTarget = "_blank"
)

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		gmhtml.WithUnsafe(),
		gmhtml.WithHardWraps(),
	),
)

var policy = newPolicy()

var bareURL = regexp.MustCompile(`(?i)\b(?:(?:https?|ftp)://|www\.)[^\s<>"]+`)

const trailingPunct = ",.;:!?)]}"

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "hr", "div", "span",
		"strong", "b", "em", "i", "u", "s", "sup", "sub",
		"ul", "ol", "li", "blockquote", "code", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto", "ftp")
	p.RequireParseableURLs(true)
	p.SkipElementsContent("script", "style", "iframe", "object", "embed", "noscript", "template")
	return p
}

// Markdownify renders show notes to sanitized HTML. Input that is not already HTML is
// treated as Markdown. Bare URLs become links and every link opens in a new tab
// without leaking the referrer.
func Markdownify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if !IsHTML(s) {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(s), &buf); err == nil {
			s = buf.String()
		}
	}

	cleaned := strings.TrimSpace(policy.Sanitize(s))
	if cleaned == "" {
		return ""
	}
	return strings.TrimSpace(linkify(cleaned))
}

// linkify walks the fragment tree, wrapping bare URLs found in text outside anchors
// and stamping rel/target on every anchor.
func linkify(fragment string) string {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return fragment
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	walk(root, false)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return fragment
		}
	}
	return buf.String()
}

func walk(n *html.Node, inAnchor bool) {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}

	for _, c := range children {
		switch {
		case c.Type == html.ElementNode && c.DataAtom == atom.A:
			setAttr(c, "rel", anchorRel)
			setAttr(c, "target", anchorTarget)
			walk(c, true)
		case c.Type == html.ElementNode:
			walk(c, inAnchor)
		case c.Type == html.TextNode && !inAnchor:
			wrapURLs(c)
		}
	}
}

// wrapURLs replaces a text node with text and anchor siblings for each bare URL.
func wrapURLs(n *html.Node) {
	text := n.Data
	matches := bareURL.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return
	}

	parent := n.Parent
	last := 0
	for _, m := range matches {
		link := strings.TrimRight(text[m[0]:m[1]], trailingPunct)
		end := m[0] + len(link)
		if !hasHost(link) {
			continue
		}

		if m[0] > last {
			parent.InsertBefore(textNode(text[last:m[0]]), n)
		}
		parent.InsertBefore(anchor(link), n)
		last = end
	}
	if last == 0 {
		return
	}
	if last < len(text) {
		parent.InsertBefore(textNode(text[last:]), n)
	}
	parent.RemoveChild(n)
}

func hasHost(link string) bool {
	lower := strings.ToLower(link)
	for _, prefix := range []string{"http://", "https://", "ftp://", "www."} {
		if strings.HasPrefix(lower, prefix) {
			return len(link) > len(prefix)
		}
	}
	return false
}

func anchor(link string) *html.Node {
	href := link
	if strings.HasPrefix(strings.ToLower(link), "www.") {
		href = "http://" + link
	}
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "rel", Val: anchorRel},
			{Key: "target", Val: anchorTarget},
		},
	}
	a.AppendChild(textNode(link))
	return a
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
