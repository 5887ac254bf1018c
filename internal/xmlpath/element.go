// ABOUTME: Element subtree materialized for one streamed XML match
// ABOUTME: Holds attributes, direct text, tail text and attached children in document order

package xmlpath

import (
	"encoding/xml"
	"strings"
)

// Element is a materialized subtree produced by Parser.Iterate.
//
// Children that themselves matched the iteration tags are yielded separately and are
// not attached to their enclosing element, so a channel never holds its items.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Element

	// Ancestors lists the local names of enclosing elements, outermost first.
	Ancestors []string

	text  strings.Builder
	tail  strings.Builder
	match bool
}

// Local returns the element's local name.
func (e *Element) Local() string {
	return e.Name.Local
}

// Attr returns the value of the first unqualified attribute with the given local name.
func (e *Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// HasAncestor reports whether an enclosing element has the given local name.
func (e *Element) HasAncestor(local string) bool {
	for _, name := range e.Ancestors {
		if name == local {
			return true
		}
	}
	return false
}

// Text returns the concatenated character data of the element and its attached descendants.
func (e *Element) Text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	b.WriteString(e.text.String())
	for _, c := range e.Children {
		c.writeText(b)
		b.WriteString(c.tail.String())
	}
}

func (e *Element) appendText(s string) {
	if n := len(e.Children); n > 0 {
		e.Children[n-1].tail.WriteString(s)
		return
	}
	e.text.WriteString(s)
}
