// ABOUTME: Streaming element iterator with a per-instance compiled path cache
// ABOUTME: Recovers from malformed markup element by element; only a missing root aborts

package xmlpath

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// ErrInvalidXML is returned when a document has no parseable root element.
var ErrInvalidXML = errors.New("invalid xml")

// Parser streams elements and evaluates path expressions against them.
//
// A Parser caches compiled paths and is not safe for concurrent use; each worker
// constructs its own.
type Parser struct {
	paths   map[string]*Path
	dropped int
}

// NewParser creates a parser with an empty path cache.
func NewParser() *Parser {
	return &Parser{paths: make(map[string]*Path)}
}

// Path returns the compiled form of expr, compiling it on first use.
func (p *Parser) Path(expr string) (*Path, error) {
	if path, ok := p.paths[expr]; ok {
		return path, nil
	}
	path, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	p.paths[expr] = path
	return path, nil
}

// Dropped returns how many matching elements the last Iterate discarded while
// recovering from syntax errors.
func (p *Parser) Dropped() int {
	return p.dropped
}

// CachedPaths returns the number of compiled paths held by the parser.
func (p *Parser) CachedPaths() int {
	return len(p.paths)
}

// First tries each path in order and returns the first non-empty, trimmed value.
// Values that are not valid UTF-8 are skipped.
func (p *Parser) First(el *Element, paths ...string) (string, bool) {
	if el == nil {
		return "", false
	}
	for _, expr := range paths {
		path, err := p.Path(expr)
		if err != nil {
			continue
		}
		for _, v := range path.eval(el) {
			if v = strings.TrimSpace(v); v != "" && utf8.ValidString(v) {
				return v, true
			}
		}
	}
	return "", false
}

// All returns every non-empty value selected by the paths, path by path in document order.
func (p *Parser) All(el *Element, paths ...string) []string {
	if el == nil {
		return nil
	}
	var values []string
	for _, expr := range paths {
		path, err := p.Path(expr)
		if err != nil {
			continue
		}
		for _, v := range path.eval(el) {
			if v = strings.TrimSpace(v); v != "" && utf8.ValidString(v) {
				values = append(values, v)
			}
		}
	}
	return values
}

// ToMap maps each field name to the First value of its ordered fallback paths.
// Fields with no value are omitted.
func (p *Parser) ToMap(el *Element, fields map[string][]string) map[string]string {
	out := make(map[string]string, len(fields))
	for name, paths := range fields {
		if v, ok := p.First(el, paths...); ok {
			out[name] = v
		}
	}
	return out
}

// Iterate streams every element whose local name is one of tags. A matching element
// nested inside another match is yielded on its own and not attached to the outer one,
// so the outer element stays small. Each element is released once the consumer returns.
//
// Syntax errors inside the document drop the element being built and scanning resumes
// at the next matching start tag. A document with no root element yields a single
// ErrInvalidXML.
func (p *Parser) Iterate(data []byte, tags ...string) iter.Seq2[*Element, error] {
	return func(yield func(*Element, error) bool) {
		want := make(map[string]bool, len(tags))
		for _, t := range tags {
			want[t] = true
		}

		s := &scanner{want: want, yield: yield}
		defer func() { p.dropped = s.dropped }()
		offset := 0
		for offset < len(data) {
			d := newDecoder(data[offset:])
			err := s.run(d)
			if s.stopped {
				return
			}
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			if !s.rootSeen {
				yield(nil, fmt.Errorf("%w: %v", ErrInvalidXML, err))
				return
			}
			if !s.salvage() {
				return
			}

			consumed := int(d.InputOffset())
			if consumed < 1 {
				consumed = 1
			}
			next := nextStartTag(data[offset+consumed:], tags)
			if next < 0 {
				return
			}
			offset += consumed + next
		}

		if !s.rootSeen {
			yield(nil, fmt.Errorf("%w: no root element", ErrInvalidXML))
		}
	}
}

func newDecoder(b []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(b))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel
	return d
}

type frame struct {
	local string
	el    *Element
}

type scanner struct {
	want     map[string]bool
	yield    func(*Element, error) bool
	stack    []frame
	rootSeen bool
	stopped  bool
	dropped  int
}

func (s *scanner) run(d *xml.Decoder) error {
	s.stack = s.stack[:0]
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			s.rootSeen = true
			s.start(t)
		case xml.EndElement:
			if len(s.stack) == 0 {
				continue
			}
			top := s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
			if top.el != nil && top.el.match {
				if !s.yield(top.el, nil) {
					s.stopped = true
					return nil
				}
			}
		case xml.CharData:
			if n := len(s.stack); n > 0 && s.stack[n-1].el != nil {
				s.stack[n-1].el.appendText(string(t))
			}
		}
	}
}

func (s *scanner) start(t xml.StartElement) {
	var parent *Element
	if n := len(s.stack); n > 0 {
		parent = s.stack[n-1].el
	}

	matched := s.want[t.Name.Local]
	var el *Element
	if matched || parent != nil {
		ancestors := make([]string, len(s.stack))
		for i, f := range s.stack {
			ancestors[i] = f.local
		}
		el = &Element{
			Name:      t.Name,
			Attrs:     append([]xml.Attr(nil), t.Attr...),
			Ancestors: ancestors,
			match:     matched,
		}
		if parent != nil && !matched {
			parent.Children = append(parent.Children, el)
		}
	}
	s.stack = append(s.stack, frame{local: t.Name.Local, el: el})
}

// salvage yields matches that were open when a syntax error hit. The innermost open
// match is the one that failed and is dropped unless it is the only one.
func (s *scanner) salvage() bool {
	var open []*Element
	for _, f := range s.stack {
		if f.el != nil && f.el.match {
			open = append(open, f.el)
		}
	}
	s.stack = s.stack[:0]
	if len(open) > 1 {
		open = open[:len(open)-1]
		s.dropped++
	}
	for i := len(open) - 1; i >= 0; i-- {
		if !s.yield(open[i], nil) {
			s.stopped = true
			return false
		}
	}
	return true
}

// nextStartTag returns the offset of the earliest "<tag" start among tags, or -1.
func nextStartTag(b []byte, tags []string) int {
	best := -1
	for _, tag := range tags {
		needle := []byte("<" + tag)
		from := 0
		for {
			i := bytes.Index(b[from:], needle)
			if i < 0 {
				break
			}
			pos := from + i
			end := pos + len(needle)
			if end >= len(b) || isNameEnd(b[end]) {
				if best < 0 || pos < best {
					best = pos
				}
				break
			}
			from = end
		}
	}
	return best
}

func isNameEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}
