// ABOUTME: Compiled relative path expressions evaluated against streamed elements
// ABOUTME: Supports child steps, namespace prefixes, attribute steps and [@attr='value'] predicates

package xmlpath

import (
	"fmt"
	"strings"
)

// Path is a compiled relative path such as "itunes:owner/itunes:email" or
// "link[@rel='alternate']/@href". An empty path or "." selects the context element.
type Path struct {
	expr  string
	steps []step
}

type step struct {
	prefix string
	local  string
	attr   bool
	pred   *predicate
}

type predicate struct {
	prefix string
	local  string
	value  string
}

// String returns the source expression.
func (p *Path) String() string {
	return p.expr
}

// Compile parses a path expression.
func Compile(expr string) (*Path, error) {
	raw, err := splitSteps(expr)
	if err != nil {
		return nil, err
	}

	path := &Path{expr: expr}
	for i, s := range raw {
		if s == "." || s == "text()" {
			continue
		}
		st, err := compileStep(s)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, err)
		}
		if st.attr && i != len(raw)-1 {
			return nil, fmt.Errorf("compile %q: attribute step must be last", expr)
		}
		path.steps = append(path.steps, st)
	}
	return path, nil
}

// splitSteps splits on '/' outside of predicate brackets and quotes.
func splitSteps(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var steps []string
	var cur strings.Builder
	depth := 0
	var quote rune
	for _, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("compile %q: unbalanced ]", expr)
			}
		case r == '/' && depth == 0:
			if cur.Len() == 0 {
				return nil, fmt.Errorf("compile %q: empty step", expr)
			}
			steps = append(steps, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if depth != 0 || quote != 0 {
		return nil, fmt.Errorf("compile %q: unterminated predicate", expr)
	}
	if cur.Len() == 0 {
		return nil, fmt.Errorf("compile %q: trailing slash", expr)
	}
	return append(steps, cur.String()), nil
}

func compileStep(s string) (step, error) {
	var st step

	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return st, fmt.Errorf("malformed predicate in %q", s)
		}
		pred, err := compilePredicate(s[open+1 : len(s)-1])
		if err != nil {
			return st, err
		}
		st.pred = pred
		s = s[:open]
	}

	if strings.HasPrefix(s, "@") {
		st.attr = true
		s = s[1:]
		if st.pred != nil {
			return st, fmt.Errorf("predicate on attribute step %q", s)
		}
	}

	st.prefix, st.local = splitName(s)
	if st.local == "" {
		return st, fmt.Errorf("empty name in step %q", s)
	}
	return st, nil
}

func compilePredicate(s string) (*predicate, error) {
	s = strings.TrimSpace(s)
	name, value, ok := strings.Cut(s, "=")
	if !ok || !strings.HasPrefix(name, "@") {
		return nil, fmt.Errorf("unsupported predicate %q", s)
	}
	value = strings.TrimSpace(value)
	if len(value) < 2 || (value[0] != '\'' && value[0] != '"') || value[len(value)-1] != value[0] {
		return nil, fmt.Errorf("predicate value must be quoted: %q", s)
	}
	prefix, local := splitName(strings.TrimSpace(name[1:]))
	return &predicate{prefix: prefix, local: local, value: value[1 : len(value)-1]}, nil
}

func splitName(s string) (prefix, local string) {
	s = strings.TrimSpace(s)
	if p, l, ok := strings.Cut(s, ":"); ok {
		return p, l
	}
	return "", s
}

// eval returns every raw value the path selects from el, in document order.
func (p *Path) eval(el *Element) []string {
	current := []*Element{el}
	for _, st := range p.steps {
		if st.attr {
			var values []string
			for _, e := range current {
				for _, a := range e.Attrs {
					if matchAttr(a.Name, st.prefix, st.local) {
						values = append(values, a.Value)
					}
				}
			}
			return values
		}

		var next []*Element
		for _, e := range current {
			for _, c := range e.Children {
				if matchElement(c.Name, st.prefix, st.local) && st.pred.matches(c) {
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}

	values := make([]string, 0, len(current))
	for _, e := range current {
		values = append(values, e.Text())
	}
	return values
}

func (pr *predicate) matches(e *Element) bool {
	if pr == nil {
		return true
	}
	for _, a := range e.Attrs {
		if matchAttr(a.Name, pr.prefix, pr.local) {
			return strings.EqualFold(strings.TrimSpace(a.Value), pr.value)
		}
	}
	return false
}
