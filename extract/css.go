package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CSS selects elements from an HTML fragment with a simple selector and maps
// each hit through the arg operation:
//
//	@name      attribute value
//	$text      concatenated text content
//	$innerHTML rendered children
//	$outerHTML rendered element
//	$self      rendered element (default)
//
// Supported selectors: tag, #id, .class, [attr], [attr=value], combinations
// of those on one element, and descendant chains separated by spaces.
type CSS struct{}

func (CSS) Name() string  { return "css" }
func (CSS) PerItem() bool { return true }

func (CSS) Extract(input any, param string, arg any) (any, error) {
	return selectNodes(input, param, argString(arg), false)
}

// XML is the css capability applied to XML-shaped documents. The selector
// grammar is shared; the arg operations are $text, @attr, $innerXML,
// $outerXML and $self.
type XML struct{}

func (XML) Name() string  { return "xml" }
func (XML) PerItem() bool { return true }

func (XML) Extract(input any, param string, arg any) (any, error) {
	return selectNodes(input, param, argString(arg), true)
}

func selectNodes(input any, param, op string, xmlMode bool) (any, error) {
	text, err := inputString(input)
	if err != nil {
		return nil, err
	}
	sel, err := parseSelector(param)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	var result []any
	for _, node := range sel.selectAll(doc) {
		v, err := applyNodeOp(node, op, xmlMode)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if result == nil {
		result = []any{}
	}
	return result, nil
}

func applyNodeOp(node *html.Node, op string, xmlMode bool) (any, error) {
	inner, outer := "$innerHTML", "$outerHTML"
	if xmlMode {
		inner, outer = "$innerXML", "$outerXML"
	}
	switch {
	case strings.HasPrefix(op, "@"):
		return attrValue(node, op[1:]), nil
	case op == "$text":
		return nodeText(node), nil
	case op == inner:
		var buf bytes.Buffer
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return nil, err
			}
		}
		return buf.String(), nil
	case op == outer, op == "$self", op == "":
		var buf bytes.Buffer
		if err := html.Render(&buf, node); err != nil {
			return nil, err
		}
		return buf.String(), nil
	default:
		return nil, fmt.Errorf("unsupported selector operation %q", op)
	}
}

func attrValue(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return sb.String()
}

// selector is one parsed descendant chain of simple element matchers.
type selector struct {
	parts []elemMatcher
}

type elemMatcher struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasAttr bool
}

func parseSelector(s string) (*selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	sel := &selector{}
	for _, f := range fields {
		m, err := parseElemMatcher(f)
		if err != nil {
			return nil, err
		}
		sel.parts = append(sel.parts, m)
	}
	return sel, nil
}

func parseElemMatcher(s string) (elemMatcher, error) {
	var m elemMatcher
	rest := s
	if i := strings.IndexByte(rest, '['); i >= 0 {
		attr := rest[i:]
		rest = rest[:i]
		if !strings.HasSuffix(attr, "]") {
			return m, fmt.Errorf("unterminated attribute selector in %q", s)
		}
		attr = attr[1 : len(attr)-1]
		if k, v, ok := strings.Cut(attr, "="); ok {
			m.attrKey, m.attrVal = k, strings.Trim(v, `"'`)
		} else {
			m.attrKey = attr
		}
		m.hasAttr = true
	}
	for rest != "" {
		next := strings.IndexAny(rest[1:], "#.")
		var token string
		if next < 0 {
			token, rest = rest, ""
		} else {
			token, rest = rest[:next+1], rest[next+1:]
		}
		switch token[0] {
		case '#':
			m.id = token[1:]
		case '.':
			m.classes = append(m.classes, token[1:])
		default:
			m.tag = token
		}
	}
	if m.tag == "" && m.id == "" && len(m.classes) == 0 && !m.hasAttr {
		return m, fmt.Errorf("invalid selector element %q", s)
	}
	return m, nil
}

func (m *elemMatcher) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if m.tag != "" && n.Data != m.tag {
		return false
	}
	if m.id != "" && attrValue(n, "id") != m.id {
		return false
	}
	for _, class := range m.classes {
		if !hasClass(n, class) {
			return false
		}
	}
	if m.hasAttr {
		found := false
		for _, a := range n.Attr {
			if a.Key == m.attrKey && (m.attrVal == "" || a.Val == m.attrVal) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// selectAll walks the document and collects, in document order, every node
// matched by the full descendant chain.
func (s *selector) selectAll(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		d := depth
		if d < len(s.parts) && s.parts[d].matches(n) {
			if d == len(s.parts)-1 {
				// Stay on the last part: deeper matches under the
				// same ancestor prefix are selected as well.
				out = append(out, n)
			} else {
				d++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, d)
		}
	}
	walk(root, 0)
	return out
}
