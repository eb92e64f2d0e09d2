// Package htmlscan extracts selector-scoped fragments from HTML in a single streaming pass.
//
// The scanner tokenizes the input with golang.org/x/net/html and keeps only an
// element skeleton: no text nodes, and the children of an element are dropped once
// it closes. That is enough for cascadia to evaluate descendant, child, sibling,
// attribute and :nth-child selectors against each element as its start tag is read,
// while memory stays bounded by the depth and fan-out of the document rather than its size.
//
// Start tags close elements whose end tag HTML leaves implied (p, li, dt, dd, td,
// th, tr, the table sections and option), so unclosed siblings stay siblings.
//
// Selectors that look forward in the document (:last-child, :nth-last-child,
// :only-child, :empty, :has) are evaluated against what has been read so far.
package htmlscan

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a matched element. It is only valid during the callback that received it.
type Element struct {
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns the (entity-decoded) value of the attribute key.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Handler reacts to elements matching Selector.
//
// Element is called when a matching start tag is read. Text is called when a
// matching element closes (or the document ends) with the element's decoded text
// content; void and self-closing elements report "". Either callback returns true
// once the handler needs nothing more, and the handler is then skipped for the
// rest of the scan.
type Handler struct {
	Selector string
	Element  func(el *Element) (done bool)
	Text     func(el *Element, text string) (done bool)
}

// Scanner compiles and caches selectors. It holds no per-scan state, so a single
// Scanner can be shared by concurrent scans for the lifetime of the process.
type Scanner struct {
	selectors sync.Map // string -> cascadia.Matcher
}

// New creates a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Compile returns the compiled form of sel, caching it for later scans.
func (s *Scanner) Compile(sel string) (cascadia.Matcher, error) {
	if cached, ok := s.selectors.Load(sel); ok {
		return cached.(cascadia.Matcher), nil
	}
	compiled, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", sel, err)
	}
	actual, _ := s.selectors.LoadOrStore(sel, compiled)
	return actual.(cascadia.Matcher), nil
}

type activeHandler struct {
	Handler
	sel  cascadia.Matcher
	done bool
}

type textCollector struct {
	handler *activeHandler
	node    *html.Node
	buf     strings.Builder
}

// Scan reads r once and dispatches matching elements to handlers.
// It returns early once every handler is done. The reader is not closed.
func (s *Scanner) Scan(r io.Reader, handlers ...Handler) error {
	active := make([]*activeHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.Element == nil && h.Text == nil {
			continue
		}
		sel, err := s.Compile(h.Selector)
		if err != nil {
			return err
		}
		active = append(active, &activeHandler{Handler: h, sel: sel})
	}
	if len(active) == 0 {
		return nil
	}

	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	var collectors []*textCollector

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				for _, c := range collectors {
					c.finish()
				}
				return nil
			}
			return fmt.Errorf("scan html: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if i := impliedEnd(stack, tok.DataAtom); i > 0 {
				collectors = closeFrom(stack, i, collectors)
				stack = stack[:i]
			}
			node := &html.Node{
				Type:     html.ElementNode,
				Data:     tok.Data,
				DataAtom: tok.DataAtom,
				Attr:     tok.Attr,
			}
			stack[len(stack)-1].AppendChild(node)
			leaf := tok.Type == html.SelfClosingTagToken || isVoid(tok.DataAtom)

			for _, h := range active {
				if h.done || !h.sel.Match(node) {
					continue
				}
				el := &Element{node: node}
				if h.Element != nil && h.Element(el) {
					h.done = true
					continue
				}
				if h.Text == nil {
					continue
				}
				if leaf {
					h.done = h.Text(el, "")
					continue
				}
				collectors = append(collectors, &textCollector{handler: h, node: node})
			}

			if !leaf {
				stack = append(stack, node)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			i := openIndex(stack, string(name))
			if i < 0 {
				continue
			}
			collectors = closeFrom(stack, i, collectors)
			stack = stack[:i]

		case html.TextToken:
			if len(collectors) == 0 {
				continue
			}
			text := z.Text()
			for _, c := range collectors {
				if !c.handler.done {
					c.buf.Write(text)
				}
			}
		}

		if allDone(active) {
			return nil
		}
	}
}

func (c *textCollector) finish() {
	if c.handler.done {
		return
	}
	c.handler.done = c.handler.Text(&Element{node: c.node}, c.buf.String())
}

// closeFrom closes stack[i:] innermost first and returns the collectors still open.
func closeFrom(stack []*html.Node, i int, collectors []*textCollector) []*textCollector {
	for j := len(stack) - 1; j >= i; j-- {
		closed := stack[j]
		collectors = finishCollectors(collectors, closed)
		pruneChildren(closed)
	}
	return collectors
}

// finishCollectors completes the collectors bound to closed and returns the rest.
func finishCollectors(collectors []*textCollector, closed *html.Node) []*textCollector {
	kept := collectors[:0]
	for _, c := range collectors {
		if c.node == closed {
			c.finish()
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// openIndex finds the innermost open element named tag. The document root is never returned.
func openIndex(stack []*html.Node, tag string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].Data == tag {
			return i
		}
	}
	return -1
}

// pruneChildren drops the subtree of a closed element; later elements can only
// be its siblings or ancestors' siblings, which never need its descendants.
func pruneChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func allDone(active []*activeHandler) bool {
	for _, h := range active {
		if !h.done {
			return false
		}
	}
	return true
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// implied is an end-tag rule: a start tag closes the innermost open element listed
// in closes, unless an element listed in scope is open above it.
type implied struct {
	closes []atom.Atom
	scope  []atom.Atom
}

var (
	buttonScope = []atom.Atom{
		atom.Html, atom.Table, atom.Td, atom.Th, atom.Caption, atom.Marquee,
		atom.Object, atom.Applet, atom.Template, atom.Button,
	}
	listScope = append(slices.Clone(buttonScope), atom.Ul, atom.Ol, atom.Menu)
	defScope  = append(slices.Clone(buttonScope), atom.Dl)

	closesP = implied{closes: []atom.Atom{atom.P}, scope: buttonScope}

	impliedEnds = map[atom.Atom]implied{
		atom.Li:       {closes: []atom.Atom{atom.Li, atom.P}, scope: listScope},
		atom.Dt:       {closes: []atom.Atom{atom.Dt, atom.Dd, atom.P}, scope: defScope},
		atom.Dd:       {closes: []atom.Atom{atom.Dt, atom.Dd, atom.P}, scope: defScope},
		atom.Td:       {closes: []atom.Atom{atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table, atom.Tr}},
		atom.Th:       {closes: []atom.Atom{atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table, atom.Tr}},
		atom.Tr:       {closes: []atom.Atom{atom.Tr, atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table, atom.Tbody, atom.Thead, atom.Tfoot}},
		atom.Tbody:    {closes: []atom.Atom{atom.Tbody, atom.Thead, atom.Tfoot, atom.Tr, atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table}},
		atom.Thead:    {closes: []atom.Atom{atom.Tbody, atom.Thead, atom.Tfoot, atom.Tr, atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table}},
		atom.Tfoot:    {closes: []atom.Atom{atom.Tbody, atom.Thead, atom.Tfoot, atom.Tr, atom.Td, atom.Th}, scope: []atom.Atom{atom.Html, atom.Table}},
		atom.Option:   {closes: []atom.Atom{atom.Option}, scope: []atom.Atom{atom.Html, atom.Select, atom.Datalist, atom.Optgroup}},
		atom.Optgroup: {closes: []atom.Atom{atom.Option, atom.Optgroup}, scope: []atom.Atom{atom.Html, atom.Select}},
	}
)

func init() {
	for _, a := range []atom.Atom{
		atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Center, atom.Details,
		atom.Dialog, atom.Dir, atom.Div, atom.Dl, atom.Fieldset, atom.Figcaption, atom.Figure,
		atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hgroup, atom.Hr, atom.Main, atom.Menu, atom.Nav, atom.Ol, atom.P,
		atom.Pre, atom.Section, atom.Summary, atom.Table, atom.Ul,
	} {
		impliedEnds[a] = closesP
	}
}

// impliedEnd returns the stack index from which a start tag of type a closes open
// elements, or -1 when it closes none.
func impliedEnd(stack []*html.Node, a atom.Atom) int {
	rule, ok := impliedEnds[a]
	if !ok {
		return -1
	}
	at := -1
	for i := len(stack) - 1; i > 0; i-- {
		open := stack[i].DataAtom
		if slices.Contains(rule.closes, open) {
			at = i
			continue
		}
		if slices.Contains(rule.scope, open) {
			break
		}
	}
	return at
}
