package dom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMobileBreakpoint is the max-width media query hooks treat as mobile.
const DefaultMobileBreakpoint = 768

// Viewport describes the window the document is rendered into.
type Viewport struct {
	Width  float64
	Height float64

	// VisualHeight is the visual viewport height. It drops below Height
	// while an on-screen keyboard is shown. Zero means "same as Height".
	VisualHeight float64
}

// Layout configures the stacking layout used when no explicit rect is set.
type Layout struct {
	// BlockHeight is the height of a leaf element (default 40).
	BlockHeight float64

	// LineHeight is the height of one line of text in a text control (default 20).
	LineHeight float64

	// TextPadding is the vertical padding of a text control (default 8).
	TextPadding float64
}

// Document is an in-memory DOM.
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Element

	selMu     sync.Mutex
	selectors map[string]cascadia.Selector

	active *Element

	window map[string][]*listener

	// Viewport is the window size. Hooks read it for media queries.
	Viewport Viewport

	// Layout configures element geometry.
	Layout Layout
}

// NewDocument creates an empty document (<html><head></head><body></body></html>).
func NewDocument() *Document {
	doc, _ := Parse("")
	return doc
}

// Parse parses a full HTML document.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return newDocument(root), nil
}

// MustParse is like Parse but panics on error. Intended for tests and fixtures.
func MustParse(src string) *Document {
	doc, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return doc
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		elements:  make(map[*html.Node]*Element),
		selectors: make(map[string]cascadia.Selector),
		window:    make(map[string][]*listener),
		Viewport:  Viewport{Width: 1280, Height: 800},
		Layout:    Layout{BlockHeight: 40, LineHeight: 20, TextPadding: 8},
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// wrap returns the unique Element handle for n.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, n: n}
	d.elements[n] = el
	return el
}

// Element returns the handle for an html node owned by this document.
func (d *Document) Element(n *html.Node) *Element {
	return d.wrap(n)
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

// Head returns the <head> element.
func (d *Document) Head() *Element {
	return d.Query("head")
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	return d.Query("body")
}

// GetElementByID returns the element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.wrap(found)
}

// Query returns the first element matching sel, or nil.
func (d *Document) Query(sel string) *Element {
	s := d.compile(sel)
	if s == nil {
		return nil
	}
	return d.wrap(s.MatchFirst(d.root))
}

// QueryAll returns the elements matching sel in document order.
func (d *Document) QueryAll(sel string) []*Element {
	s := d.compile(sel)
	if s == nil {
		return nil
	}
	return d.wrapAll(s.MatchAll(d.root))
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n)
}

// ActiveElement returns the focused element, or nil.
func (d *Document) ActiveElement() *Element {
	if d.active != nil && !d.active.Connected() {
		d.active = nil
	}
	return d.active
}

// MatchMaxWidth evaluates a "(max-width: Npx)" media query.
func (d *Document) MatchMaxWidth(px float64) bool {
	return d.Viewport.Width <= px
}

// VisualViewportHeight returns the visual viewport height.
func (d *Document) VisualViewportHeight() float64 {
	if d.Viewport.VisualHeight > 0 {
		return d.Viewport.VisualHeight
	}
	return d.Viewport.Height
}

// HTML renders the whole document.
func (d *Document) HTML() string {
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}

// compile returns a cached compiled selector, or nil if sel is invalid.
func (d *Document) compile(sel string) cascadia.Selector {
	d.selMu.Lock()
	defer d.selMu.Unlock()
	if s, ok := d.selectors[sel]; ok {
		return s
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		d.selectors[sel] = nil
		return nil
	}
	d.selectors[sel] = s
	return s
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := d.wrap(n); el != nil {
			out = append(out, el)
		}
	}
	return out
}

// walk visits n and its descendants depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
