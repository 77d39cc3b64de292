package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Rect is a bounding box in client coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Top returns the top edge.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// MidY returns the vertical midpoint.
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// ContainsY reports whether y falls inside [Top, Bottom).
func (r Rect) ContainsY(y float64) bool {
	return y >= r.Top() && y < r.Bottom()
}

// SetRect pins the element's bounding box. Unpinned siblings stack after it.
func (e *Element) SetRect(r Rect) {
	e.rect = &r
}

// ClearRect removes a pinned bounding box.
func (e *Element) ClearRect() {
	e.rect = nil
}

// BoundingClientRect returns the element's box.
//
// Pinned boxes are returned as-is. Otherwise the element is placed directly
// below its previous element sibling (or at its parent's top) with the
// parent's width, and its height is resolved by height.
func (e *Element) BoundingClientRect() Rect {
	if e.rect != nil {
		return *e.rect
	}
	parent := e.Parent()
	if parent == nil {
		return Rect{Width: e.doc.Viewport.Width, Height: e.height()}
	}
	pr := parent.BoundingClientRect()
	y := pr.Y
	if prev := e.PreviousElementSibling(); prev != nil {
		y = prev.BoundingClientRect().Bottom()
	}
	return Rect{X: pr.X, Y: y, Width: pr.Width, Height: e.height()}
}

// height resolves an element's height: a pinned box wins, then a
// data-height attribute, then a CSS "height: Npx" inline style, then the
// sum of element children, then the layout's block height. Hidden
// elements (display: none, <head>, <meta>, ...) take no space.
func (e *Element) height() float64 {
	if e.rect != nil {
		return e.rect.Height
	}
	if e.hidden() {
		return 0
	}
	if v, ok := e.Attr("data-height"); ok {
		if h, err := strconv.ParseFloat(v, 64); err == nil {
			return h
		}
	}
	if h, ok := parsePx(e.Style("height")); ok {
		return h
	}
	if e.isTextControl() {
		return e.ScrollHeight()
	}
	var sum float64
	hasChildren := false
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			hasChildren = true
			sum += e.doc.wrap(c).height()
		}
	}
	if hasChildren {
		return sum
	}
	return e.doc.Layout.BlockHeight
}

func (e *Element) hidden() bool {
	switch e.n.Data {
	case "head", "meta", "script", "style", "link", "title", "template", "option":
		return true
	}
	return e.Style("display") == "none"
}

// ScrollHeight returns the content height. For text controls it is the
// number of value lines times the line height plus padding.
func (e *Element) ScrollHeight() float64 {
	if e.isTextControl() {
		lines := strings.Count(e.Value(), "\n") + 1
		return float64(lines)*e.doc.Layout.LineHeight + 2*e.doc.Layout.TextPadding
	}
	var sum float64
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			sum += e.doc.wrap(c).height()
		}
	}
	return sum
}

// ScrollTop returns the vertical scroll offset.
func (e *Element) ScrollTop() float64 {
	return e.scrollTop
}

// SetScrollTop sets the vertical scroll offset, clamped at zero.
func (e *Element) SetScrollTop(v float64) {
	if v < 0 {
		v = 0
	}
	e.scrollTop = v
}

// ElementAtY returns the child of container whose box contains y, or nil.
func (d *Document) ElementAtY(container *Element, y float64) *Element {
	if container == nil {
		return nil
	}
	for _, c := range container.Children() {
		if c.BoundingClientRect().ContainsY(y) {
			return c
		}
	}
	return nil
}

func (e *Element) isTextControl() bool {
	return e.n.Data == "textarea"
}

func parsePx(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
