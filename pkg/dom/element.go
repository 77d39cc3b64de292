package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is the handle for one element node. There is exactly one handle
// per node, so handles compare with ==.
type Element struct {
	doc *Document
	n   *html.Node

	// live control state; nil means "derive from markup"
	value   *string
	checked *bool

	selStart, selEnd int
	scrollTop        float64
	rect             *Rect

	listeners map[string][]*listener
}

// Node returns the underlying html node.
func (e *Element) Node() *html.Node {
	return e.n
}

// Document returns the owning document.
func (e *Element) Document() *Document {
	return e.doc
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string {
	return e.n.Data
}

// ID returns the id attribute.
func (e *Element) ID() string {
	return attr(e.n, "id")
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// GetAttribute returns the attribute value, or "" when absent.
func (e *Element) GetAttribute(key string) string {
	return attr(e.n, key)
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(key string) bool {
	_, ok := e.Attr(key)
	return ok
}

// SetAttribute sets an attribute, adding it if absent.
func (e *Element) SetAttribute(key, val string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttribute removes an attribute if present.
func (e *Element) RemoveAttribute(key string) {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	e.n.Attr = attrs
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	return strings.Fields(attr(e.n, "class"))
}

// HasClass reports whether the element has the class.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds classes that are not present yet.
func (e *Element) AddClass(names ...string) {
	classes := e.Classes()
	changed := false
	for _, name := range names {
		if name == "" || containsString(classes, name) {
			continue
		}
		classes = append(classes, name)
		changed = true
	}
	if changed {
		e.SetAttribute("class", strings.Join(classes, " "))
	}
}

// RemoveClass removes classes.
func (e *Element) RemoveClass(names ...string) {
	if !e.HasAttribute("class") {
		return
	}
	classes := e.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if !containsString(names, c) {
			kept = append(kept, c)
		}
	}
	e.SetAttribute("class", strings.Join(kept, " "))
}

// ToggleClass adds the class when on is true and removes it otherwise.
func (e *Element) ToggleClass(name string, on bool) {
	if on {
		e.AddClass(name)
	} else {
		e.RemoveClass(name)
	}
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.n.Parent)
}

// Children returns the element children in order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// NextElementSibling returns the next element sibling, or nil.
func (e *Element) NextElementSibling() *Element {
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

// PreviousElementSibling returns the previous element sibling, or nil.
func (e *Element) PreviousElementSibling() *Element {
	for s := e.n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.n; n != nil; n = n.Parent {
		if n == e.n {
			return true
		}
	}
	return false
}

// Connected reports whether the element is attached to its document.
func (e *Element) Connected() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	detach(child.n)
	e.n.AppendChild(child.n)
}

// InsertBefore moves child before ref. A nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	if ref == nil {
		e.AppendChild(child)
		return
	}
	if child == ref {
		return
	}
	detach(child.n)
	e.n.InsertBefore(child.n, ref.n)
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	detach(e.n)
}

// Query returns the first descendant matching sel, or nil.
func (e *Element) Query(sel string) *Element {
	s := e.doc.compile(sel)
	if s == nil {
		return nil
	}
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if m := s.MatchFirst(c); m != nil {
			return e.doc.wrap(m)
		}
	}
	return nil
}

// QueryAll returns the descendants matching sel in document order.
func (e *Element) QueryAll(sel string) []*Element {
	s := e.doc.compile(sel)
	if s == nil {
		return nil
	}
	var nodes []*html.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, s.MatchAll(c)...)
	}
	return e.doc.wrapAll(nodes)
}

// Matches reports whether the element matches sel.
func (e *Element) Matches(sel string) bool {
	s := e.doc.compile(sel)
	return s != nil && s.Match(e.n)
}

// Closest returns the nearest inclusive ancestor matching sel, or nil.
func (e *Element) Closest(sel string) *Element {
	s := e.doc.compile(sel)
	if s == nil {
		return nil
	}
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && s.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// Text returns the text content.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(s string) {
	e.clearChildren()
	if s != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML renders the element.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	_ = html.Render(&b, e.n)
	return b.String()
}

// SetInnerHTML replaces the element's children with parsed markup.
func (e *Element) SetInnerHTML(src string) error {
	nodes, err := html.ParseFragment(strings.NewReader(src), e.n)
	if err != nil {
		return err
	}
	e.clearChildren()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// Morph makes e take src's place: e gets src's attributes and children
// and replaces src in the tree. e keeps its identity, listeners and live
// control state, the way a DOM patcher preserves a node it recognizes.
func (e *Element) Morph(src *Element) {
	if e == src {
		return
	}
	e.n.Attr = append([]html.Attribute(nil), src.n.Attr...)
	e.clearChildren()
	for c := src.n.FirstChild; c != nil; {
		next := c.NextSibling
		src.n.RemoveChild(c)
		e.n.AppendChild(c)
		c = next
	}
	if parent := src.n.Parent; parent != nil {
		detach(e.n)
		parent.InsertBefore(e.n, src.n)
		parent.RemoveChild(src.n)
	}
}

// Focus makes the element the active element and dispatches focus.
// Focusing the active element again is a no-op.
func (e *Element) Focus() {
	prev := e.doc.ActiveElement()
	if prev == e {
		return
	}
	if prev != nil {
		prev.Blur()
	}
	e.doc.active = e
	e.Dispatch(&Event{Type: EventFocus})
}

// Blur clears focus and dispatches blur.
func (e *Element) Blur() {
	if e.doc.active != e {
		return
	}
	e.doc.active = nil
	e.Dispatch(&Event{Type: EventBlur})
}

func (e *Element) clearChildren() {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
