package dom

import (
	"strings"
	"testing"
)

const listHTML = `<html><head><meta name="viewport" content="width=device-width"></head><body>
<ul id="list">
  <li id="a" data-id="a">A</li>
  <li id="b" data-id="b" class="row selected">B</li>
  <li id="c" data-id="c" style="color: red">C</li>
</ul>
</body></html>`

func TestParseAndQuery(t *testing.T) {
	doc := MustParse(listHTML)

	list := doc.GetElementByID("list")
	if list == nil {
		t.Fatal("Expected #list")
	}
	if list.Tag() != "ul" {
		t.Errorf("Tag() = %q, want ul", list.Tag())
	}

	items := list.QueryAll("[data-id]")
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[1] != doc.GetElementByID("b") {
		t.Error("Expected handles to be unique per node")
	}

	if got := doc.Query("li.selected"); got != items[1] {
		t.Errorf("Query(li.selected) = %v", got)
	}
	if got := doc.QueryAll(`li:not([style*="color: red"])`); len(got) != 2 {
		t.Errorf("Expected 2 items not styled red, got %d", len(got))
	}
	if doc.Query("li[") != nil {
		t.Error("Expected invalid selector to match nothing")
	}
	if doc.Query(`meta[name=viewport]`) == nil {
		t.Error("Expected viewport meta in head")
	}
}

func TestQueryExcludesSelf(t *testing.T) {
	doc := MustParse(`<div class="box" id="outer"><div class="box" id="inner"></div></div>`)
	outer := doc.GetElementByID("outer")

	got := outer.QueryAll(".box")
	if len(got) != 1 || got[0].ID() != "inner" {
		t.Errorf("QueryAll should only return descendants, got %d", len(got))
	}
	if !outer.Matches(".box") {
		t.Error("Matches(.box) = false, want true")
	}
	if got := doc.GetElementByID("inner").Closest("#outer"); got != outer {
		t.Errorf("Closest(#outer) = %v", got)
	}
	if got := outer.Closest(".box"); got != outer {
		t.Error("Closest should include the element itself")
	}
}

func TestClasses(t *testing.T) {
	doc := MustParse(listHTML)
	b := doc.GetElementByID("b")

	b.AddClass("dragging", "row")
	if got := b.GetAttribute("class"); got != "row selected dragging" {
		t.Errorf("class = %q", got)
	}
	b.RemoveClass("selected")
	if b.HasClass("selected") {
		t.Error("Expected selected to be removed")
	}
	b.ToggleClass("hidden", true)
	b.ToggleClass("dragging", false)
	if got := b.GetAttribute("class"); got != "row hidden" {
		t.Errorf("class = %q", got)
	}

	a := doc.GetElementByID("a")
	a.RemoveClass("missing")
	if a.HasAttribute("class") {
		t.Error("RemoveClass on an element without class must not add the attribute")
	}
}

func TestStyle(t *testing.T) {
	doc := MustParse(listHTML)
	c := doc.GetElementByID("c")

	if c.Style("color") != "red" {
		t.Errorf("Style(color) = %q", c.Style("color"))
	}
	c.SetStyle("cursor", "move")
	c.SetStyle("color", "")
	if got := c.GetAttribute("style"); got != "cursor: move" {
		t.Errorf("style = %q", got)
	}
	c.SetStyle("cursor", "")
	if c.HasAttribute("style") {
		t.Error("Expected empty style attribute to be removed")
	}
}

func TestMoveNodes(t *testing.T) {
	doc := MustParse(listHTML)
	list := doc.GetElementByID("list")
	a, b, c := doc.GetElementByID("a"), doc.GetElementByID("b"), doc.GetElementByID("c")

	list.InsertBefore(a, c)
	if got := ids(list.Children()); got != "b,a,c" {
		t.Errorf("order = %s, want b,a,c", got)
	}
	list.AppendChild(b)
	if got := ids(list.Children()); got != "a,c,b" {
		t.Errorf("order = %s, want a,c,b", got)
	}
	list.InsertBefore(b, b)
	if got := ids(list.Children()); got != "a,c,b" {
		t.Errorf("InsertBefore(self) changed order to %s", got)
	}

	c.Remove()
	if c.Connected() {
		t.Error("Expected removed element to be disconnected")
	}
	if !a.Connected() {
		t.Error("Expected a to be connected")
	}
}

func TestSetInnerHTML(t *testing.T) {
	doc := MustParse(listHTML)
	list := doc.GetElementByID("list")

	if err := list.SetInnerHTML(`<li data-id="x">X</li><li data-id="y">Y</li>`); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}
	if n := len(list.Children()); n != 2 {
		t.Errorf("Expected 2 children, got %d", n)
	}
	if !strings.Contains(list.InnerHTML(), `data-id="y"`) {
		t.Errorf("InnerHTML = %s", list.InnerHTML())
	}
	if doc.GetElementByID("a") != nil {
		t.Error("Expected old children to be gone")
	}
}

func TestStackLayout(t *testing.T) {
	doc := MustParse(listHTML)
	a, b, c := doc.GetElementByID("a"), doc.GetElementByID("b"), doc.GetElementByID("c")

	ra, rb, rc := a.BoundingClientRect(), b.BoundingClientRect(), c.BoundingClientRect()
	if ra.Top() != 0 || ra.Height != 40 {
		t.Errorf("a = %+v", ra)
	}
	if rb.Top() != 40 || rc.Top() != 80 {
		t.Errorf("b.Top = %v, c.Top = %v", rb.Top(), rc.Top())
	}
	if rb.MidY() != 60 {
		t.Errorf("b.MidY = %v, want 60", rb.MidY())
	}

	doc.GetElementByID("list").InsertBefore(c, a)
	if c.BoundingClientRect().Top() != 0 || a.BoundingClientRect().Top() != 40 {
		t.Error("Expected layout to follow DOM order")
	}

	b.SetRect(Rect{Y: 500, Height: 10})
	if got := doc.ElementAtY(doc.GetElementByID("list"), 505); got != b {
		t.Errorf("ElementAtY(505) = %v, want b", got)
	}
	if got := doc.ElementAtY(doc.GetElementByID("list"), 1000); got != nil {
		t.Errorf("ElementAtY(1000) = %v, want nil", got)
	}
}

func TestDispatchBubbles(t *testing.T) {
	doc := MustParse(listHTML)
	list := doc.GetElementByID("list")
	b := doc.GetElementByID("b")

	var order []string
	b.AddEventListener(EventClick, func(ev *Event) {
		order = append(order, "b")
		if ev.Target != b || ev.CurrentTarget != b {
			t.Error("Expected target and current target to be b")
		}
	})
	remove := list.AddEventListener(EventClick, func(ev *Event) {
		order = append(order, "list")
		if ev.CurrentTarget != list {
			t.Error("Expected current target to be list")
		}
		ev.PreventDefault()
	})

	if b.Click() {
		t.Error("Expected default to be prevented")
	}
	if strings.Join(order, ",") != "b,list" {
		t.Errorf("order = %v", order)
	}

	remove()
	order = nil
	if !b.Click() {
		t.Error("Expected default not prevented after removing listener")
	}
	if strings.Join(order, ",") != "b" {
		t.Errorf("order = %v", order)
	}
	if list.ListenerCount(EventClick) != 0 {
		t.Errorf("ListenerCount = %d, want 0", list.ListenerCount(EventClick))
	}
}

func TestStopPropagation(t *testing.T) {
	doc := MustParse(listHTML)
	b := doc.GetElementByID("b")
	called := false
	doc.GetElementByID("list").AddEventListener(EventKeyDown, func(*Event) { called = true })
	b.AddEventListener(EventKeyDown, func(ev *Event) { ev.StopPropagation() })

	b.KeyDown("Enter", true)
	if called {
		t.Error("Expected propagation to stop at b")
	}
}

func TestListenerRemovedDuringDispatch(t *testing.T) {
	doc := MustParse(listHTML)
	b := doc.GetElementByID("b")
	second := false
	var removeSecond func()
	b.AddEventListener(EventClick, func(*Event) { removeSecond() })
	removeSecond = b.AddEventListener(EventClick, func(*Event) { second = true })

	b.Click()
	if second {
		t.Error("Expected a listener removed mid-dispatch not to run")
	}
}

func TestFocusBlur(t *testing.T) {
	doc := MustParse(`<input id="x"><input id="y">`)
	x, y := doc.GetElementByID("x"), doc.GetElementByID("y")
	var events []string
	x.AddEventListener(EventFocus, func(*Event) { events = append(events, "x:focus") })
	x.AddEventListener(EventBlur, func(*Event) { events = append(events, "x:blur") })

	x.Focus()
	x.Focus()
	y.Focus()
	if doc.ActiveElement() != y {
		t.Error("Expected y to be active")
	}
	if strings.Join(events, ",") != "x:focus,x:blur" {
		t.Errorf("events = %v", events)
	}
}

func TestFocusBlurDoNotBubble(t *testing.T) {
	doc := MustParse(`<form id="f"><input id="x"></form>`)
	f, x := doc.GetElementByID("f"), doc.GetElementByID("x")
	var events []string
	f.AddEventListener(EventFocus, func(*Event) { events = append(events, "f:focus") })
	f.AddEventListener(EventBlur, func(*Event) { events = append(events, "f:blur") })
	f.AddEventListener(EventClick, func(*Event) { events = append(events, "f:click") })
	x.AddEventListener(EventBlur, func(*Event) { events = append(events, "x:blur") })

	x.Focus()
	x.Blur()
	x.Click()
	if got := strings.Join(events, ","); got != "x:blur,f:click" {
		t.Errorf("events = %s, want x:blur,f:click", got)
	}
}

func TestWindowListeners(t *testing.T) {
	doc := NewDocument()
	var heights []float64
	remove := doc.AddWindowListener(EventViewportResize, func(*Event) {
		heights = append(heights, doc.VisualViewportHeight())
	})

	doc.ResizeVisualViewport(500)
	remove()
	doc.ResizeVisualViewport(600)

	if len(heights) != 1 || heights[0] != 500 {
		t.Errorf("heights = %v", heights)
	}
	if doc.WindowListenerCount(EventViewportResize) != 0 {
		t.Error("Expected window listener to be removed")
	}
}

func TestMatchMaxWidth(t *testing.T) {
	doc := NewDocument()
	if doc.MatchMaxWidth(DefaultMobileBreakpoint) {
		t.Error("Expected default viewport to be desktop")
	}
	doc.Viewport.Width = 375
	if !doc.MatchMaxWidth(DefaultMobileBreakpoint) {
		t.Error("Expected 375px to match max-width 768px")
	}
}

func ids(els []*Element) string {
	parts := make([]string, len(els))
	for i, el := range els {
		parts[i] = el.ID()
	}
	return strings.Join(parts, ",")
}

func TestMorphKeepsIdentity(t *testing.T) {
	doc := MustParse(`<div id="root"><textarea id="msg" class="old">hi</textarea></div>`)
	root := doc.GetElementByID("root")
	old := doc.GetElementByID("msg")
	old.SetValue("typed")
	clicks := 0
	old.AddEventListener(EventClick, func(*Event) { clicks++ })

	if err := root.SetInnerHTML(`<p>before</p><textarea id="msg" class="new">server</textarea>`); err != nil {
		t.Fatal(err)
	}
	fresh := doc.GetElementByID("msg")
	if fresh == old {
		t.Fatal("Expected SetInnerHTML to create a new node")
	}

	old.Morph(fresh)
	if doc.GetElementByID("msg") != old {
		t.Error("Expected the old handle back in the tree")
	}
	if old.GetAttribute("class") != "new" {
		t.Errorf("class = %q, want new", old.GetAttribute("class"))
	}
	if old.Value() != "typed" {
		t.Errorf("Value() = %q, want live value kept", old.Value())
	}
	if fresh.Connected() {
		t.Error("Expected the replaced node to be detached")
	}
	if old.PreviousElementSibling() == nil || old.PreviousElementSibling().Tag() != "p" {
		t.Error("Expected position of the replaced node")
	}
	old.Click()
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
}
