// Package page implements layout hooks: the page-level sidebar toggle and
// the form builder's collapsible control palette.
package page

import (
	"strings"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// EventSidebarToggled is pushed by the server to show or hide the sidebar.
const EventSidebarToggled = "sidebar_toggled"

// Element ids and classes toggled by PageHook.
const (
	SidebarID         = "sidebar"
	SidebarBackdropID = "sidebar-backdrop"

	ShowClass   = "show"
	HiddenClass = "hidden"
)

// Page toggles the sidebar on sidebar_toggled. On mobile the sidebar and
// its backdrop slide in with the show class; on desktop the sidebar is
// hidden with the hidden class.
type Page struct {
	MobileBreakpoint float64
}

// Mounted subscribes to sidebar_toggled.
func (h *Page) Mounted(ctx *hooks.Context) {
	breakpoint := h.MobileBreakpoint
	if breakpoint <= 0 {
		breakpoint = dom.DefaultMobileBreakpoint
	}
	ctx.HandleEvent(EventSidebarToggled, func(p hooks.Payload) {
		show, ok := p.Bool("show")
		if !ok {
			ctx.Malformed(EventSidebarToggled, "show must be a bool")
			return
		}
		sidebar := ctx.Doc.GetElementByID(SidebarID)
		if sidebar == nil {
			return
		}
		if ctx.Doc.MatchMaxWidth(breakpoint) {
			sidebar.ToggleClass(ShowClass, show)
			if backdrop := ctx.Doc.GetElementByID(SidebarBackdropID); backdrop != nil {
				backdrop.ToggleClass(ShowClass, show)
			}
			return
		}
		sidebar.ToggleClass(HiddenClass, !show)
	})
}

// Selectors, classes and guard attributes used by Sidebar.
const (
	GroupTitleSelector  = ".sidebar-group-title"
	ControlItemSelector = `.control-item:not([style*="cursor: not-allowed"])`

	AttrToggleSetup  = "data-toggle-setup"
	AttrControlSetup = "data-control-setup"

	ExpandedClass  = "expanded"
	CollapsedClass = "collapsed"
	SelectedClass  = "selected"
)

// Sidebar wires the builder palette: group titles collapse their
// "{group}-list" and control items select exclusively. Elements are
// bound once, marked by the setup attributes, so patches only bind what
// the server added.
type Sidebar struct{}

// Mounted binds the palette.
func (h *Sidebar) Mounted(ctx *hooks.Context) { h.setup(ctx) }

// Updated binds elements added by a patch.
func (h *Sidebar) Updated(ctx *hooks.Context) { h.setup(ctx) }

func (h *Sidebar) setup(ctx *hooks.Context) {
	for _, title := range ctx.El.QueryAll(GroupTitleSelector) {
		if title.HasAttribute(AttrToggleSetup) {
			continue
		}
		title.SetAttribute(AttrToggleSetup, "true")
		ctx.Listen(title, dom.EventClick, func(*dom.Event) {
			ToggleGroup(ctx.Doc, title)
		})
	}
	for _, item := range ctx.El.QueryAll(ControlItemSelector) {
		if item.HasAttribute(AttrControlSetup) {
			continue
		}
		item.SetAttribute(AttrControlSetup, "true")
		ctx.Listen(item, dom.EventClick, func(*dom.Event) {
			for _, other := range ctx.El.QueryAll(".control-item." + SelectedClass) {
				other.RemoveClass(SelectedClass)
			}
			item.AddClass(SelectedClass)
		})
	}
}

// ToggleGroup flips the list belonging to a group title. A title with id
// "basic-toggle" controls "#basic-list".
func ToggleGroup(doc *dom.Document, title *dom.Element) {
	group := strings.TrimSuffix(title.ID(), "-toggle")
	list := doc.GetElementByID(group + "-list")
	if list == nil {
		return
	}
	if list.HasClass(ExpandedClass) {
		list.RemoveClass(ExpandedClass)
		list.AddClass(CollapsedClass)
		title.AddClass(CollapsedClass)
		return
	}
	list.RemoveClass(CollapsedClass)
	list.AddClass(ExpandedClass)
	title.RemoveClass(CollapsedClass)
}

// Register adds PageHook and FormBuilderSidebar to r.
func Register(r *hooks.Registry, mobileBreakpoint float64) *hooks.Registry {
	return r.
		Register("PageHook", func() hooks.Hook { return &Page{MobileBreakpoint: mobileBreakpoint} }).
		Register("FormBuilderSidebar", func() hooks.Hook { return &Sidebar{} })
}
