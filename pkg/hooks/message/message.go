// Package message implements the chat input hooks: auto-resizing
// textareas with Shift+Enter newlines, plus the mobile keyboard handling
// of MessageInput, and EditInput's select-on-mount.
package message

import (
	"strconv"
	"time"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// Events and selectors used by the input hooks.
const (
	EventClear = "clear_message_input"

	InputContainerSelector    = ".input-container"
	MessagesContainerSelector = ".messages-container"

	KeyboardActiveClass = "keyboard-active"
)

// Viewport meta contents applied while the keyboard is shown and after.
const (
	ViewportLocked   = "width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=no"
	ViewportRestored = "width=device-width, initial-scale=1.0, maximum-scale=5.0"
)

// Options configures the input hooks.
type Options struct {
	// MobileBreakpoint is the max-width, in px, treated as mobile.
	MobileBreakpoint float64

	// MobileMaxHeight and DesktopMaxHeight cap the textarea height.
	MobileMaxHeight  float64
	DesktopMaxHeight float64

	// ScrollSettle is the delay of the second scroll-to-bottom on focus.
	ScrollSettle time.Duration

	// SelectDelay is how long EditInput waits before selecting.
	SelectDelay time.Duration
}

// DefaultOptions returns the stock sizes and delays.
func DefaultOptions() Options {
	return Options{
		MobileBreakpoint: dom.DefaultMobileBreakpoint,
		MobileMaxHeight:  80,
		DesktopMaxHeight: 120,
		ScrollSettle:     100 * time.Millisecond,
		SelectDelay:      50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MobileBreakpoint <= 0 {
		o.MobileBreakpoint = d.MobileBreakpoint
	}
	if o.MobileMaxHeight <= 0 {
		o.MobileMaxHeight = d.MobileMaxHeight
	}
	if o.DesktopMaxHeight <= 0 {
		o.DesktopMaxHeight = d.DesktopMaxHeight
	}
	if o.ScrollSettle <= 0 {
		o.ScrollSettle = d.ScrollSettle
	}
	if o.SelectDelay <= 0 {
		o.SelectDelay = d.SelectDelay
	}
	return o
}

// Input is the auto-resizing textarea behind LiveMessageInput and, with
// Keyboard set, MessageInput.
type Input struct {
	Options Options

	// Keyboard enables the mobile keyboard handling.
	Keyboard bool
}

// Mounted sizes the textarea and binds its listeners.
func (h *Input) Mounted(ctx *hooks.Context) {
	h.Options = h.Options.withDefaults()
	el := ctx.El

	h.Resize(ctx)
	ctx.Listen(el, dom.EventInput, func(*dom.Event) { h.Resize(ctx) })
	ctx.Listen(el, dom.EventKeyDown, func(ev *dom.Event) {
		if ev.Key != "Enter" || !ev.ShiftKey {
			return
		}
		ev.StopPropagation()
		ev.PreventDefault()
		InsertNewline(el)
	})
	ctx.HandleEvent(EventClear, func(hooks.Payload) {
		el.SetValue("")
		h.Resize(ctx)
	})

	if h.Keyboard && ctx.Doc.MatchMaxWidth(h.Options.MobileBreakpoint) {
		h.bindKeyboard(ctx)
	}
}

// Resize sets the height to the content height, capped per viewport.
func (h *Input) Resize(ctx *hooks.Context) {
	el := ctx.El
	el.SetStyle("height", "auto")
	max := h.Options.DesktopMaxHeight
	if ctx.Doc.MatchMaxWidth(h.Options.MobileBreakpoint) {
		max = h.Options.MobileMaxHeight
	}
	height := el.ScrollHeight()
	if height > max {
		height = max
	}
	el.SetStyle("height", px(height))
}

// InsertNewline replaces the selection with "\n" and puts the caret
// after it.
func InsertNewline(el *dom.Element) {
	value := el.Value()
	start, end := el.SelectionStart(), el.SelectionEnd()
	if start > len(value) {
		start = len(value)
	}
	if end < start {
		end = start
	}
	if end > len(value) {
		end = len(value)
	}
	el.SetValue(value[:start] + "\n" + value[end:])
	el.SetSelectionRange(start+1, start+1)
}

func (h *Input) bindKeyboard(ctx *hooks.Context) {
	el := ctx.El
	doc := ctx.Doc

	ctx.Listen(el, dom.EventFocus, func(*dom.Event) {
		setViewport(doc, ViewportLocked)
		if c := doc.Query(InputContainerSelector); c != nil {
			c.AddClass(KeyboardActiveClass)
		}
		if m := doc.Query(MessagesContainerSelector); m != nil {
			scrollToBottom(m)
			ctx.AfterFunc(h.Options.ScrollSettle, func() { scrollToBottom(m) })
		}
	})
	ctx.Listen(el, dom.EventBlur, func(*dom.Event) {
		setViewport(doc, ViewportRestored)
		if c := doc.Query(InputContainerSelector); c != nil {
			c.RemoveClass(KeyboardActiveClass)
		}
	})
	ctx.ListenWindow(dom.EventViewportResize, func(*dom.Event) {
		if doc.ActiveElement() != el {
			return
		}
		c := doc.Query(InputContainerSelector)
		if c == nil {
			return
		}
		visual, window := doc.VisualViewportHeight(), doc.Viewport.Height
		if visual < window {
			c.SetStyle("position", "absolute")
			c.SetStyle("bottom", px(window-visual))
		} else {
			c.SetStyle("position", "fixed")
			c.SetStyle("bottom", "0")
		}
	})
}

func setViewport(doc *dom.Document, content string) {
	if meta := doc.Query("meta[name=viewport]"); meta != nil {
		meta.SetAttribute("content", content)
	}
}

func scrollToBottom(el *dom.Element) {
	el.SetScrollTop(el.ScrollHeight())
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// EditInput selects the whole value shortly after mount.
type EditInput struct {
	Options Options
}

// Mounted schedules the selection.
func (h *EditInput) Mounted(ctx *hooks.Context) {
	opts := h.Options.withDefaults()
	ctx.AfterFunc(opts.SelectDelay, func() {
		ctx.El.Select()
	})
}

// Register adds LiveMessageInput, MessageInput and EditInput to r.
func Register(r *hooks.Registry, opts Options) *hooks.Registry {
	return r.
		Register("LiveMessageInput", func() hooks.Hook { return &Input{Options: opts} }).
		Register("MessageInput", func() hooks.Hook { return &Input{Options: opts, Keyboard: true} }).
		Register("EditInput", func() hooks.Hook { return &EditInput{Options: opts} })
}
