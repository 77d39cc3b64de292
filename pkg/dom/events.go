package dom

// Event types dispatched by hooks and the simulation helpers.
const (
	EventClick     = "click"
	EventInput     = "input"
	EventChange    = "change"
	EventSubmit    = "submit"
	EventKeyDown   = "keydown"
	EventFocus     = "focus"
	EventBlur      = "blur"
	EventDragStart = "dragstart"
	EventDragEnter = "dragenter"
	EventDragOver  = "dragover"
	EventDragLeave = "dragleave"
	EventDrop      = "drop"
	EventDragEnd   = "dragend"

	// EventViewportResize is dispatched on the window when the visual
	// viewport changes size (on-screen keyboard shown or hidden).
	EventViewportResize = "visualviewport:resize"
)

// File is a file carried by a drop event.
type File struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// Event is a DOM event.
type Event struct {
	Type string

	// Target is the element the event was dispatched on.
	Target *Element

	// CurrentTarget is the element whose listener is running.
	CurrentTarget *Element

	// Pointer position for pointer and drag events.
	ClientX float64
	ClientY float64

	// Keyboard state for key events.
	Key      string
	ShiftKey bool

	// Files for drop events.
	Files []File

	defaultPrevented   bool
	propagationStopped bool
}

// PreventDefault cancels the default action.
func (ev *Event) PreventDefault() {
	ev.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool {
	return ev.defaultPrevented
}

// StopPropagation stops bubbling after the current element.
func (ev *Event) StopPropagation() {
	ev.propagationStopped = true
}

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	fn      Listener
	removed bool
}

// AddEventListener registers fn for typ and returns a function that removes it.
func (e *Element) AddEventListener(typ string, fn Listener) (remove func()) {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)
	return func() { e.removeListener(typ, l) }
}

// ListenerCount returns the number of listeners registered for typ.
func (e *Element) ListenerCount(typ string) int {
	return len(e.listeners[typ])
}

func (e *Element) removeListener(typ string, l *listener) {
	l.removed = true
	list := e.listeners[typ]
	for i, cur := range list {
		if cur == l {
			e.listeners[typ] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.listeners[typ]) == 0 {
		delete(e.listeners, typ)
	}
}

// nonBubbling lists event types that only reach their target.
var nonBubbling = map[string]bool{
	EventFocus: true,
	EventBlur:  true,
}

// Dispatch fires ev at e and bubbles it to the document root. Focus and
// blur stay on e. It returns false if a listener called PreventDefault.
func (e *Element) Dispatch(ev *Event) bool {
	ev.Target = e
	for n := e.n; n != nil; n = n.Parent {
		if n != e.n && nonBubbling[ev.Type] {
			break
		}
		cur := e.doc.elements[n]
		if cur == nil || len(cur.listeners[ev.Type]) == 0 {
			continue
		}
		ev.CurrentTarget = cur
		snapshot := append([]*listener(nil), cur.listeners[ev.Type]...)
		for _, l := range snapshot {
			if !l.removed {
				l.fn(ev)
			}
		}
		if ev.propagationStopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// AddWindowListener registers fn for a window-level event.
func (d *Document) AddWindowListener(typ string, fn Listener) (remove func()) {
	l := &listener{fn: fn}
	d.window[typ] = append(d.window[typ], l)
	return func() {
		l.removed = true
		list := d.window[typ]
		for i, cur := range list {
			if cur == l {
				d.window[typ] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// DispatchWindow fires a window-level event.
func (d *Document) DispatchWindow(ev *Event) bool {
	snapshot := append([]*listener(nil), d.window[ev.Type]...)
	for _, l := range snapshot {
		if !l.removed {
			l.fn(ev)
		}
	}
	return !ev.defaultPrevented
}

// WindowListenerCount returns the number of window listeners for typ.
func (d *Document) WindowListenerCount(typ string) int {
	return len(d.window[typ])
}

// ResizeVisualViewport changes the visual viewport height and dispatches
// EventViewportResize.
func (d *Document) ResizeVisualViewport(height float64) {
	d.Viewport.VisualHeight = height
	d.DispatchWindow(&Event{Type: EventViewportResize})
}

// Simulation helpers. They mimic what the browser does for a user gesture
// so tests and scenario replays read like the interaction they model.

// Click dispatches a click.
func (e *Element) Click() bool {
	return e.Dispatch(&Event{Type: EventClick})
}

// Input sets the control value and dispatches input.
func (e *Element) Input(value string) bool {
	e.SetValue(value)
	return e.Dispatch(&Event{Type: EventInput})
}

// Change sets the control value and dispatches change.
func (e *Element) Change(value string) bool {
	e.SetValue(value)
	return e.Dispatch(&Event{Type: EventChange})
}

// KeyDown dispatches a keydown.
func (e *Element) KeyDown(key string, shift bool) bool {
	return e.Dispatch(&Event{Type: EventKeyDown, Key: key, ShiftKey: shift})
}

// Submit dispatches a submit on a form.
func (e *Element) Submit() bool {
	return e.Dispatch(&Event{Type: EventSubmit})
}

// DragTo simulates an HTML5 drag of e: dragstart on e, one dragover per
// pointer Y over the element found under the pointer (falling back to over),
// drop, then dragend on e.
func (e *Element) DragTo(over *Element, ys ...float64) {
	e.Dispatch(&Event{Type: EventDragStart})
	target := over
	for _, y := range ys {
		if hit := over.doc.ElementAtY(over.Parent(), y); hit != nil {
			target = hit
		}
		target.Dispatch(&Event{Type: EventDragOver, ClientY: y})
	}
	target.Dispatch(&Event{Type: EventDrop})
	e.Dispatch(&Event{Type: EventDragEnd})
}

// DropFiles simulates files being dragged onto and dropped on e.
func (e *Element) DropFiles(files ...File) bool {
	e.Dispatch(&Event{Type: EventDragEnter, Files: files})
	e.Dispatch(&Event{Type: EventDragOver, Files: files})
	return e.Dispatch(&Event{Type: EventDrop, Files: files})
}
