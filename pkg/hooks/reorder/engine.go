package reorder

import (
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// State is the engine's drag state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// session is the state of one drag, from dragstart to dragend.
type session struct {
	dragged      *dom.Element
	id           string
	initial      []string
	changed      bool
	cancelMarker func()
}

// Engine tracks the pointer during a drag and moves the dragged item.
type Engine struct {
	cfg       Config
	ctx       *hooks.Context
	container *dom.Element
	registry  *Registry
	reporter  *Reporter

	state   State
	drag    *session
	order   []string
	bound   bool
	commits int
	release []func()
}

// NewEngine creates an engine for container. Call Bind to attach it.
func NewEngine(ctx *hooks.Context, container *dom.Element, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		ctx:       ctx,
		container: container,
		reporter:  NewReporter(container, cfg),
	}
	e.registry = NewRegistry(ctx, container, cfg, e.bindItem)
	return e
}

// Bind attaches the container listeners once and registers items. It is
// safe to call on every mount and update.
func (e *Engine) Bind() {
	if !e.bound {
		e.bound = true
		e.release = append(e.release,
			e.ctx.Listen(e.container, dom.EventDragOver, e.onDragOver),
			e.ctx.Listen(e.container, dom.EventDrop, func(ev *dom.Event) { ev.PreventDefault() }),
		)
	}
	e.container.SetAttribute(AttrContainerBound, e.registry.Token())
	e.registry.Refresh()
	if e.state == Dragging && !e.live(e.drag.dragged) {
		e.abandon()
	}
	e.order = e.registry.Order()
}

// Unbind removes the container and item listeners and drops a drag in
// progress without a notification.
func (e *Engine) Unbind() {
	if e.state == Dragging {
		e.abandon()
	}
	for _, remove := range e.release {
		remove()
	}
	e.release = nil
	e.bound = false
	e.registry.Release()
	if e.container.GetAttribute(AttrContainerBound) == e.registry.Token() {
		e.container.RemoveAttribute(AttrContainerBound)
	}
}

// Order returns the identifiers in the order last observed.
func (e *Engine) Order() []string {
	return append([]string(nil), e.order...)
}

// State returns the drag state.
func (e *Engine) State() State {
	return e.state
}

// Container returns the container element.
func (e *Engine) Container() *dom.Element {
	return e.container
}

// Registry returns the item registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Commits returns the number of notifications sent.
func (e *Engine) Commits() int {
	return e.commits
}

func (e *Engine) bindItem(item *dom.Element) func() {
	start := e.ctx.Listen(item, dom.EventDragStart, func(*dom.Event) { e.Start(item) })
	end := e.ctx.Listen(item, dom.EventDragEnd, func(*dom.Event) { e.End() })
	return func() {
		start()
		end()
	}
}

// live reports whether item is still an item of the container.
func (e *Engine) live(item *dom.Element) bool {
	return item.Connected() && e.registry.Eligible(item)
}

// abandon ends the drag without a notification and leaves the DOM as it
// is.
func (e *Engine) abandon() {
	s := e.drag
	e.state = Idle
	e.drag = nil
	if s.cancelMarker != nil {
		s.cancelMarker()
	}
	s.dragged.RemoveClass(e.cfg.DraggingClass)
}

// Start begins a drag of item. It is ignored while a drag is in progress
// or when item is not eligible.
func (e *Engine) Start(item *dom.Element) {
	if e.state == Dragging {
		return
	}
	id, ok := e.registry.ID(item)
	if !ok {
		return
	}
	e.state = Dragging
	e.drag = &session{
		dragged: item,
		id:      id,
		initial: e.registry.Order(),
	}
	class := e.cfg.DraggingClass
	e.drag.cancelMarker = e.ctx.AfterFunc(0, func() {
		if e.drag != nil && e.drag.dragged == item {
			item.AddClass(class)
		}
	})
}

func (e *Engine) onDragOver(ev *dom.Event) {
	ev.PreventDefault()
	if e.state != Dragging {
		return
	}
	e.Move(ev.ClientY)
}

// Move places the dragged item relative to the item under y. It reports
// whether the DOM changed.
func (e *Engine) Move(y float64) bool {
	if e.state != Dragging {
		return false
	}
	dragged := e.drag.dragged
	if !e.live(dragged) {
		e.abandon()
		return false
	}

	var others []*dom.Element
	for _, el := range e.registry.Items() {
		if el != dragged && el.Connected() {
			others = append(others, el)
		}
	}
	if len(others) == 0 {
		return false
	}

	var target *dom.Element
	after := false
	for _, el := range others {
		r := el.BoundingClientRect()
		if r.ContainsY(y) {
			target = el
			after = y >= r.MidY()
			break
		}
	}
	if target == nil {
		first, last := others[0], others[len(others)-1]
		switch {
		case y < first.BoundingClientRect().Top():
			target = first
		case y >= last.BoundingClientRect().Bottom():
			target, after = last, true
		default:
			return false
		}
	}

	parent := target.Parent()
	if parent == nil {
		return false
	}
	if after {
		if target.NextElementSibling() == dragged {
			return false
		}
		parent.InsertBefore(dragged, target.NextElementSibling())
	} else {
		if target.PreviousElementSibling() == dragged {
			return false
		}
		parent.InsertBefore(dragged, target)
	}
	e.drag.changed = true
	e.order = e.registry.Order()
	return true
}

// End finishes the drag. A drag that moved the item produces exactly one
// notification.
func (e *Engine) End() {
	if e.state != Dragging {
		return
	}
	s := e.drag
	e.state = Idle
	e.drag = nil

	if s.cancelMarker != nil {
		s.cancelMarker()
	}
	s.dragged.RemoveClass(e.cfg.DraggingClass)

	if !s.changed {
		return
	}
	if !e.live(s.dragged) {
		return
	}
	if _, sent := e.reporter.Report(e.ctx, s.id, s.initial); sent {
		e.commits++
	}
	e.order = e.registry.Order()
}

// Hook binds an Engine to a hooked element.
type Hook struct {
	Config Config
	engine *Engine
}

// New returns a factory for hooks using cfg.
func New(cfg Config) hooks.Factory {
	return func() hooks.Hook { return &Hook{Config: cfg} }
}

// Engine returns the bound engine, or nil before mount or when the
// container was not found.
func (h *Hook) Engine() *Engine {
	return h.engine
}

// Mounted locates the container and binds the engine.
func (h *Hook) Mounted(ctx *hooks.Context) {
	h.attach(ctx)
}

// Updated re-registers items after a server patch.
func (h *Hook) Updated(ctx *hooks.Context) {
	h.attach(ctx)
}

func (h *Hook) attach(ctx *hooks.Context) {
	container := ctx.El
	if sel := h.Config.ContainerSelector; sel != "" {
		container = ctx.El.Query(sel)
	}
	if container == nil {
		ctx.Logger.Debug("container not found", "selector", h.Config.ContainerSelector)
		return
	}
	if h.engine != nil && h.engine.container != container {
		h.engine.Unbind()
		h.engine = nil
	}
	if h.engine == nil {
		h.engine = NewEngine(ctx, container, h.Config)
	}
	h.engine.Bind()
}
