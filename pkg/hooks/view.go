package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/channel"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/timer"
)

// DefaultPushTimeout bounds a single push.
const DefaultPushTimeout = 5 * time.Second

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.logger = l }
}

// WithClock sets the clock used by hook timers.
func WithClock(c clockwork.Clock) Option {
	return func(v *View) { v.clock = c }
}

// WithLoop shares an existing loop.
func WithLoop(l *Loop) Option {
	return func(v *View) { v.loop = l }
}

// WithContext sets the parent context of pushes.
func WithContext(ctx context.Context) Option {
	return func(v *View) { v.ctx = ctx }
}

// WithPushTimeout bounds each push. Zero disables the bound.
func WithPushTimeout(d time.Duration) Option {
	return func(v *View) { v.pushTimeout = d }
}

// View binds hooks to a document and keeps them in step with it.
//
// View methods other than Post must be called from the loop goroutine.
type View struct {
	doc      *dom.Document
	registry *Registry
	channel  channel.Channel

	loop        *Loop
	clock       clockwork.Clock
	logger      *slog.Logger
	ctx         context.Context
	pushTimeout time.Duration

	instances map[*dom.Element]*instance
	order     []*instance
	handlers  map[string][]*handler
	unknown   map[*dom.Element]struct{}

	unsubscribe func()
	closed      bool
}

type instance struct {
	name      string
	hook      Hook
	ctx       *Context
	scope     *timer.Scope
	cleanup   map[*release]struct{}
	handlers  []*handler
	destroyed bool
}

// release removes one listener at most once.
type release struct {
	fn func()
}

// track records remove for destroy and returns a func that runs it early.
func (inst *instance) track(remove func()) func() {
	r := &release{fn: remove}
	if inst.cleanup == nil {
		inst.cleanup = make(map[*release]struct{})
	}
	inst.cleanup[r] = struct{}{}
	return func() {
		if _, ok := inst.cleanup[r]; !ok {
			return
		}
		delete(inst.cleanup, r)
		r.fn()
	}
}

type handler struct {
	inst    *instance
	fn      func(Payload)
	removed bool
}

// NewView creates a view. A nil channel drops pushes.
func NewView(doc *dom.Document, registry *Registry, ch channel.Channel, opts ...Option) *View {
	v := &View{
		doc:         doc,
		registry:    registry,
		channel:     ch,
		ctx:         context.Background(),
		pushTimeout: DefaultPushTimeout,
		instances:   make(map[*dom.Element]*instance),
		handlers:    make(map[string][]*handler),
		unknown:     make(map[*dom.Element]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.logger = v.logger.With("component", "view")
	if v.clock == nil {
		v.clock = clockwork.NewRealClock()
	}
	if v.loop == nil {
		v.loop = NewLoop(v.logger)
	}
	if v.registry == nil {
		v.registry = NewRegistry()
	}
	if ch != nil {
		v.unsubscribe = ch.Subscribe(func(event string, payload map[string]any) {
			v.loop.Post(func() { v.deliver(event, payload) })
		})
	}
	return v
}

// Document returns the view's document.
func (v *View) Document() *dom.Document { return v.doc }

// Loop returns the view's loop.
func (v *View) Loop() *Loop { return v.loop }

// Post queues fn on the view's loop. Safe for concurrent use.
func (v *View) Post(fn func()) { v.loop.Post(fn) }

// Flush drains the loop.
func (v *View) Flush() int { return v.loop.Flush() }

// Settle waits until every expired hook timer has been queued, then drains
// the loop, repeating until nothing is due or queued.
func (v *View) Settle(ctx context.Context) (int, error) {
	total := 0
	for {
		for v.dueTimers() > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
		n := v.loop.Flush()
		total += n
		if n == 0 && v.dueTimers() == 0 && v.loop.Len() == 0 {
			return total, nil
		}
	}
}

func (v *View) dueTimers() int {
	n := 0
	for _, inst := range v.order {
		n += inst.scope.Due()
	}
	return n
}

// Mount destroys instances whose element left the document and mounts
// every hooked element that has no instance yet, in document order. It
// returns the number of hooks mounted.
func (v *View) Mount() int {
	if v.closed {
		return 0
	}
	v.destroyDisconnected()
	mounted := 0
	for _, el := range v.doc.QueryAll("[" + AttrHook + "]") {
		if _, ok := v.instances[el]; ok {
			continue
		}
		if v.mount(el) {
			mounted++
		}
	}
	return mounted
}

// Patch replaces target's children with src and reconciles hooks:
// removed elements are destroyed, hooked elements that survive with the
// same id and hook name keep their instance and node and get Updated,
// new ones are mounted. A hooked target gets Updated.
func (v *View) Patch(target *dom.Element, src string) error {
	if target == nil || !target.Connected() {
		return errors.New(errors.CodeMissingTarget).WithDetail("patch target")
	}
	if v.closed {
		return errors.New(errors.CodeClosed)
	}

	type key struct{ id, name string }
	var inside []*instance
	byKey := make(map[key]*instance)
	for _, inst := range v.order {
		el := inst.ctx.El
		if el != target && target.Contains(el) {
			inside = append(inside, inst)
			if id := el.ID(); id != "" {
				byKey[key{id, inst.name}] = inst
			}
		}
	}

	if err := target.SetInnerHTML(src); err != nil {
		return errors.New(errors.CodeInvalidValue).WithDetail("patch html").Wrap(err)
	}

	kept := make(map[*instance]bool)
	var fresh []*dom.Element
	for _, el := range target.QueryAll("[" + AttrHook + "]") {
		k := key{el.ID(), el.GetAttribute(AttrHook)}
		if inst, ok := byKey[k]; ok && k.id != "" {
			delete(byKey, k)
			inst.ctx.El.Morph(el)
			kept[inst] = true
			continue
		}
		fresh = append(fresh, el)
	}

	for _, inst := range inside {
		if !kept[inst] {
			v.destroy(inst)
		}
	}
	if inst, ok := v.instances[target]; ok {
		v.update(inst)
	}
	for _, inst := range inside {
		if kept[inst] {
			v.update(inst)
		}
	}
	for _, el := range fresh {
		if el.Connected() {
			v.mount(el)
		}
	}
	return nil
}

// Hook returns the instance bound to el.
func (v *View) Hook(el *dom.Element) (Hook, bool) {
	inst, ok := v.instances[el]
	if !ok {
		return nil, false
	}
	return inst.hook, true
}

// Len returns the number of live hook instances.
func (v *View) Len() int {
	return len(v.order)
}

// HandlerCount returns the number of live handlers for event.
func (v *View) HandlerCount(event string) int {
	return len(v.handlers[event])
}

// ListenerCount returns the number of DOM and window listeners held by the
// hook bound to el.
func (v *View) ListenerCount(el *dom.Element) int {
	inst, ok := v.instances[el]
	if !ok {
		return 0
	}
	return len(inst.cleanup)
}

// Close destroys every instance, newest first, and unsubscribes from the
// channel. Close is idempotent.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.closed = true
	for i := len(v.order) - 1; i >= 0; i-- {
		v.destroy(v.order[i])
	}
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
}

func (v *View) mount(el *dom.Element) bool {
	name := el.GetAttribute(AttrHook)
	factory, ok := v.registry.Lookup(name)
	if !ok {
		if _, seen := v.unknown[el]; !seen {
			v.unknown[el] = struct{}{}
			err := errors.New(errors.CodeUnknownHook).WithDetailf("%q on #%s", name, el.ID())
			v.logger.Warn(err.Message, err.LogAttrs()...)
		}
		return false
	}

	inst := &instance{
		name:  name,
		scope: timer.NewScope(v.clock, v.loop.Post),
	}
	inst.ctx = &Context{
		El:     el,
		Doc:    v.doc,
		Logger: v.logger.With("hook", name, "id", el.ID()),
		view:   v,
		inst:   inst,
	}
	v.instances[el] = inst
	v.order = append(v.order, inst)

	v.guard(inst, "mounted", func() {
		inst.hook = factory()
		inst.hook.Mounted(inst.ctx)
	})
	return true
}

func (v *View) update(inst *instance) {
	if u, ok := inst.hook.(Updater); ok {
		v.guard(inst, "updated", func() { u.Updated(inst.ctx) })
	}
}

func (v *View) destroy(inst *instance) {
	if inst.destroyed {
		return
	}
	if d, ok := inst.hook.(Destroyer); ok {
		v.guard(inst, "destroyed", func() { d.Destroyed(inst.ctx) })
	}
	inst.destroyed = true
	inst.scope.Close()
	for r := range inst.cleanup {
		r.fn()
	}
	inst.cleanup = nil
	for _, h := range inst.handlers {
		v.removeHandler(h)
	}
	inst.handlers = nil

	delete(v.instances, inst.ctx.El)
	for i, cur := range v.order {
		if cur == inst {
			v.order = append(v.order[:i:i], v.order[i+1:]...)
			break
		}
	}
}

func (v *View) destroyDisconnected() {
	var gone []*instance
	for _, inst := range v.order {
		if !inst.ctx.El.Connected() {
			gone = append(gone, inst)
		}
	}
	for _, inst := range gone {
		v.destroy(inst)
	}
	for el := range v.unknown {
		if !el.Connected() {
			delete(v.unknown, el)
		}
	}
}

func (v *View) addHandler(inst *instance, event string, fn func(Payload)) {
	h := &handler{inst: inst, fn: fn}
	v.handlers[event] = append(v.handlers[event], h)
	inst.handlers = append(inst.handlers, h)
}

func (v *View) removeHandler(h *handler) {
	h.removed = true
	for event, list := range v.handlers {
		for i, cur := range list {
			if cur == h {
				list = append(list[:i:i], list[i+1:]...)
				if len(list) == 0 {
					delete(v.handlers, event)
				} else {
					v.handlers[event] = list
				}
				return
			}
		}
	}
}

// deliver fans a server push out to its handlers in registration order.
func (v *View) deliver(event string, payload map[string]any) {
	list := v.handlers[event]
	if len(list) == 0 {
		v.logger.Debug("push without handler", "event", event)
		return
	}
	snapshot := append([]*handler(nil), list...)
	for _, h := range snapshot {
		if h.removed || h.inst.destroyed {
			continue
		}
		v.guard(h.inst, event, func() { h.fn(Payload(payload)) })
	}
}

func (v *View) push(c *Context, event string, payload map[string]any) {
	if v.channel == nil {
		c.Logger.Debug("push dropped, no channel", "event", event)
		return
	}
	ctx := v.ctx
	if v.pushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.pushTimeout)
		defer cancel()
	}
	if err := v.channel.Push(ctx, event, payload); err != nil {
		c.Logger.Warn("push failed", "event", event, "error", err)
		return
	}
	c.Logger.Debug("pushed", "event", event)
}

// guard runs fn and turns a panic into a logged H006.
func (v *View) guard(inst *instance, where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.CodeHookPanic).
				WithDetailf("%s in %s", inst.name, where).
				Wrap(fmt.Errorf("%v", r))
			v.logger.Error(err.Message, append(err.LogAttrs(), "stack", string(debug.Stack()))...)
		}
	}()
	fn()
}
