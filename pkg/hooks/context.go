package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

// Context is a hook instance's handle on its element and the View.
type Context struct {
	// El is the element the hook is bound to.
	El *dom.Element

	// Doc is the document El belongs to.
	Doc *dom.Document

	// Logger carries hook and id attributes.
	Logger *slog.Logger

	view *View
	inst *instance
}

// Name returns the hook name.
func (c *Context) Name() string {
	return c.inst.name
}

// PushEvent sends a named event to the server. Failures are logged by the
// View and never reported to the hook.
func (c *Context) PushEvent(event string, payload map[string]any) {
	if c.inst.destroyed {
		return
	}
	c.view.push(c, event, payload)
}

// HandleEvent registers fn for a server-pushed event. Handlers for one
// event run in registration order across all hooks.
func (c *Context) HandleEvent(event string, fn func(Payload)) {
	if c.inst.destroyed {
		return
	}
	c.view.addHandler(c.inst, event, fn)
}

// Listen adds a DOM listener that is removed when the hook is destroyed.
// The returned func removes it earlier.
func (c *Context) Listen(el *dom.Element, typ string, fn dom.Listener) (remove func()) {
	if c.inst.destroyed || el == nil {
		return func() {}
	}
	return c.inst.track(el.AddEventListener(typ, func(ev *dom.Event) {
		c.view.guard(c.inst, typ, func() { fn(ev) })
	}))
}

// ListenWindow adds a window listener that is removed when the hook is
// destroyed. The returned func removes it earlier.
func (c *Context) ListenWindow(typ string, fn dom.Listener) (remove func()) {
	if c.inst.destroyed {
		return func() {}
	}
	return c.inst.track(c.Doc.AddWindowListener(typ, func(ev *dom.Event) {
		c.view.guard(c.inst, typ, func() { fn(ev) })
	}))
}

// AfterFunc runs fn on the loop after d unless the hook is destroyed first.
func (c *Context) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	return c.inst.scope.AfterFunc(d, func() {
		c.view.guard(c.inst, "timer", fn)
	})
}

// Context returns the View's context. It is cancelled when the view's
// owner shuts down.
func (c *Context) Context() context.Context {
	return c.view.ctx
}

// Clock returns the View's clock.
func (c *Context) Clock() clockwork.Clock {
	return c.view.clock
}

// Post queues fn on the loop. It is dropped if the hook is destroyed
// before it runs.
func (c *Context) Post(fn func()) {
	c.view.loop.Post(func() {
		if !c.inst.destroyed {
			c.view.guard(c.inst, "post", fn)
		}
	})
}

// Report logs err at level with its code attributes.
func (c *Context) Report(level slog.Level, err *errors.Error) {
	c.Logger.Log(context.Background(), level, err.Message, err.LogAttrs()...)
}

// Malformed reports a server payload of the wrong shape. The event is
// ignored by the caller.
func (c *Context) Malformed(event, detail string) {
	c.Report(slog.LevelWarn, errors.New(errors.CodeMalformedPayload).WithDetailf("%s: %s", event, detail))
}
