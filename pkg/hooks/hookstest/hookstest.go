// Package hookstest provides a harness for testing hooks against an
// in-memory document, a recording channel and a fake clock.
//
//	h := hookstest.New(t, standard.Hooks(standard.Options{}), `<ul id="list" phx-hook="Sortable">...</ul>`)
//	h.El("a").DragTo(h.El("b"), 70)
//	h.Settle()
//	got := h.Pushes("update_structure_order")
package hookstest

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/pkg/channel"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// Harness wires a View to test doubles.
type Harness struct {
	T       testing.TB
	Doc     *dom.Document
	Channel *channel.Recorder
	Clock   *clockwork.FakeClock
	Logs    *LogRecorder
	View    *hooks.View
}

// Option adjusts the harness before the view mounts.
type Option func(*Harness)

// WithViewport sets the viewport width and height.
func WithViewport(width, height float64) Option {
	return func(h *Harness) {
		h.Doc.Viewport.Width = width
		h.Doc.Viewport.Height = height
	}
}

// Mobile sets a phone-sized viewport.
func Mobile() Option {
	return WithViewport(375, 667)
}

// New parses src, mounts the registry's hooks and settles. The view is
// closed when the test ends.
func New(t testing.TB, registry *hooks.Registry, src string, opts ...Option) *Harness {
	t.Helper()
	doc, err := dom.Parse(src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	h := &Harness{
		T:       t,
		Doc:     doc,
		Channel: channel.NewRecorder(),
		Clock:   clockwork.NewFakeClock(),
		Logs:    &LogRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.View = hooks.NewView(doc, registry, h.Channel,
		hooks.WithClock(h.Clock),
		hooks.WithLogger(slog.New(h.Logs)),
	)
	t.Cleanup(h.View.Close)
	h.View.Mount()
	h.Settle()
	return h
}

// El returns the element with id or fails the test.
func (h *Harness) El(id string) *dom.Element {
	h.T.Helper()
	el := h.Doc.GetElementByID(id)
	if el == nil {
		h.T.Fatalf("no element #%s", id)
	}
	return el
}

// Settle drains the view's loop, waiting for expired timers.
func (h *Harness) Settle() {
	h.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.View.Settle(ctx); err != nil {
		h.T.Fatalf("settle: %v", err)
	}
}

// Advance moves the fake clock forward and settles.
func (h *Harness) Advance(d time.Duration) {
	h.T.Helper()
	h.Clock.Advance(d)
	h.Settle()
}

// Deliver simulates a server push and settles.
func (h *Harness) Deliver(event string, payload map[string]any) {
	h.T.Helper()
	h.Channel.Deliver(event, payload)
	h.Settle()
}

// Patch applies a server patch to the element with id and settles.
func (h *Harness) Patch(id, src string) {
	h.T.Helper()
	if err := h.View.Patch(h.El(id), src); err != nil {
		h.T.Fatalf("patch #%s: %v", id, err)
	}
	h.Settle()
}

// Pushes returns the recorded pushes named event.
func (h *Harness) Pushes(event string) []channel.Message {
	return h.Channel.Named(event)
}

// LogRecorder is a slog.Handler that keeps every record.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
	parent  *LogRecorder
}

// Enabled reports true for every level.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(r.attrs...)
	root := r.root()
	root.mu.Lock()
	root.records = append(root.records, rec)
	root.mu.Unlock()
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{
		attrs:  append(append([]slog.Attr(nil), r.attrs...), attrs...),
		parent: r.root(),
	}
}

// WithGroup ignores the group.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

func (r *LogRecorder) root() *LogRecorder {
	if r.parent != nil {
		return r.parent
	}
	return r
}

// Codes returns the "code" attribute of every record that has one.
func (r *LogRecorder) Codes() []string {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var codes []string
	for _, rec := range root.records {
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == "code" {
				codes = append(codes, a.Value.String())
				return false
			}
			return true
		})
	}
	return codes
}

// Has reports whether a record with the given code was logged.
func (r *LogRecorder) Has(code string) bool {
	for _, c := range r.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

// Messages returns every logged message.
func (r *LogRecorder) Messages() []string {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]string, len(root.records))
	for i, rec := range root.records {
		out[i] = rec.Message
	}
	return out
}
