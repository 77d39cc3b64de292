package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/pkg/channel"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// DefaultWaitTimeout bounds a wait step without its own timeout.
const DefaultWaitTimeout = 5 * time.Second

// Runner replays scenarios.
type Runner struct {
	// Registry provides the hooks. Required.
	Registry *hooks.Registry

	// Channel is the live channel. Nil runs in memory against a
	// channel.Recorder answering from the scenario's responses.
	Channel channel.Channel

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result is the traffic of a completed run.
type Result struct {
	Name     string
	Steps    int
	Pushed   []channel.Message
	Received []channel.Message
}

// StepError reports the step that failed.
type StepError struct {
	Index int
	Kind  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type run struct {
	sc     *Scenario
	doc    *dom.Document
	view   *hooks.View
	tap    *tap
	clock  *clockwork.FakeClock
	logger *slog.Logger

	// waited counts pushes consumed by wait steps, per event.
	waited map[string]int
}

// Run replays sc. It stops at the first failing step and returns a
// *StepError. The returned Result is non-nil whenever the page parsed.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scenario", "scenario", sc.Name)

	doc, err := dom.Parse(sc.HTML)
	if err != nil {
		return nil, err
	}
	if sc.Viewport != nil {
		doc.Viewport.Width = sc.Viewport.Width
		doc.Viewport.Height = sc.Viewport.Height
	}

	inner := r.Channel
	if inner == nil {
		rec := channel.NewRecorder()
		rec.SetResponder(responder(sc.Responses))
		inner = rec
	}
	t := newTap(inner)
	defer t.close()

	clock := clockwork.NewFakeClock()
	view := hooks.NewView(doc, r.Registry, t,
		hooks.WithClock(clock),
		hooks.WithLogger(logger),
		hooks.WithContext(ctx),
	)
	defer view.Close()

	ru := &run{sc: sc, doc: doc, view: view, tap: t, clock: clock, logger: logger, waited: make(map[string]int)}
	result := &Result{Name: sc.Name}

	mounted := view.Mount()
	logger.Debug("mounted", "hooks", mounted)
	if err := ru.settle(ctx); err != nil {
		return ru.finish(result), err
	}

	for i, st := range sc.Steps {
		if err := ru.step(ctx, st); err != nil {
			logger.Warn("step failed", "step", i+1, "kind", st.Kind(), "error", err)
			return ru.finish(result), &StepError{Index: i + 1, Kind: st.Kind(), Err: err}
		}
		if err := ru.settle(ctx); err != nil {
			return ru.finish(result), &StepError{Index: i + 1, Kind: st.Kind(), Err: err}
		}
		result.Steps++
	}
	logger.Info("scenario passed", "steps", result.Steps)
	return ru.finish(result), nil
}

func (ru *run) finish(res *Result) *Result {
	res.Pushed, res.Received = ru.tap.snapshot()
	return res
}

func (ru *run) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := ru.view.Settle(ctx)
	return err
}

func responder(responses []Response) channel.Responder {
	if len(responses) == 0 {
		return nil
	}
	return func(event string, _ map[string]any) []channel.Message {
		var out []channel.Message
		for _, r := range responses {
			if r.On == event {
				out = append(out, r.Reply...)
			}
		}
		return out
	}
}

func (ru *run) el(id string) (*dom.Element, error) {
	el := ru.doc.GetElementByID(id)
	if el == nil {
		return nil, fmt.Errorf("no element #%s", id)
	}
	return el, nil
}

func (ru *run) step(ctx context.Context, st Step) error {
	switch {
	case st.Click != "":
		return ru.with(st.Click, func(el *dom.Element) { el.Click() })
	case st.Submit != "":
		return ru.with(st.Submit, func(el *dom.Element) { el.Submit() })
	case st.Focus != "":
		return ru.with(st.Focus, func(el *dom.Element) { el.Focus() })
	case st.Blur != "":
		return ru.with(st.Blur, func(el *dom.Element) { el.Blur() })
	case st.Input != nil:
		return ru.with(st.Input.Target, func(el *dom.Element) { el.Input(st.Input.Value) })
	case st.Change != nil:
		return ru.with(st.Change.Target, func(el *dom.Element) { el.Change(st.Change.Value) })
	case st.Check != nil:
		return ru.with(st.Check.Target, func(el *dom.Element) {
			el.SetChecked(st.Check.Checked)
			el.Dispatch(&dom.Event{Type: dom.EventChange})
		})
	case st.KeyDown != nil:
		return ru.with(st.KeyDown.Target, func(el *dom.Element) { el.KeyDown(st.KeyDown.Key, st.KeyDown.Shift) })
	case st.Drag != nil:
		src, err := ru.el(st.Drag.Source)
		if err != nil {
			return err
		}
		over, err := ru.el(st.Drag.Over)
		if err != nil {
			return err
		}
		ru.view.Post(func() { src.DragTo(over, st.Drag.Y...) })
		return nil
	case st.Drop != nil:
		files := make([]dom.File, len(st.Drop.Files))
		for i, f := range st.Drop.Files {
			size := f.Size
			if size == 0 {
				size = int64(len(f.Data))
			}
			files[i] = dom.File{Name: f.Name, Type: f.Type, Size: size, Data: []byte(f.Data)}
		}
		return ru.with(st.Drop.Target, func(el *dom.Element) { el.DropFiles(files...) })
	case st.Deliver != nil:
		ru.tap.deliver(st.Deliver.Event, st.Deliver.Payload)
		return nil
	case st.Patch != nil:
		target, err := ru.el(st.Patch.Target)
		if err != nil {
			return err
		}
		return ru.view.Patch(target, st.Patch.HTML)
	case st.Advance > 0:
		ru.clock.Advance(st.Advance)
		return nil
	case st.Keyboard > 0:
		ru.view.Post(func() { ru.doc.ResizeVisualViewport(st.Keyboard) })
		return nil
	case st.Wait != nil:
		return ru.wait(ctx, st.Wait)
	case st.Expect != nil:
		return ru.expect(st.Expect)
	}
	return fmt.Errorf("empty step")
}

// with runs fn on el from the view's loop.
func (ru *run) with(id string, fn func(*dom.Element)) error {
	el, err := ru.el(id)
	if err != nil {
		return err
	}
	ru.view.Post(func() { fn(el) })
	return nil
}

func (ru *run) wait(ctx context.Context, w *WaitStep) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		n, next := ru.tap.arrived(w.Event)
		if n > ru.waited[w.Event] {
			ru.waited[w.Event]++
			return nil
		}
		select {
		case <-next:
		case <-timer.C:
			return fmt.Errorf("no %s push within %s", w.Event, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
