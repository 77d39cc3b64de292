package channel

import (
	"context"
	"sync"
)

// Responder answers a push with zero or more server pushes.
type Responder func(event string, payload map[string]any) []Message

// Recorder is an in-memory Channel. It records every push and lets tests
// and scenario replays deliver server pushes.
type Recorder struct {
	mu        sync.Mutex
	pushes    []Message
	subs      subscribers
	responder Responder
	err       error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Push records the event. If a responder is set its replies are delivered
// to subscribers before Push returns.
func (r *Recorder) Push(ctx context.Context, event string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.pushes = append(r.pushes, Message{Event: event, Payload: payload})
	responder := r.responder
	r.mu.Unlock()

	if responder != nil {
		for _, m := range responder(event, payload) {
			r.Deliver(m.Event, m.Payload)
		}
	}
	return nil
}

// Subscribe registers fn for delivered events.
func (r *Recorder) Subscribe(fn Handler) func() {
	r.mu.Lock()
	sub := r.subs.add(fn)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.subs.remove(sub)
		r.mu.Unlock()
	}
}

// Deliver simulates a server push to every subscriber, in subscription order.
func (r *Recorder) Deliver(event string, payload map[string]any) {
	r.mu.Lock()
	subs := r.subs.snapshot()
	r.mu.Unlock()
	for _, s := range subs {
		s.fn(event, payload)
	}
}

// SetResponder installs fn to answer future pushes.
func (r *Recorder) SetResponder(fn Responder) {
	r.mu.Lock()
	r.responder = fn
	r.mu.Unlock()
}

// FailWith makes every future Push return err. Nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Pushes returns a copy of the recorded pushes.
func (r *Recorder) Pushes() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.pushes...)
}

// Named returns the recorded pushes with the given event name.
func (r *Recorder) Named(event string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.pushes {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent push, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushes) == 0 {
		return Message{}, false
	}
	return r.pushes[len(r.pushes)-1], true
}

// Reset discards recorded pushes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.pushes = nil
	r.mu.Unlock()
}
