package scenario

import (
	"context"
	"sync"

	"github.com/vango-dev/livehooks/pkg/channel"
)

// tap sits between the View and the real channel. It records traffic in
// both directions and can inject server pushes locally.
type tap struct {
	inner channel.Channel

	mu       sync.Mutex
	subs     []channel.Handler
	pushed   []channel.Message
	received []channel.Message
	notify   chan struct{}

	unsubscribe func()
}

func newTap(inner channel.Channel) *tap {
	t := &tap{inner: inner, notify: make(chan struct{})}
	t.unsubscribe = inner.Subscribe(t.receive)
	return t
}

func (t *tap) Push(ctx context.Context, event string, payload map[string]any) error {
	t.mu.Lock()
	t.pushed = append(t.pushed, channel.Message{Event: event, Payload: payload})
	t.mu.Unlock()
	return t.inner.Push(ctx, event, payload)
}

func (t *tap) Subscribe(fn channel.Handler) func() {
	t.mu.Lock()
	t.subs = append(t.subs, fn)
	idx := len(t.subs) - 1
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.subs[idx] = nil
		t.mu.Unlock()
	}
}

// receive fans an inbound push out before recording it, so a waiter that
// sees the record finds the delivery already posted.
func (t *tap) receive(event string, payload map[string]any) {
	t.deliver(event, payload)

	t.mu.Lock()
	t.received = append(t.received, channel.Message{Event: event, Payload: payload})
	close(t.notify)
	t.notify = make(chan struct{})
	t.mu.Unlock()
}

func (t *tap) deliver(event string, payload map[string]any) {
	t.mu.Lock()
	subs := append([]channel.Handler(nil), t.subs...)
	t.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(event, payload)
		}
	}
}

// named returns the recorded pushes of event.
func (t *tap) named(event string) []channel.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []channel.Message
	for _, m := range t.pushed {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// arrived returns how many pushes of event were received and a channel
// closed on the next arrival.
func (t *tap) arrived(event string) (int, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, m := range t.received {
		if m.Event == event {
			n++
		}
	}
	return n, t.notify
}

func (t *tap) snapshot() (pushed, received []channel.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]channel.Message(nil), t.pushed...), append([]channel.Message(nil), t.received...)
}

func (t *tap) close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}
