// Package channel provides the remote sync channel between hooks and the
// server: named events pushed by hooks, named events pushed back by the
// server.
package channel

import (
	"context"
)

// Handler receives a server-pushed event.
type Handler func(event string, payload map[string]any)

// Channel is a bidirectional named-event channel.
//
// Push delivers an event to the server. Implementations must not block
// indefinitely; callers treat pushes as fire-and-forget.
//
// Subscribe registers fn for every server-pushed event. fn may be called
// from any goroutine.
type Channel interface {
	Push(ctx context.Context, event string, payload map[string]any) error
	Subscribe(fn Handler) (unsubscribe func())
}

// Message is one named event with its payload.
type Message struct {
	Event   string         `yaml:"event" json:"event"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// subscribers is a copy-on-write list of handlers shared by the
// implementations in this package.
type subscribers struct {
	list []*subscriber
}

type subscriber struct {
	fn Handler
}

func (s *subscribers) add(fn Handler) *subscriber {
	sub := &subscriber{fn: fn}
	s.list = append(s.list[:len(s.list):len(s.list)], sub)
	return sub
}

func (s *subscribers) remove(sub *subscriber) {
	for i, cur := range s.list {
		if cur == sub {
			next := make([]*subscriber, 0, len(s.list)-1)
			next = append(next, s.list[:i]...)
			s.list = append(next, s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) snapshot() []*subscriber {
	return s.list
}
