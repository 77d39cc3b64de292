package server

import "context"

// Middleware wraps every event handler.
type Middleware func(next HandlerFunc) HandlerFunc

// Event describes the inbound event a handler is serving.
type Event struct {
	Name      string
	Seq       uint64
	SessionID string
}

type eventKey struct{}

// WithEvent returns a copy of ctx carrying ev.
func WithEvent(ctx context.Context, ev Event) context.Context {
	return context.WithValue(ctx, eventKey{}, ev)
}

// EventFromContext returns the event carried by a handler's context.
func EventFromContext(ctx context.Context) (Event, bool) {
	ev, ok := ctx.Value(eventKey{}).(Event)
	return ev, ok
}

// Use appends middleware. The first middleware added is the outermost.
func (s *Server) Use(mw ...Middleware) {
	s.handlersMu.Lock()
	s.middleware = append(s.middleware, mw...)
	s.handlersMu.Unlock()
}

func (s *Server) wrap(fn HandlerFunc) HandlerFunc {
	s.handlersMu.RLock()
	mws := s.middleware
	s.handlersMu.RUnlock()
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}
