package hooks

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Loop is a serialized task queue. Post may be called from any goroutine;
// tasks run one at a time on the goroutine calling Run or Flush.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop. A nil logger uses slog.Default().
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger.With("component", "loop"),
	}
}

// Post queues fn.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Flush runs queued tasks, including ones posted while flushing, until the
// queue is empty. It returns the number of tasks run.
func (l *Loop) Flush() int {
	n := 0
	for {
		fn := l.next()
		if fn == nil {
			return n
		}
		l.run(fn)
		n++
	}
}

// Run processes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Flush()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
