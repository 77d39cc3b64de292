package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/server"
)

// Logging logs every handled event at debug level with its duration.
func Logging(logger *slog.Logger) server.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "handler")

	return func(next server.HandlerFunc) server.HandlerFunc {
		return func(ctx context.Context, s *server.Session, p hooks.Payload) error {
			start := time.Now()
			err := next(ctx, s, p)

			ev, _ := server.EventFromContext(ctx)
			attrs := []any{"event", ev.Name, "session", ev.SessionID, "duration", time.Since(start)}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("event handled", attrs...)
			return err
		}
	}
}

// Timeout bounds each handler's context to d.
func Timeout(d time.Duration) server.Middleware {
	return func(next server.HandlerFunc) server.HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, s *server.Session, p hooks.Payload) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, s, p)
		}
	}
}
