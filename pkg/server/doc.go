// Package server is the sync server behind the hook runtime.
//
// Every WebSocket connection on the live path becomes a Session. Event
// frames from the page are decoded and dispatched to the HandlerFunc
// registered for the event name; handlers answer with Session.Push.
//
//	srv := server.New(server.DefaultConfig())
//	srv.Handle("handle_province_change", func(ctx context.Context, s *server.Session, p hooks.Payload) error {
//	    return s.Push(ctx, "update_cities", map[string]any{"field_id": fieldID, "cities": cities})
//	})
//	http.ListenAndServe(":8080", srv.Router())
//
// Middleware wraps every handler; pkg/middleware provides tracing,
// metrics, logging and timeouts:
//
//	srv.Use(middleware.OpenTelemetry(), middleware.Logging(logger))
//
// The router also serves /healthz, /metrics (Prometheus) and, when an
// upload store is configured, POST /upload.
//
// # Goroutines
//
// Each session runs one read goroutine, which decodes frames and calls
// handlers in arrival order, and one write goroutine, which drains the
// send queue and sends heartbeats. Push never blocks on the network.
package server
