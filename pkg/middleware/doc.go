// Package middleware provides event handler middleware for the sync
// server.
//
// This package includes:
//   - OpenTelemetry tracing, one span per handled event
//   - Prometheus metrics for handler errors by code and in-flight handlers
//   - Logging and Timeout
//
// # OpenTelemetry Middleware
//
//	srv := server.New(cfg)
//	srv.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithEventFilter(func(ev server.Event) bool {
//	        return ev.Name != "handle_district_change"
//	    }),
//	))
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Handlers receive the span in their context, so outbound calls
// made with it join the trace:
//
//	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
//
// # Prometheus Metrics
//
// The server already counts events by name and status. Prometheus adds:
//   - livehooks_handler_errors_total: handler errors by event and error code
//   - livehooks_handlers_in_flight: handlers currently running
//
//	srv.Use(middleware.Prometheus(middleware.WithRegistry(srv.Registry())))
package middleware
