package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/server"
)

// Default tracer name.
const defaultTracerName = "livehooks"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "livehooks").
	TracerName string

	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Filter determines which events to trace. If nil, all events are
	// traced.
	Filter func(ev server.Event) bool

	// AttributeExtractor adds attributes from the event payload.
	AttributeExtractor func(ev server.Event, p hooks.Payload) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(ev server.Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ev server.Event, p hooks.Payload) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every handled event.
//
// The span is named "livehooks.event <name>" and carries the event
// name, session id and sequence number. Errors are recorded with their
// code in livehooks.error_code.
func OpenTelemetry(opts ...OTelOption) server.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	tracer := config.TracerProvider.Tracer(config.TracerName)

	return func(next server.HandlerFunc) server.HandlerFunc {
		return func(ctx context.Context, s *server.Session, p hooks.Payload) error {
			ev, ok := server.EventFromContext(ctx)
			if !ok || (config.Filter != nil && !config.Filter(ev)) {
				return next(ctx, s, p)
			}

			attrs := []attribute.KeyValue{
				attribute.String("livehooks.event", ev.Name),
				attribute.String("livehooks.session_id", ev.SessionID),
				attribute.Int64("livehooks.seq", int64(ev.Seq)),
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ev, p)...)
			}

			ctx, span := tracer.Start(ctx, "livehooks.event "+ev.Name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := next(ctx, s, p)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				if code := errors.CodeOf(err); code != "" {
					span.SetAttributes(attribute.String("livehooks.error_code", code))
				}
				return err
			}
			span.SetStatus(codes.Ok, "")
			return nil
		}
	}
}
