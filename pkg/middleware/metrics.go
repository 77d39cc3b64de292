package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/server"
)

// uncodedError labels handler errors that carry no code.
const uncodedError = "none"

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "livehooks").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry, usually server.Registry().
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Prometheus creates middleware counting handler errors by event and
// error code, and the handlers in flight. Error codes keep label
// cardinality bounded; errors without a code count as "none".
func Prometheus(opts ...MetricsOption) server.Middleware {
	config := MetricsConfig{
		Namespace: "livehooks",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	handlerErrors := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "handler_errors_total",
		Help:        "Handler errors by event and error code.",
		ConstLabels: config.ConstLabels,
	}, []string{"event", "code"})

	inFlight := factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Name:        "handlers_in_flight",
		Help:        "Event handlers currently running.",
		ConstLabels: config.ConstLabels,
	})

	return func(next server.HandlerFunc) server.HandlerFunc {
		return func(ctx context.Context, s *server.Session, p hooks.Payload) error {
			inFlight.Inc()
			defer inFlight.Dec()

			err := next(ctx, s, p)
			if err != nil {
				ev, _ := server.EventFromContext(ctx)
				code := errors.CodeOf(err)
				if code == "" {
					code = uncodedError
				}
				handlerErrors.WithLabelValues(ev.Name, code).Inc()
			}
			return err
		}
	}
}
