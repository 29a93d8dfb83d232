package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/router"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "waypoint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "waypoint",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the router's Prometheus collectors.
type Metrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	callErrors    *prometheus.CounterVec
	navTotal      *prometheus.CounterVec
	navDuration   *prometheus.HistogramVec
	navInFlight   prometheus.Gauge
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheSize     prometheus.Gauge
}

var _ navigation.NavigationMetrics = (*Metrics)(nil)

// NewMetrics registers the collectors with the configured registry.
// Registering twice with the same registry panics; use Prometheus for a
// process-wide instance.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_calls_total",
			Help:        "Total number of loader and action calls",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "route", "status"}),

		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_duration_seconds",
			Help:        "Loader and action duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind", "route"}),

		callErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_errors_total",
			Help:        "Total number of loader and action errors",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "route", "error_type"}),

		navTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigations by history action and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"action", "outcome"}),

		navDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"action"}),

		navInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_in_flight",
			Help:        "Number of navigations currently running",
			ConstLabels: config.ConstLabels,
		}),

		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_total",
			Help:        "Total number of fetcher loads and submissions",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Fetcher duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		cacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "match_cache_entries",
			Help:        "Number of pathnames held by the match cache",
			ConstLabels: config.ConstLabels,
		}),
	}
}

var (
	globalMetrics   *Metrics
	globalMetricsMu sync.Mutex
)

// Prometheus returns loader and action middleware backed by a
// process-wide Metrics, created on first use with opts.
func Prometheus(opts ...MetricsOption) router.Middleware {
	return defaultMetrics(opts...).Middleware()
}

// GetMetrics returns the process-wide Metrics, or nil before the first
// call to Prometheus.
func GetMetrics() *Metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

func defaultMetrics(opts ...MetricsOption) *Metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMetrics(opts...)
	}
	return globalMetrics
}

// Middleware instruments loader and action calls.
//
// Metrics collected:
//   - waypoint_handler_calls_total: calls by kind, route and status
//   - waypoint_handler_duration_seconds: call duration
//   - waypoint_handler_errors_total: errors by kind, route and error type
func (m *Metrics) Middleware() router.Middleware {
	return router.MiddlewareFunc(func(ctx context.Context, inv *router.Invocation, next router.Next) (any, error) {
		kind := inv.Kind.String()
		route := inv.RouteID()

		start := time.Now()
		data, err := next(ctx)
		m.callDuration.WithLabelValues(kind, route).Observe(time.Since(start).Seconds())

		status := "success"
		if _, ok := router.AsRedirect(data, err); ok {
			status = "redirect"
		} else if err != nil {
			status = "error"
			m.callErrors.WithLabelValues(kind, route, categorizeError(err)).Inc()
		}
		m.callsTotal.WithLabelValues(kind, route, status).Inc()

		return data, err
	})
}

// NavigationStarted implements navigation.NavigationMetrics.
func (m *Metrics) NavigationStarted(history.Action) {
	m.navInFlight.Inc()
}

// NavigationFinished implements navigation.NavigationMetrics. Blocked
// navigations never start, so they don't touch the in-flight gauge.
func (m *Metrics) NavigationFinished(action history.Action, outcome string, d time.Duration) {
	if outcome != navigation.OutcomeBlocked {
		m.navInFlight.Dec()
	}
	m.navTotal.WithLabelValues(string(action), outcome).Inc()
	m.navDuration.WithLabelValues(string(action)).Observe(d.Seconds())
}

// FetcherFinished implements navigation.NavigationMetrics.
func (m *Metrics) FetcherFinished(kind, outcome string, d time.Duration) {
	m.fetchTotal.WithLabelValues(kind, outcome).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCacheSize records the number of entries in a match cache.
func (m *Metrics) RecordCacheSize(n int) {
	m.cacheSize.Set(float64(n))
}

// categorizeError keeps the error_type label low-cardinality.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	if _, ok := router.IsErrorResponse(err); !ok {
		return "internal"
	}
	switch status := router.StatusOf(err); {
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status >= 400 && status < 500:
		return "client_error"
	default:
		return "internal"
	}
}
