// Package middleware provides loader and action middleware for waypoint
// routers, plus a Prometheus implementation of navigation.NavigationMetrics.
//
// # Prometheus Metrics
//
// NewMetrics registers the collectors once; its Middleware method
// instruments every loader and action call:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("shop"))
//	r, err := navigation.New(navigation.Config{
//	    Routes:     routes,
//	    Middleware: []router.Middleware{m.Middleware()},
//	    Metrics:    m,
//	})
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// OpenTelemetry starts a span around each call. Loaders receive the span's
// context, so outgoing requests made with it join the trace:
//
//	middleware.OpenTelemetry(middleware.WithTracerName("shop"))
//
// # Logging and timeouts
//
// Logging writes one slog record per call. Timeout bounds each call's
// context.
package middleware
