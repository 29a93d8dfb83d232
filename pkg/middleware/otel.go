package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/waypoint/pkg/router"
)

const defaultTracerName = "waypoint"

// OTelConfig configures the tracing middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "waypoint").
	TracerName string

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// IncludeParams records route params as span attributes.
	// Params may contain identifiers; disabled by default.
	IncludeParams bool

	// Filter determines which calls to trace. If nil, all are traced.
	Filter func(inv *router.Invocation) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(inv *router.Invocation) []attribute.KeyValue
}

// OTelOption configures the tracing middleware.
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

// WithIncludeParams enables recording route params.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithFilter sets a filter function for calls.
func WithFilter(filter func(inv *router.Invocation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(inv *router.Invocation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that starts a span for every loader and
// action call. The call runs with the span's context.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return router.MiddlewareFunc(func(ctx context.Context, inv *router.Invocation, next router.Next) (any, error) {
		if config.Filter != nil && !config.Filter(inv) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("waypoint.kind", inv.Kind.String()),
			attribute.String("waypoint.route_id", inv.RouteID()),
		}
		if inv.Route != nil && inv.Route.Path != "" {
			attrs = append(attrs, attribute.String("waypoint.route_path", inv.Route.Path))
		}
		if req := inv.Args.Request; req != nil {
			attrs = append(attrs,
				attribute.String("waypoint.path", req.URL.Path),
				attribute.String("waypoint.method", req.Method),
			)
		}
		if inv.FetcherKey != "" {
			attrs = append(attrs, attribute.String("waypoint.fetcher_key", inv.FetcherKey))
		}
		if config.IncludeParams {
			for k, v := range inv.Args.Params {
				attrs = append(attrs, attribute.String("waypoint.param."+k, v))
			}
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(inv)...)
		}

		spanCtx, span := tracer.Start(ctx, spanName(inv),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		data, err := next(spanCtx)

		if rd, ok := router.AsRedirect(data, err); ok {
			span.SetAttributes(
				attribute.String("waypoint.redirect", rd.Location),
				attribute.Int("waypoint.status", rd.Status),
			)
			span.SetStatus(codes.Ok, "")
			return data, err
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Int("waypoint.status", router.StatusOf(err)))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return data, err
	})
}

func spanName(inv *router.Invocation) string {
	return fmt.Sprintf("waypoint.%s %s", inv.Kind, inv.RouteID())
}
