package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/waypoint/pkg/router"
)

// Logging logs each loader and action call. Successful calls log at
// debug, failures at warn.
func Logging(logger *slog.Logger) router.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return router.MiddlewareFunc(func(ctx context.Context, inv *router.Invocation, next router.Next) (any, error) {
		start := time.Now()
		data, err := next(ctx)

		attrs := []any{
			"kind", inv.Kind.String(),
			"route", inv.RouteID(),
			"duration", time.Since(start),
		}
		if inv.FetcherKey != "" {
			attrs = append(attrs, "fetcher", inv.FetcherKey)
		}

		if rd, ok := router.AsRedirect(data, err); ok {
			logger.Debug("handler redirected", append(attrs, "to", rd.Location, "status", rd.Status)...)
		} else if err != nil {
			logger.Warn("handler failed", append(attrs, "error", err, "status", router.StatusOf(err))...)
		} else {
			logger.Debug("handler complete", attrs...)
		}
		return data, err
	})
}

// Timeout bounds each call's context by d.
func Timeout(d time.Duration) router.Middleware {
	return router.MiddlewareFunc(func(ctx context.Context, _ *router.Invocation, next router.Next) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	})
}
