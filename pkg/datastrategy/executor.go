package datastrategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/vango-dev/waypoint/pkg/router"
)

// DefaultOrigin prefixes hrefs when building loader requests.
const DefaultOrigin = "http://localhost"

// Executor runs loaders and actions. It is safe for concurrent use.
type Executor struct {
	logger     *slog.Logger
	middleware []router.Middleware
	appContext any
	origin     string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMiddleware appends global middleware, run outside route middleware.
func WithMiddleware(mw ...router.Middleware) Option {
	return func(e *Executor) {
		e.middleware = append(e.middleware, mw...)
	}
}

// WithContext sets the value passed as router.Args.Context.
func WithContext(v any) Option {
	return func(e *Executor) {
		e.appContext = v
	}
}

// WithOrigin sets the scheme and host of loader requests.
func WithOrigin(origin string) Option {
	return func(e *Executor) {
		e.origin = origin
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger: slog.Default(),
		origin: DefaultOrigin,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Origin returns the configured request origin.
func (e *Executor) Origin() string { return e.origin }

// Result is the outcome of one loader or action call.
type Result struct {
	Data    any
	Err     error
	Status  int
	Headers http.Header
}

// callOptions apply to a single RunLoaders or RunAction call.
type callOptions struct {
	fetcherKey string
}

// CallOption configures a single run.
type CallOption func(*callOptions)

// ForFetcher marks the invocations as belonging to fetcher key.
func ForFetcher(key string) CallOption {
	return func(o *callOptions) {
		o.fetcherKey = key
	}
}

// invoke runs fn for match i through the middleware chain, turning
// panics into errors and *router.Response values into a Result.
func (e *Executor) invoke(ctx context.Context, kind router.Kind, req *http.Request, matches []router.Match, i int, fn func(context.Context, router.Args) (any, error), co callOptions) (res Result, redirect *router.RedirectError) {
	m := matches[i]
	inv := &router.Invocation{
		Kind:  kind,
		Route: m.Route,
		Args: router.Args{
			Request: req.WithContext(ctx),
			Params:  m.Params.Clone(),
			RouteID: m.Route.ID,
			Context: e.appContext,
		},
		FetcherKey: co.fetcherKey,
	}

	mw := make([]router.Middleware, 0, len(e.middleware))
	mw = append(mw, e.middleware...)
	mw = append(mw, router.RouteMiddleware(matches[:i+1])...)

	start := time.Now()
	data, err := func() (data any, err error) {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error(kind.String()+" panic",
					"panic", r,
					"route", m.Route.ID,
					"stack", string(debug.Stack()))
				err = fmt.Errorf("%s %s panicked: %v", kind, m.Route.ID, r)
			}
		}()
		return router.ComposeMiddleware(ctx, inv, mw, func(ctx context.Context) (any, error) {
			inv.Args.Request = inv.Args.Request.WithContext(ctx)
			return fn(ctx, inv.Args)
		})
	}()

	e.logger.Debug(kind.String()+" complete",
		"route", m.Route.ID,
		"duration", time.Since(start),
		"error", err)

	if r, ok := router.AsRedirect(data, err); ok {
		return Result{Status: r.Status}, r
	}

	res = Result{Data: router.UnwrapData(data), Err: err, Status: http.StatusOK}
	if resp, ok := data.(*router.Response); ok && resp != nil {
		if resp.Status != 0 {
			res.Status = resp.Status
		}
		res.Headers = resp.Header
	}
	if err != nil {
		res.Data = nil
		res.Status = router.StatusOf(err)
	}
	return res, nil
}
