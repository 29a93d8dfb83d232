package router

import "context"

// Kind distinguishes loader from action invocations.
type Kind int

const (
	KindLoader Kind = iota
	KindAction
)

// String returns "loader" or "action".
func (k Kind) String() string {
	if k == KindAction {
		return "action"
	}
	return "loader"
}

// Invocation describes a single loader or action call.
type Invocation struct {
	Kind  Kind
	Route *Route
	Args  Args

	// FetcherKey is set when the call belongs to a fetcher.
	FetcherKey string
}

// RouteID returns the invoked route's ID.
func (inv *Invocation) RouteID() string {
	if inv.Route == nil {
		return ""
	}
	return inv.Route.ID
}

// Next continues the middleware chain.
type Next func(ctx context.Context) (any, error)

// Middleware wraps loader and action invocations.
type Middleware interface {
	// Handle processes the invocation and usually calls next.
	// Returning without calling next short-circuits the call with the
	// returned data and error.
	Handle(ctx context.Context, inv *Invocation, next Next) (any, error)
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, inv *Invocation, next Next) (any, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, inv *Invocation, next Next) (any, error) {
	return f(ctx, inv, next)
}

// ComposeMiddleware runs handler through mw, first to last.
func ComposeMiddleware(ctx context.Context, inv *Invocation, mw []Middleware, handler Next) (any, error) {
	if len(mw) == 0 {
		return handler(ctx)
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func(ctx context.Context) (any, error) {
			return m.Handle(ctx, inv, next)
		}
	}
	return chain(ctx)
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, inv *Invocation, next Next) (any, error) {
		return ComposeMiddleware(ctx, inv, middleware, next)
	})
}

// Skip bypasses mw when condition is true.
func Skip(condition func(inv *Invocation) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, inv *Invocation, next Next) (any, error) {
		if condition(inv) {
			return next(ctx)
		}
		return mw.Handle(ctx, inv, next)
	})
}

// Only runs mw only when condition is true.
func Only(condition func(inv *Invocation) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, inv *Invocation, next Next) (any, error) {
		if !condition(inv) {
			return next(ctx)
		}
		return mw.Handle(ctx, inv, next)
	})
}

// RouteMiddleware collects the route middleware of a match, root first.
func RouteMiddleware(matches []Match) []Middleware {
	var mw []Middleware
	for _, m := range matches {
		if m.Route != nil {
			mw = append(mw, m.Route.Middleware...)
		}
	}
	return mw
}
