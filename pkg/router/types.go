package router

import (
	"context"
	"net/http"
	"net/url"
)

// Route is an author-supplied route definition. Routes form a strict
// tree through Children; NewTree copies the tree so the caller's values
// are never modified.
type Route struct {
	// ID uniquely identifies the route. When empty, NewTree assigns one
	// from the route's position ("0", "0-1", ...).
	ID string

	// Path is the path template relative to the parent route. An empty
	// Path on a non-index route makes it a pathless layout route.
	Path string

	// Index marks the route rendered when its parent matches exactly.
	// Index routes cannot have a Path or Children.
	Index bool

	// CaseSensitive makes the route's static segments match exactly.
	CaseSensitive bool

	// Strict makes the route distinguish a trailing slash when it ends
	// a match.
	Strict bool

	// Children are nested routes, matched against the remainder of the
	// pathname after this route's path.
	Children []Route

	// Loader reads the route's data on navigation.
	Loader LoaderFunc

	// Action performs the route's mutation on submission.
	Action ActionFunc

	// ShouldRevalidate lets the route opt out of re-running its loader.
	ShouldRevalidate ShouldRevalidateFunc

	// ErrorBoundary marks the route as able to render errors thrown by
	// itself or its descendants.
	ErrorBoundary bool

	// Middleware wraps loader and action calls of this route and its
	// descendants.
	Middleware []Middleware

	// ParamTypes constrains dynamic segments: "int", "uint", "uuid" or
	// "string". A branch whose values don't validate does not match.
	ParamTypes map[string]string

	// Handle is arbitrary application metadata carried through matches.
	Handle any
}

// IsPathless reports whether the route is a pathless layout route.
func (r *Route) IsPathless() bool {
	return r.Path == "" && !r.Index
}

// Args is passed to loaders and actions.
type Args struct {
	// Request describes the navigation or submission. Its context is
	// cancelled when the navigation is superseded.
	Request *http.Request

	// Params are the merged params of the whole match.
	Params Params

	// RouteID is the ID of the route being invoked.
	RouteID string

	// Context is the application value supplied to the router.
	Context any
}

// LoaderFunc loads data for a route.
type LoaderFunc func(ctx context.Context, args Args) (any, error)

// ActionFunc handles a submission for a route.
type ActionFunc func(ctx context.Context, args Args) (any, error)

// ShouldRevalidateArgs describes the transition a loader may skip.
type ShouldRevalidateArgs struct {
	CurrentURL    *url.URL
	NextURL       *url.URL
	CurrentParams Params
	NextParams    Params

	// FormMethod is set when the transition follows a submission.
	FormMethod string

	// ActionResult and ActionError carry the submission's outcome.
	ActionResult any
	ActionError  error

	// DefaultShouldRevalidate is what the router would do on its own.
	DefaultShouldRevalidate bool
}

// ShouldRevalidateFunc decides whether an already-loaded route reloads.
type ShouldRevalidateFunc func(args ShouldRevalidateArgs) bool

// Match is one level of a matched branch.
type Match struct {
	// Route is the matched route (the tree's immutable copy).
	Route *Route

	// Params are the params of the whole match, not just this level.
	Params Params

	// Pathname is the portion of the pathname matched through this level.
	Pathname string

	// PathnameBase is Pathname without a splat value; children match
	// after it.
	PathnameBase string
}

// RouteID returns the matched route's ID.
func (m Match) RouteID() string {
	if m.Route == nil {
		return ""
	}
	return m.Route.ID
}

// Leaf returns the last match, or false for an empty slice.
func Leaf(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[len(matches)-1], true
}

func cloneMatches(in []Match) []Match {
	if in == nil {
		return nil
	}
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = m
		out[i].Params = m.Params.Clone()
	}
	return out
}
