// Package router defines nested route trees and matches pathnames against them.
//
// A route tree is a slice of Route values, each optionally carrying children:
//
//	routes := []router.Route{{
//	    Path: "/",
//	    ErrorBoundary: true,
//	    Children: []router.Route{
//	        {Index: true, ID: "home"},
//	        {Path: "users/:id", ID: "user", Loader: loadUser},
//	        {Path: "files/*", ID: "files"},
//	    },
//	}}
//
//	tree, err := router.NewTree(routes)
//	matches := tree.Match("/users/42")
//	// matches[0].Route is the root layout, matches[1].Route.ID == "user",
//	// matches[1].Params["id"] == "42"
//
// # Matching
//
// NewTree validates the definitions, compiles every path template once
// (see package pattern) and flattens the tree into ranked branches, one
// per route that can end a match. Match walks the ranked branches and
// returns the first one that consumes the whole pathname, so the most
// specific route always wins:
//   - static segments beat dynamic segments, which beat splats
//   - an index route beats an empty-path sibling for its parent's path
//   - remaining ties go to the route declared first
//
// Matching is pure: the same tree and pathname always produce the same
// result, which is what makes MatchCache safe.
//
// # Loaders and Actions
//
// Routes carry optional Loader and Action functions. They receive an
// *http.Request describing the navigation and return data, an error,
// a redirect (see Redirect) or a *Response. Package datastrategy decides
// when they run; package navigation sequences them around history.
//
// # Middleware
//
// Middleware wraps each loader or action invocation. Global middleware is
// supplied to the executor; route middleware applies to the route and
// all of its descendants, outermost (root) first.
package router
