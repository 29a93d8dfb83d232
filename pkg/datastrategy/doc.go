// Package datastrategy runs route loaders and actions for a match.
//
// An Executor is stateless apart from its options; the navigation
// state machine hands it the current and next matches and gets back an
// Outcome describing what loaded, what failed and where each error
// should render.
//
// # Phases
//
// A submission (non-GET Submission) first runs the target route's action.
// A redirect from the action ends execution. Otherwise loaders are
// chosen by MatchesToLoad and run concurrently:
//
//	exec := datastrategy.New(datastrategy.WithLogger(logger))
//	out, err := exec.Execute(ctx, datastrategy.Navigation{
//	    Href:    "/users/42",
//	    Matches: tree.Match("/users/42"),
//	    Current: snapshot,
//	})
//
// # Errors
//
// Loader and action errors, including panics, are attributed to the
// nearest ancestor-or-self route with ErrorBoundary set. An error with
// no boundary is returned from Execute as an *UnhandledError. A
// cancelled context makes Execute return the context's error and
// discard everything that finished.
package datastrategy
