package datastrategy

import (
	"context"
	"net/http"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Snapshot is the committed state a navigation starts from.
type Snapshot struct {
	Matches    []router.Match
	Href       string
	LoaderData map[string]any
}

// Navigation is one run of the data pipeline.
type Navigation struct {
	// Href is the target URL (pathname, search; the hash is ignored).
	Href    string
	Matches []router.Match

	// Submission, when mutating, runs the target action first.
	Submission *Submission

	Current         Snapshot
	ForceRevalidate bool

	// ActionSettled is called after the action settled without a
	// redirect, before any loader starts.
	ActionSettled func()
}

// Outcome is what Execute produced.
type Outcome struct {
	// ActionRouteID and ActionData are set when an action ran.
	ActionRouteID string
	ActionData    map[string]any

	// LoaderData holds data of loaders that ran and succeeded.
	LoaderData map[string]any

	// Errors are keyed by the boundary route that renders them.
	Errors map[string]error

	// Loaded lists the routes whose loaders ran, in match order.
	Loaded []string

	Redirect   *router.RedirectError
	StatusCode int

	// Headers from *router.Response results, by route ID.
	Headers map[string]http.Header
}

func newOutcome() *Outcome {
	return &Outcome{
		LoaderData: make(map[string]any),
		Errors:     make(map[string]error),
		Headers:    make(map[string]http.Header),
		StatusCode: http.StatusOK,
	}
}

// Execute runs the action (for mutating submissions) and then the
// loaders chosen by MatchesToLoad.
func (e *Executor) Execute(ctx context.Context, nav Navigation) (*Outcome, error) {
	out := newOutcome()
	in := RevalidationInput{
		CurrentMatches:  nav.Current.Matches,
		CurrentHref:     nav.Current.Href,
		NextMatches:     nav.Matches,
		NextHref:        nav.Href,
		LoaderData:      nav.Current.LoaderData,
		Submission:      nav.Submission,
		ForceRevalidate: nav.ForceRevalidate,
	}

	if nav.Submission.IsMutation() {
		req, err := NewRequest(ctx, e.origin, nav.Href, nav.Submission)
		if err != nil {
			return nil, err
		}
		action, err := e.RunAction(ctx, req, nav.Matches)
		if err != nil {
			return nil, err
		}
		out.ActionRouteID = action.RouteID

		if action.Redirect != nil {
			e.logger.Debug("action redirect", "route", action.RouteID, "to", action.Redirect.Location)
			out.Redirect = action.Redirect
			out.StatusCode = action.Redirect.Status
			return out, nil
		}

		if action.Result.Headers != nil {
			out.Headers[action.RouteID] = action.Result.Headers
		}
		if err := action.Result.Err; err != nil {
			boundary, ok := FindBoundary(nav.Matches, action.RouteID)
			if !ok {
				return nil, &UnhandledError{RouteID: action.RouteID, Err: err}
			}
			out.Errors[boundary] = err
			in.ActionError = err
			in.ActionErrorBoundary = boundary
		} else {
			out.ActionData = map[string]any{action.RouteID: action.Result.Data}
			in.ActionResult = action.Result.Data
		}
		out.StatusCode = action.Result.Status
		if nav.ActionSettled != nil {
			nav.ActionSettled()
		}
	}

	toLoad := MatchesToLoad(in)
	if len(toLoad) == 0 {
		return out, nil
	}

	req, err := NewRequest(ctx, e.origin, nav.Href, nil)
	if err != nil {
		return nil, err
	}
	loaded, err := e.RunLoaders(ctx, req, nav.Matches, toLoad)
	if err != nil {
		return nil, err
	}
	if loaded.Redirect != nil {
		e.logger.Debug("loader redirect", "route", loaded.RedirectRouteID, "to", loaded.Redirect.Location)
		out.Redirect = loaded.Redirect
		out.StatusCode = loaded.Redirect.Status
		return out, nil
	}

	for _, m := range toLoad {
		id := m.Route.ID
		res, ok := loaded.Results[id]
		if !ok {
			continue
		}
		out.Loaded = append(out.Loaded, id)
		if res.Headers != nil {
			out.Headers[id] = res.Headers
		}
		if res.Err == nil {
			out.LoaderData[id] = res.Data
			continue
		}

		boundary, ok := FindBoundary(nav.Matches, id)
		if !ok {
			return nil, &UnhandledError{RouteID: id, Err: res.Err}
		}
		if _, exists := out.Errors[boundary]; !exists {
			out.Errors[boundary] = res.Err
		}
		if out.StatusCode < http.StatusBadRequest {
			out.StatusCode = res.Status
		}
	}
	return out, nil
}

// MergeLoaderData combines current data with an outcome for matches.
// Routes that didn't reload keep their data; routes that reloaded and
// failed lose it; nothing below a route holding an error keeps data.
func MergeLoaderData(current map[string]any, out *Outcome, matches []router.Match) map[string]any {
	loaded := make(map[string]bool, len(out.Loaded))
	for _, id := range out.Loaded {
		loaded[id] = true
	}

	merged := make(map[string]any, len(matches))
	for _, m := range matches {
		id := m.Route.ID
		if v, ok := out.LoaderData[id]; ok {
			merged[id] = v
		} else if v, ok := current[id]; ok && !loaded[id] {
			merged[id] = v
		}
		if _, ok := out.Errors[id]; ok {
			break
		}
	}
	return merged
}

// LoadFetcher runs the loader of the route a fetcher targets.
func (e *Executor) LoadFetcher(ctx context.Context, key, href string, matches []router.Match) (Result, *router.RedirectError, error) {
	target, ok := TargetMatch(matches, routepath.Parse(href).Search)
	if !ok {
		return Result{}, nil, ErrNoMatches
	}
	if target.Route.Loader == nil {
		return Result{Status: http.StatusOK}, nil, nil
	}

	req, err := NewRequest(ctx, e.origin, href, nil)
	if err != nil {
		return Result{}, nil, err
	}
	out, err := e.RunLoaders(ctx, req, matches, []router.Match{target}, ForFetcher(key))
	if err != nil {
		return Result{}, nil, err
	}
	if out.Redirect != nil {
		return Result{}, out.Redirect, nil
	}
	return out.Results[target.Route.ID], nil, nil
}

// SubmitFetcher runs the action a fetcher submission targets.
func (e *Executor) SubmitFetcher(ctx context.Context, key, href string, matches []router.Match, sub *Submission) (*ActionOutcome, error) {
	req, err := NewRequest(ctx, e.origin, href, sub)
	if err != nil {
		return nil, err
	}
	return e.RunAction(ctx, req, matches, ForFetcher(key))
}
