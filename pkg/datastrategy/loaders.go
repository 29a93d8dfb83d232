package datastrategy

import (
	"context"
	"net/http"

	"github.com/vango-dev/waypoint/pkg/router"
)

// LoaderOutcome holds the results of a RunLoaders call.
type LoaderOutcome struct {
	// Results are keyed by route ID.
	Results map[string]Result

	// Redirect is set when a loader redirected; Results is then partial
	// and the remaining loaders were cancelled.
	Redirect        *router.RedirectError
	RedirectRouteID string
}

// RunLoaders runs the loaders of toLoad concurrently. matches is the
// full match the routes belong to; route middleware is taken from it.
// It returns ctx.Err() if ctx is cancelled before every loader reported.
func (e *Executor) RunLoaders(ctx context.Context, req *http.Request, matches []router.Match, toLoad []router.Match, opts ...CallOption) (*LoaderOutcome, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	index := make(map[string]int, len(matches))
	for i, m := range matches {
		index[m.Route.ID] = i
	}

	type done struct {
		id       string
		res      Result
		redirect *router.RedirectError
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan done, len(toLoad))
	pending := 0
	for _, m := range toLoad {
		i, ok := index[m.Route.ID]
		if !ok || matches[i].Route.Loader == nil {
			continue
		}
		pending++
		go func(i int) {
			route := matches[i].Route
			res, redirect := e.invoke(runCtx, router.KindLoader, req, matches, i, route.Loader, co)
			results <- done{id: route.ID, res: res, redirect: redirect}
		}(i)
	}

	out := &LoaderOutcome{Results: make(map[string]Result, pending)}
	for ; pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d := <-results:
			if d.redirect != nil {
				out.Redirect = d.redirect
				out.RedirectRouteID = d.id
				return out, nil
			}
			out.Results[d.id] = d.res
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
