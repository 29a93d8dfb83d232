package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// fetchEntry is an in-flight fetch.
type fetchEntry struct {
	gen    uint64
	cancel context.CancelFunc
}

// fetchLoad remembers a completed load so it can be revalidated.
type fetchLoad struct {
	routeID string
	href    string
}

// Fetch loads (or, with a mutating submission, submits to) href outside
// of navigation. Its state is published under key in State.Fetchers. A
// newer Fetch with the same key supersedes an older one.
//
// href is resolved against the route routeID when set, otherwise
// against the current location.
func (r *Router) Fetch(ctx context.Context, key, routeID, href string, opts ...NavigateOption) error {
	o := buildOptions(opts)

	r.mu.Lock()
	if err := r.usableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	from := ""
	if routeID != "" {
		for _, m := range r.state.Matches {
			if m.Route.ID == routeID {
				from = m.PathnameBase
				break
			}
		}
		if from == "" {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownRoute, routeID)
		}
	} else if app, ok := r.appPathname(r.state.Location.Pathname); ok {
		from = app
	} else {
		from = "/"
	}
	r.mu.Unlock()

	target, err := o.BuildURL(href, from)
	if err != nil {
		return err
	}
	var sub *datastrategy.Submission
	if o.Submission.IsMutation() {
		sub = o.Submission
	}
	return r.fetch(ctx, key, routeID, r.withBasename(target), sub)
}

func (r *Router) fetch(ctx context.Context, key, routeID, full string, sub *datastrategy.Submission) error {
	start := time.Now()
	kind := router.KindLoader
	if sub != nil {
		kind = router.KindAction
	}

	var matches []router.Match
	if app, ok := r.appPathname(routepath.Parse(full).Pathname); ok {
		matches = r.tree.Match(app)
	}

	gen := r.fetchGen.Inc()
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if prev := r.fetchers[key]; prev != nil {
		prev.cancel()
	}
	r.fetchers[key] = &fetchEntry{gen: gen, cancel: cancel}
	phase := Loading
	if sub != nil {
		phase = Submitting
	}
	base := Fetcher{RouteID: routeID, Href: full}
	pending := base
	pending.Phase = phase
	pending.Data = r.state.Fetchers[key].Data
	pending.Submission = sub
	r.state.Fetchers[key] = pending
	r.mu.Unlock()
	r.notify()

	outcome := OutcomeCommitted
	defer func() {
		if r.metrics != nil {
			r.metrics.FetcherFinished(kind.String(), outcome, time.Since(start))
		}
	}()

	finish := func(f Fetcher, loaded bool) bool {
		f.RouteID, f.Href = routeID, full
		return r.finishFetcher(key, gen, f, loaded)
	}

	if matches == nil {
		err := &NoMatchError{Pathname: routepath.Parse(full).Pathname}
		finish(Fetcher{Phase: Idle, Err: err}, false)
		outcome = OutcomeError
		return nil
	}

	if sub == nil {
		res, rd, err := r.exec.LoadFetcher(fctx, key, full, matches)
		if !r.fetcherCurrent(key, gen) {
			outcome = OutcomeSuperseded
			return ErrSuperseded
		}
		switch {
		case err != nil:
			outcome = outcomeOf(err)
			finish(Fetcher{Phase: Idle, Data: pending.Data, Err: err}, false)
			return err
		case rd != nil:
			finish(Fetcher{Phase: Idle, Data: pending.Data}, false)
			return r.fetcherRedirect(ctx, rd)
		}
		if res.Err != nil {
			outcome = OutcomeError
		}
		finish(Fetcher{Phase: Idle, Data: res.Data, Err: res.Err}, res.Err == nil)
		return nil
	}

	ao, err := r.exec.SubmitFetcher(fctx, key, full, matches, sub)
	if !r.fetcherCurrent(key, gen) {
		outcome = OutcomeSuperseded
		return ErrSuperseded
	}
	switch {
	case err != nil:
		outcome = outcomeOf(err)
		finish(Fetcher{Phase: Idle, Data: pending.Data, Err: err}, false)
		return err
	case ao.Redirect != nil:
		finish(Fetcher{Phase: Idle, Data: pending.Data}, false)
		return r.fetcherRedirect(ctx, ao.Redirect)
	case ao.Result.Err != nil:
		outcome = OutcomeError
		finish(Fetcher{Phase: Idle, Data: pending.Data, Err: ao.Result.Err}, false)
		return nil
	}

	// The action result is visible while the page revalidates.
	r.mu.Lock()
	if e := r.fetchers[key]; e != nil && e.gen == gen {
		r.state.Fetchers[key] = Fetcher{Phase: Loading, Data: ao.Result.Data, RouteID: routeID, Href: full}
	}
	r.mu.Unlock()
	r.notify()

	revalErr := r.Revalidate(ctx)
	r.revalidateFetchers(ctx, key)
	finish(Fetcher{Phase: Idle, Data: ao.Result.Data}, false)

	if revalErr != nil && !errors.Is(revalErr, ErrSuperseded) {
		return revalErr
	}
	return nil
}

func (r *Router) fetcherCurrent(key string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.fetchers[key]
	return e != nil && e.gen == gen
}

// finishFetcher publishes f if gen is still the key's latest fetch.
func (r *Router) finishFetcher(key string, gen uint64, f Fetcher, loaded bool) bool {
	r.mu.Lock()
	e := r.fetchers[key]
	if e == nil || e.gen != gen {
		r.mu.Unlock()
		return false
	}
	delete(r.fetchers, key)
	r.state.Fetchers[key] = f
	if loaded {
		r.fetchLoads[key] = fetchLoad{routeID: f.RouteID, href: f.Href}
	}
	r.mu.Unlock()
	r.notify()
	return true
}

// fetcherRedirect turns a fetcher redirect into a navigation.
func (r *Router) fetcherRedirect(ctx context.Context, rd *router.RedirectError) error {
	if rd.ReloadDocument || routepath.IsExternal(rd.Location) {
		return &ExternalRedirectError{Location: rd.Location}
	}

	r.mu.Lock()
	current := r.state.Location
	r.mu.Unlock()

	from, ok := r.appPathname(current.Pathname)
	if !ok {
		from = "/"
	}
	loc := history.NewLocation(r.withBasename(routepath.Resolve(rd.Location, from).String()), nil)
	action := history.Push
	if rd.Replace || current.SameURL(loc) {
		action = history.Replace
	}
	return r.run(ctx, navRequest{action: action, location: loc, redirects: 1})
}

// revalidateFetchers reloads every idle fetcher that has loaded before,
// except skip.
func (r *Router) revalidateFetchers(ctx context.Context, skip string) {
	r.mu.Lock()
	keys := make([]string, 0, len(r.fetchLoads))
	for key := range r.fetchLoads {
		if key == skip || r.fetchers[key] != nil {
			continue
		}
		keys = append(keys, key)
	}
	loads := make(map[string]fetchLoad, len(keys))
	for _, key := range keys {
		loads[key] = r.fetchLoads[key]
	}
	r.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		l := loads[key]
		if err := r.fetch(ctx, key, l.routeID, l.href, nil); err != nil && !errors.Is(err, ErrSuperseded) {
			r.logger.Debug("fetcher revalidation failed", "key", key, "error", err)
		}
	}
}

// GetFetcher returns the state of the fetcher key. Unknown keys report
// an idle fetcher.
func (r *Router) GetFetcher(key string) Fetcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.state.Fetchers[key]; ok {
		return f
	}
	return Fetcher{Phase: Idle}
}

// DeleteFetcher cancels and forgets the fetcher key.
func (r *Router) DeleteFetcher(key string) {
	r.mu.Lock()
	if e := r.fetchers[key]; e != nil {
		e.cancel()
		delete(r.fetchers, key)
	}
	delete(r.fetchLoads, key)
	_, existed := r.state.Fetchers[key]
	delete(r.state.Fetchers, key)
	r.mu.Unlock()
	if existed {
		r.notify()
	}
}
