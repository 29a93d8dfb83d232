package navigation

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// errStaleData is returned by commit when a revalidation was requested
// after the step's loaders ran.
var errStaleData = errors.New("navigation: loader data is stale")

type commitData struct {
	matches    []router.Match
	loaderData map[string]any
	actionData map[string]any
	errors     map[string]error
	err        error

	// keepActionData leaves State.ActionData untouched.
	keepActionData bool

	// revalidateSeq is the revalidation request the data satisfies.
	// With checkStale, a newer request fails the commit with errStaleData.
	revalidateSeq uint64
	checkStale    bool
}

// startNavigation runs one navigation step under a fresh generation.
// Any step still in flight is cancelled and will return ErrSuperseded.
func (r *Router) startNavigation(ctx context.Context, req navRequest) error {
	r.mu.Lock()
	if err := r.usableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	if req.parentGen != 0 && r.generation.Load() != req.parentGen {
		r.mu.Unlock()
		return ErrSuperseded
	}
	gen := r.generation.Inc()
	if r.cancelNav != nil {
		r.cancelNav()
	}
	navCtx, cancel := context.WithCancel(ctx)
	r.cancelNav = cancel
	current := datastrategy.Snapshot{
		Matches:    r.state.Matches,
		Href:       r.state.Location.String(),
		LoaderData: r.state.LoaderData,
	}
	currentLoc := r.state.Location
	seq := r.revalidateReq
	force := req.revalidate || r.revalidateReq > r.revalidateDone
	r.mu.Unlock()
	defer cancel()

	var matches []router.Match
	if app, ok := r.appPathname(req.location.Pathname); ok {
		matches = r.tree.Match(app)
	}
	if matches == nil {
		r.logger.Debug("no route matches", "path", req.location.Pathname)
		return r.commit(gen, req, commitData{
			err:           &NoMatchError{Pathname: req.location.Pathname},
			loaderData:    make(map[string]any),
			revalidateSeq: seq,
		})
	}

	if !req.initial && !force && req.submission == nil && currentLoc.HashOnlyChange(req.location) {
		return r.commit(gen, req, commitData{
			matches:        matches,
			loaderData:     current.LoaderData,
			keepActionData: true,
			revalidateSeq:  seq,
		})
	}

	r.setPending(gen, req)

	nav := datastrategy.Navigation{
		Href:            req.location.String(),
		Matches:         matches,
		Submission:      req.submission,
		Current:         current,
		ForceRevalidate: force,
	}
	if req.submission.IsMutation() {
		nav.ActionSettled = func() { r.setLoading(gen, req) }
	}
	out, err := r.exec.Execute(navCtx, nav)
	if done, err := r.settled(ctx, gen, req, matches, out, err); done {
		return err
	}

	data := commitData{
		matches:        matches,
		loaderData:     datastrategy.MergeLoaderData(current.LoaderData, out, matches),
		actionData:     out.ActionData,
		errors:         out.Errors,
		keepActionData: req.revalidate,
		revalidateSeq:  seq,
		checkStale:     true,
	}
	for {
		err := r.commit(gen, req, data)
		if !errors.Is(err, errStaleData) {
			return err
		}

		// A mutation finished while the loaders ran; load again on top
		// of what this step already has.
		r.mu.Lock()
		data.revalidateSeq = r.revalidateReq
		r.mu.Unlock()
		r.logger.Debug("revalidating before commit", "path", req.location.Pathname)

		again, err := r.exec.Execute(navCtx, datastrategy.Navigation{
			Href:    req.location.String(),
			Matches: matches,
			Current: datastrategy.Snapshot{
				Matches:    matches,
				Href:       req.location.String(),
				LoaderData: data.loaderData,
			},
			ForceRevalidate: true,
		})
		if done, err := r.settled(ctx, gen, req, matches, again, err); done {
			return err
		}
		data.loaderData = datastrategy.MergeLoaderData(data.loaderData, again, matches)
		data.errors = mergeErrors(actionErrors(out, matches), again.Errors)
	}
}

// settled handles the ways an Execute call can end a step early:
// supersession, cancellation, fatal errors and redirects.
func (r *Router) settled(ctx context.Context, gen uint64, req navRequest, matches []router.Match, out *datastrategy.Outcome, err error) (bool, error) {
	if r.generation.Load() != gen {
		return true, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.abandon(gen, req, matches)
			return true, err
		}
		return true, r.fail(gen, req, matches, err)
	}
	if out.Redirect != nil {
		return true, r.redirect(ctx, gen, req, matches, out.Redirect)
	}
	return false, nil
}

// actionErrors keeps the error an action left at its boundary.
func actionErrors(out *datastrategy.Outcome, matches []router.Match) map[string]error {
	if out.ActionRouteID == "" || out.ActionData != nil {
		return nil
	}
	boundary, ok := datastrategy.FindBoundary(matches, out.ActionRouteID)
	if !ok {
		return nil
	}
	if err, ok := out.Errors[boundary]; ok {
		return map[string]error{boundary: err}
	}
	return nil
}

func mergeErrors(base, next map[string]error) map[string]error {
	if len(base) == 0 {
		return next
	}
	merged := make(map[string]error, len(base)+len(next))
	for id, err := range next {
		merged[id] = err
	}
	for id, err := range base {
		merged[id] = err
	}
	return merged
}

func (r *Router) setPending(gen uint64, req navRequest) {
	r.mu.Lock()
	if r.generation.Load() != gen {
		r.mu.Unlock()
		return
	}
	if req.revalidate {
		r.state.Revalidation = Loading
	} else {
		phase := Loading
		if req.submission.IsMutation() {
			phase = Submitting
		}
		r.state.Navigation = Pending{Phase: phase, Location: req.location, Submission: req.submission}
	}
	r.mu.Unlock()
	r.notify()
}

// setLoading moves a submission to loading once its action settled.
func (r *Router) setLoading(gen uint64, req navRequest) {
	r.mu.Lock()
	if r.generation.Load() != gen || req.revalidate {
		r.mu.Unlock()
		return
	}
	r.state.Navigation = Pending{Phase: Loading, Location: req.location, Submission: req.submission}
	r.mu.Unlock()
	r.notify()
}

// commit publishes the result of gen, writing history unless the step
// is a revalidation or a POP.
func (r *Router) commit(gen uint64, req navRequest, data commitData) error {
	r.mu.Lock()
	if r.generation.Load() != gen {
		r.mu.Unlock()
		return ErrSuperseded
	}
	if data.checkStale && data.revalidateSeq < r.revalidateReq {
		r.mu.Unlock()
		return errStaleData
	}
	if data.revalidateSeq > r.revalidateDone {
		r.revalidateDone = data.revalidateSeq
	}

	s := r.state
	if !req.revalidate && !req.initial {
		switch req.action {
		case history.Push:
			r.history.Push(req.location)
		case history.Replace:
			r.history.Replace(req.location)
		}
		s.HistoryAction = req.action
	}
	s.Location = req.location
	s.Matches = data.matches
	s.LoaderData = data.loaderData
	if s.LoaderData == nil {
		s.LoaderData = make(map[string]any)
	}
	if !data.keepActionData {
		s.ActionData = data.actionData
	}
	if len(data.errors) > 0 {
		s.Errors = data.errors
	} else {
		s.Errors = nil
	}
	s.Error = data.err
	s.Navigation = Pending{Phase: Idle}
	s.Revalidation = Idle
	s.Initialized = true
	s.PreventScrollReset = req.preventScrollReset
	r.state = s
	r.mu.Unlock()

	r.logger.Debug("navigation committed",
		"action", string(req.action),
		"path", req.location.Pathname,
		"routes", datastrategy.RouteIDs(data.matches),
	)
	r.notify()

	if req.submission.IsMutation() {
		r.revalidateFetchers(r.baseCtx, "")
	}
	return nil
}

// popLocked moves state to the entry a POP already switched history to.
// History cannot be reverted, so state follows it even when the step
// does not commit normally.
func (r *Router) popLocked(req navRequest, matches []router.Match) {
	if req.action != history.Pop || req.revalidate || req.initial {
		return
	}
	data := make(map[string]any, len(matches))
	for _, m := range matches {
		if v, ok := r.state.LoaderData[m.Route.ID]; ok {
			data[m.Route.ID] = v
		}
	}
	r.state.HistoryAction = history.Pop
	r.state.Location = req.location
	r.state.Matches = matches
	r.state.LoaderData = data
	r.state.ActionData = nil
	r.state.Errors = nil
}

// abandon returns the router to idle after a step that won't commit.
func (r *Router) abandon(gen uint64, req navRequest, matches []router.Match) {
	r.mu.Lock()
	if r.generation.Load() != gen {
		r.mu.Unlock()
		return
	}
	r.popLocked(req, matches)
	r.state.Navigation = Pending{Phase: Idle}
	r.state.Revalidation = Idle
	r.mu.Unlock()
	r.notify()
}

// fail records a fatal error. Navigations are refused until Reset.
func (r *Router) fail(gen uint64, req navRequest, matches []router.Match, err error) error {
	r.mu.Lock()
	if r.generation.Load() != gen {
		r.mu.Unlock()
		return ErrSuperseded
	}
	r.popLocked(req, matches)
	r.fatal = err
	r.state.Error = err
	r.state.Navigation = Pending{Phase: Idle}
	r.state.Revalidation = Idle
	r.state.Initialized = true
	r.mu.Unlock()

	r.logger.Error("navigation failed", "error", err, "path", req.location.Pathname)
	r.notify()
	return err
}

// redirect follows a redirect produced by gen.
func (r *Router) redirect(ctx context.Context, gen uint64, req navRequest, matches []router.Match, rd *router.RedirectError) error {
	if req.redirects >= r.maxRedirects {
		r.abandon(gen, req, matches)
		r.logger.Warn("redirect limit reached", "limit", r.maxRedirects, "to", rd.Location)
		return ErrTooManyRedirects
	}
	if rd.ReloadDocument || routepath.IsExternal(rd.Location) {
		r.abandon(gen, req, matches)
		return &ExternalRedirectError{Location: rd.Location}
	}

	from, ok := r.appPathname(req.location.Pathname)
	if !ok {
		from = "/"
	}
	loc := history.NewLocation(r.withBasename(routepath.Resolve(rd.Location, from).String()), nil)

	r.mu.Lock()
	current := r.state.Location
	r.mu.Unlock()

	action := history.Push
	if req.action == history.Replace || req.action == history.Pop || rd.Replace || current.SameURL(loc) {
		action = history.Replace
	}

	next := navRequest{
		action:             action,
		location:           loc,
		preventScrollReset: req.preventScrollReset,
		redirects:          req.redirects + 1,
		parentGen:          gen,
	}
	if rd.Status == http.StatusTemporaryRedirect || rd.Status == http.StatusPermanentRedirect {
		if req.submission.IsMutation() {
			next.submission = req.submission
		}
	}

	r.logger.Debug("following redirect", "from", req.location.Pathname, "to", loc.Pathname, "status", rd.Status)
	return r.startNavigation(ctx, next)
}
