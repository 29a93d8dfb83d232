package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Router is the navigation state machine. It is safe for concurrent use.
type Router struct {
	tree         *router.Tree
	exec         *datastrategy.Executor
	history      history.History
	logger       *slog.Logger
	basename     string
	maxRedirects int
	metrics      NavigationMetrics
	hydration    *HydrationData

	generation atomic.Uint64
	fetchGen   atomic.Uint64

	mu          sync.Mutex
	state       State
	cancelNav   context.CancelFunc
	fetchers    map[string]*fetchEntry
	fetchLoads  map[string]fetchLoad
	blockers    map[int]BlockerFunc
	nextBlocker int
	subscribers map[int]func(State)
	nextSub     int
	ignorePops  int
	fatal       error

	// revalidateReq counts revalidations requested while a navigation
	// was pending; revalidateDone is the last one a commit satisfied.
	revalidateReq  uint64
	revalidateDone uint64

	disposed bool
	unlisten func()

	notifying     bool
	pendingNotify []State

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// navRequest is one step of a navigation; redirects create new steps.
type navRequest struct {
	action             history.Action
	location           history.Location
	submission         *datastrategy.Submission
	preventScrollReset bool
	redirects          int
	initial            bool
	revalidate         bool

	// parentGen, when set, must still be current for the step to start.
	parentGen uint64
}

// New creates a Router. Call Initialize before use.
func New(cfg Config) (*Router, error) {
	tree := cfg.Tree
	if tree == nil {
		var err error
		tree, err = router.NewTree(cfg.Routes, cfg.TreeOptions...)
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := cfg.History
	if h == nil {
		h = history.NewMemoryHistory(history.MemoryOptions{})
	}

	exec := cfg.Executor
	if exec == nil {
		exec = datastrategy.New(
			datastrategy.WithLogger(logger),
			datastrategy.WithMiddleware(cfg.Middleware...),
			datastrategy.WithContext(cfg.Context),
		)
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	r := &Router{
		tree:         tree,
		exec:         exec,
		history:      h,
		logger:       logger,
		basename:     cfg.Basename,
		maxRedirects: maxRedirects,
		metrics:      cfg.Metrics,
		hydration:    cfg.HydrationData,
		fetchers:     make(map[string]*fetchEntry),
		fetchLoads:   make(map[string]fetchLoad),
		blockers:     make(map[int]BlockerFunc),
		subscribers:  make(map[int]func(State)),
	}
	r.baseCtx, r.baseCancel = context.WithCancel(context.Background())

	loc := h.Location()
	r.state = State{
		HistoryAction: h.Action(),
		Location:      loc,
		Navigation:    Pending{Phase: Idle},
		Revalidation:  Idle,
		LoaderData:    make(map[string]any),
		Fetchers:      make(map[string]Fetcher),
	}
	if app, ok := r.appPathname(loc.Pathname); ok {
		r.state.Matches = tree.Match(app)
	}
	return r, nil
}

// Tree returns the route tree.
func (r *Router) Tree() *router.Tree { return r.tree }

// Basename returns the configured basename.
func (r *Router) Basename() string { return r.basename }

// Initialize starts listening to history and loads the initial location.
// With HydrationData the loaders are skipped.
func (r *Router) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	if r.unlisten == nil {
		r.unlisten = r.history.Listen(r.handlePop)
	}

	if hyd := r.hydration; hyd != nil {
		r.state.LoaderData = cloneMap(hyd.LoaderData)
		if r.state.LoaderData == nil {
			r.state.LoaderData = make(map[string]any)
		}
		r.state.ActionData = cloneMap(hyd.ActionData)
		if len(hyd.Errors) > 0 {
			r.state.Errors = make(map[string]error, len(hyd.Errors))
			for k, v := range hyd.Errors {
				r.state.Errors[k] = v
			}
		}
		if r.state.Matches == nil {
			r.state.Error = &NoMatchError{Pathname: r.state.Location.Pathname}
		}
		r.state.Initialized = true
		path := r.state.Location.Pathname
		r.mu.Unlock()
		r.logger.Debug("router hydrated", "path", path)
		r.notify()
		return nil
	}
	loc := r.state.Location
	r.mu.Unlock()

	return r.run(ctx, navRequest{action: history.Pop, location: loc, initial: true})
}

// Navigate navigates to to, resolved against the current location, and
// blocks until the navigation commits or fails.
func (r *Router) Navigate(ctx context.Context, to string, opts ...NavigateOption) error {
	o := buildOptions(opts)

	r.mu.Lock()
	if err := r.usableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	current := r.state.Location
	r.mu.Unlock()

	if routepath.IsExternal(to) {
		return &ExternalRedirectError{Location: to}
	}

	from, ok := r.appPathname(current.Pathname)
	if !ok {
		from = "/"
	}
	href, err := o.BuildURL(to, from)
	if err != nil {
		return err
	}
	loc := history.NewLocation(r.withBasename(href), o.State)

	action := history.Push
	switch {
	case o.Replace != nil:
		if *o.Replace {
			action = history.Replace
		}
	case o.Submission.IsMutation() && loc.String() == current.String():
		action = history.Replace
	}

	if r.blocked(current, loc, action) {
		r.observe(action, time.Now(), ErrBlocked)
		return ErrBlocked
	}

	req := navRequest{
		action:             action,
		location:           loc,
		preventScrollReset: o.PreventScrollReset,
	}
	if o.Submission.IsMutation() {
		req.submission = o.Submission
	}
	return r.run(ctx, req)
}

// Go moves through history. The resulting POP navigation runs on the
// calling goroutine.
func (r *Router) Go(delta int) {
	r.history.Go(delta)
}

// Revalidate reloads the data of the current location. While a
// navigation is in flight it returns at once and that navigation
// reloads its loaders before it commits.
func (r *Router) Revalidate(ctx context.Context) error {
	r.mu.Lock()
	if err := r.usableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.state.Navigation.Phase != Idle {
		r.revalidateReq++
		r.mu.Unlock()
		return nil
	}
	req := navRequest{action: r.state.HistoryAction, location: r.state.Location, revalidate: true}
	r.mu.Unlock()

	return r.run(ctx, req)
}

// Reset clears a fatal error so the router accepts navigations again.
func (r *Router) Reset() {
	r.mu.Lock()
	r.fatal = nil
	r.revalidateDone = r.revalidateReq
	if r.state.Fatal() {
		r.state.Error = nil
	}
	r.mu.Unlock()
	r.notify()
}

// Dispose stops listening to history, cancels in-flight work and drops
// subscribers.
func (r *Router) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	if r.cancelNav != nil {
		r.cancelNav()
	}
	for _, f := range r.fetchers {
		f.cancel()
	}
	unlisten := r.unlisten
	r.subscribers = make(map[int]func(State))
	r.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	r.baseCancel()
}

// State returns a snapshot of the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Subscribe registers fn for state changes.
func (r *Router) Subscribe(fn func(State)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// Href renders to (an app path) as a link target including the basename.
func (r *Router) Href(to string) string {
	return r.history.CreateHref(history.NewLocation(r.withBasename(to), nil))
}

func (r *Router) usableLocked() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.fatal != nil {
		return fmt.Errorf("%w: %v", ErrRouterErrored, r.fatal)
	}
	return nil
}

// handlePop answers a history POP.
func (r *Router) handlePop(u history.Update) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	if r.ignorePops > 0 {
		r.ignorePops--
		r.mu.Unlock()
		return
	}
	current := r.state.Location
	r.mu.Unlock()

	if r.blocked(current, u.Location, history.Pop) {
		r.mu.Lock()
		r.ignorePops++
		r.mu.Unlock()
		r.observe(history.Pop, time.Now(), ErrBlocked)
		r.history.Go(-u.Delta)
		return
	}

	err := r.run(r.baseCtx, navRequest{action: history.Pop, location: u.Location})
	if err != nil && !errors.Is(err, ErrSuperseded) {
		r.logger.Debug("pop navigation failed", "path", u.Location.Pathname, "error", err)
	}
}

// run executes a navigation and reports it to the metrics hook.
func (r *Router) run(ctx context.Context, req navRequest) error {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.NavigationStarted(req.action)
	}
	err := r.startNavigation(ctx, req)
	r.observe(req.action, start, err)
	return err
}

func (r *Router) observe(action history.Action, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.NavigationFinished(action, outcomeOf(err), time.Since(start))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, ErrBlocked):
		return OutcomeBlocked
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, ErrExternalRedirect):
		return OutcomeRedirect
	default:
		return OutcomeError
	}
}

// appPathname strips the basename and canonicalizes the result.
func (r *Router) appPathname(pathname string) (string, bool) {
	stripped, ok := routepath.StripBasename(pathname, r.basename)
	if !ok {
		return "", false
	}
	res, err := routepath.CanonicalizePath(stripped)
	if err != nil {
		return "", false
	}
	return res.Path, true
}

func (r *Router) withBasename(href string) string {
	p := routepath.Parse(href)
	if p.Pathname == "" {
		p.Pathname = "/"
	}
	p.Pathname = routepath.PrependBasename(p.Pathname, r.basename)
	return p.String()
}

func (r *Router) subscriberList() []func(State) {
	ids := make([]int, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(State), len(ids))
	for i, id := range ids {
		subs[i] = r.subscribers[id]
	}
	return subs
}

// notify queues a snapshot for subscribers. Snapshots are delivered one
// at a time in the order they were taken; a subscriber that triggers
// another notification has it delivered after it returns.
func (r *Router) notify() {
	r.mu.Lock()
	r.pendingNotify = append(r.pendingNotify, r.state.clone())
	if r.notifying {
		r.mu.Unlock()
		return
	}
	r.notifying = true
	for len(r.pendingNotify) > 0 {
		snap := r.pendingNotify[0]
		r.pendingNotify = r.pendingNotify[1:]
		subs := r.subscriberList()
		r.mu.Unlock()
		for _, fn := range subs {
			fn(snap.clone())
		}
		r.mu.Lock()
	}
	r.notifying = false
	r.mu.Unlock()
}
