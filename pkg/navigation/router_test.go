package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func value(v any) router.LoaderFunc {
	return func(context.Context, router.Args) (any, error) { return v, nil }
}

func counting(n *atomic.Int32, v any) router.LoaderFunc {
	return func(context.Context, router.Args) (any, error) {
		n.Inc()
		return v, nil
	}
}

func newTestRouter(t *testing.T, routes []router.Route, initial string, mutate ...func(*Config)) (*Router, *history.MemoryHistory) {
	t.Helper()
	h := history.NewMemoryHistory(history.MemoryOptions{InitialEntries: []string{initial}})
	cfg := Config{Routes: routes, History: h, Logger: quietLogger()}
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Dispose)
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return r, h
}

func appRoutes() []router.Route {
	return []router.Route{{
		ID:            "root",
		Path:          "/",
		Loader:        value("root"),
		ErrorBoundary: true,
		Children: []router.Route{
			{ID: "home", Index: true, Loader: value("home")},
			{ID: "about", Path: "about"},
			{ID: "user", Path: "users/:id", Loader: func(_ context.Context, a router.Args) (any, error) {
				return a.Params.Get("id"), nil
			}},
		},
	}}
}

func TestInitializeLoadsMatchedRoutes(t *testing.T) {
	r, _ := newTestRouter(t, appRoutes(), "/users/7")

	s := r.State()
	if !s.Initialized {
		t.Fatal("expected initialized state")
	}
	if got := datastrategy.RouteIDs(s.Matches); len(got) != 2 || got[0] != "root" || got[1] != "user" {
		t.Fatalf("matches = %v", got)
	}
	if s.LoaderData["root"] != "root" || s.LoaderData["user"] != "7" {
		t.Errorf("loader data = %v", s.LoaderData)
	}
	if s.Navigation.Phase != Idle {
		t.Errorf("navigation phase = %s", s.Navigation.Phase)
	}
}

func TestNavigatePushAndReplace(t *testing.T) {
	r, h := newTestRouter(t, appRoutes(), "/")
	ctx := context.Background()

	if err := r.Navigate(ctx, "/users/3"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if h.Index() != 1 || h.Location().Pathname != "/users/3" {
		t.Fatalf("history at %d %q", h.Index(), h.Location().Pathname)
	}
	if s := r.State(); s.HistoryAction != history.Push || s.LoaderData["user"] != "3" {
		t.Errorf("state = %s %v", s.HistoryAction, s.LoaderData)
	}

	if err := r.Navigate(ctx, "/about", WithReplace()); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if h.Index() != 1 || h.Location().Pathname != "/about" {
		t.Fatalf("history at %d %q", h.Index(), h.Location().Pathname)
	}
	if s := r.State(); s.HistoryAction != history.Replace {
		t.Errorf("action = %s", s.HistoryAction)
	}
}

func TestNavigateKeepsUnchangedLoaderData(t *testing.T) {
	var rootCalls atomic.Int32
	routes := appRoutes()
	routes[0].Loader = counting(&rootCalls, "root")
	r, _ := newTestRouter(t, routes, "/users/1")

	if err := r.Navigate(context.Background(), "/users/2"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := rootCalls.Load(); got != 1 {
		t.Errorf("root loader ran %d times, want 1", got)
	}
	if s := r.State(); s.LoaderData["root"] != "root" || s.LoaderData["user"] != "2" {
		t.Errorf("loader data = %v", s.LoaderData)
	}
}

func TestNoMatchIsNotFatal(t *testing.T) {
	r, _ := newTestRouter(t, appRoutes(), "/")
	ctx := context.Background()

	if err := r.Navigate(ctx, "/missing/page"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s := r.State()
	var nm *NoMatchError
	if !errors.As(s.Error, &nm) {
		t.Fatalf("error = %v, want *NoMatchError", s.Error)
	}
	if s.Fatal() {
		t.Error("no match must not be fatal")
	}
	if got := router.StatusOf(s.Error); got != http.StatusNotFound {
		t.Errorf("status = %d", got)
	}
	if s.Matches != nil {
		t.Errorf("matches = %v", s.Matches)
	}

	if err := r.Navigate(ctx, "/about"); err != nil {
		t.Fatalf("Navigate after no match: %v", err)
	}
	if s := r.State(); s.Error != nil {
		t.Errorf("error not cleared: %v", s.Error)
	}
}

func TestNewerNavigationSupersedesOlder(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	routes := appRoutes()
	routes[0].Children = append(routes[0].Children, router.Route{
		ID:   "slow",
		Path: "slow",
		Loader: func(ctx context.Context, _ router.Args) (any, error) {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	})
	r, _ := newTestRouter(t, routes, "/")
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- r.Navigate(ctx, "/slow") }()
	<-started

	if s := r.State(); s.Navigation.Phase != Loading || s.Navigation.Location.Pathname != "/slow" {
		t.Errorf("pending navigation = %+v", s.Navigation)
	}

	if err := r.Navigate(ctx, "/about"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow navigation error = %v, want ErrSuperseded", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded loader was not cancelled")
	}

	s := r.State()
	if s.Location.Pathname != "/about" || s.Navigation.Phase != Idle {
		t.Errorf("state = %q %s", s.Location.Pathname, s.Navigation.Phase)
	}
	if _, ok := s.LoaderData["slow"]; ok {
		t.Error("superseded data leaked into state")
	}
}

func TestRedirectIsFollowed(t *testing.T) {
	routes := appRoutes()
	routes[0].Children = append(routes[0].Children, router.Route{
		ID:   "old",
		Path: "old",
		Loader: func(context.Context, router.Args) (any, error) {
			return nil, router.Redirect("/users/5")
		},
	})
	r, h := newTestRouter(t, routes, "/")

	if err := r.Navigate(context.Background(), "/old"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := h.Location().Pathname; got != "/users/5" {
		t.Errorf("history location = %q", got)
	}
	if len(h.Entries()) != 2 {
		t.Errorf("entries = %d, want 2", len(h.Entries()))
	}
	if s := r.State(); s.LoaderData["user"] != "5" {
		t.Errorf("loader data = %v", s.LoaderData)
	}
}

func TestRedirectLimit(t *testing.T) {
	routes := appRoutes()
	routes[0].Children = append(routes[0].Children, router.Route{
		ID:   "loop",
		Path: "loop/:n",
		Loader: func(context.Context, router.Args) (any, error) {
			return nil, router.Redirect("/loop/again")
		},
	})
	r, h := newTestRouter(t, routes, "/", func(c *Config) { c.MaxRedirects = 3 })

	err := r.Navigate(context.Background(), "/loop/start")
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Fatalf("error = %v, want ErrTooManyRedirects", err)
	}
	if h.Location().Pathname != "/" {
		t.Errorf("history moved to %q", h.Location().Pathname)
	}
	if s := r.State(); s.Location.Pathname != "/" || s.Navigation.Phase != Idle {
		t.Errorf("state = %q %s", s.Location.Pathname, s.Navigation.Phase)
	}
}

func TestExternalRedirect(t *testing.T) {
	routes := appRoutes()
	routes[0].Children = append(routes[0].Children, router.Route{
		ID:   "out",
		Path: "out",
		Loader: func(context.Context, router.Args) (any, error) {
			return nil, router.Redirect("https://example.com/login")
		},
	})
	r, _ := newTestRouter(t, routes, "/")

	err := r.Navigate(context.Background(), "/out")
	var ext *ExternalRedirectError
	if !errors.As(err, &ext) || ext.Location != "https://example.com/login" {
		t.Fatalf("error = %v", err)
	}
	if !errors.Is(err, ErrExternalRedirect) {
		t.Error("expected ErrExternalRedirect")
	}
}

func TestBoundaryErrorCommits(t *testing.T) {
	boom := errors.New("boom")
	routes := appRoutes()
	routes[0].Children = append(routes[0].Children, router.Route{
		ID:   "broken",
		Path: "broken",
		Loader: func(context.Context, router.Args) (any, error) {
			return nil, boom
		},
	})
	r, _ := newTestRouter(t, routes, "/")

	if err := r.Navigate(context.Background(), "/broken"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s := r.State()
	if !errors.Is(s.Errors["root"], boom) {
		t.Errorf("errors = %v", s.Errors)
	}
	if s.Fatal() {
		t.Error("bounded error must not be fatal")
	}
}

func TestUnhandledErrorIsFatalUntilReset(t *testing.T) {
	boom := errors.New("boom")
	routes := []router.Route{
		{ID: "ok", Path: "/"},
		{ID: "broken", Path: "/broken", Loader: func(context.Context, router.Args) (any, error) {
			return nil, boom
		}},
	}
	r, _ := newTestRouter(t, routes, "/")
	ctx := context.Background()

	err := r.Navigate(ctx, "/broken")
	var unhandled *datastrategy.UnhandledError
	if !errors.As(err, &unhandled) || unhandled.RouteID != "broken" {
		t.Fatalf("error = %v", err)
	}
	if !r.State().Fatal() {
		t.Fatal("expected fatal state")
	}
	if err := r.Navigate(ctx, "/"); !errors.Is(err, ErrRouterErrored) {
		t.Fatalf("error = %v, want ErrRouterErrored", err)
	}

	r.Reset()
	if r.State().Error != nil {
		t.Fatal("Reset kept the error")
	}
	if err := r.Navigate(ctx, "/"); err != nil {
		t.Fatalf("Navigate after Reset: %v", err)
	}
}

func TestPopNavigation(t *testing.T) {
	r, h := newTestRouter(t, appRoutes(), "/")
	ctx := context.Background()
	for _, to := range []string{"/users/1", "/users/2"} {
		if err := r.Navigate(ctx, to); err != nil {
			t.Fatalf("Navigate %s: %v", to, err)
		}
	}

	r.Go(-1)
	s := r.State()
	if s.Location.Pathname != "/users/1" || s.HistoryAction != history.Pop {
		t.Fatalf("state = %q %s", s.Location.Pathname, s.HistoryAction)
	}
	if s.LoaderData["user"] != "1" {
		t.Errorf("loader data = %v", s.LoaderData)
	}
	if h.Index() != 1 {
		t.Errorf("history index = %d", h.Index())
	}
}

func TestPopErrorCommitsNewLocation(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"unhandled loader error", errors.New("boom"), true},
		{"external redirect", router.Redirect("https://example.com/login"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failing atomic.Bool
			routes := []router.Route{
				{ID: "a", Path: "/a", Loader: value("a")},
				{ID: "b", Path: "/b", Loader: func(context.Context, router.Args) (any, error) {
					if failing.Load() {
						return nil, tt.err
					}
					return "b", nil
				}},
			}
			r, h := newTestRouter(t, routes, "/b")
			if err := r.Navigate(context.Background(), "/a"); err != nil {
				t.Fatalf("Navigate: %v", err)
			}

			failing.Store(true)
			r.Go(-1)

			s := r.State()
			if h.Location().Pathname != "/b" {
				t.Fatalf("history = %q, want /b", h.Location().Pathname)
			}
			if s.Location.Pathname != "/b" || s.HistoryAction != history.Pop {
				t.Errorf("state = %q %s, want /b POP", s.Location.Pathname, s.HistoryAction)
			}
			if got := datastrategy.RouteIDs(s.Matches); len(got) != 1 || got[0] != "b" {
				t.Errorf("matches = %v", got)
			}
			if _, ok := s.LoaderData["a"]; ok {
				t.Errorf("loader data kept the previous route: %v", s.LoaderData)
			}
			if s.Navigation.Phase != Idle {
				t.Errorf("navigation phase = %s", s.Navigation.Phase)
			}
			if s.Fatal() != tt.fatal {
				t.Errorf("Fatal() = %v, want %v (error %v)", s.Fatal(), tt.fatal, s.Error)
			}
		})
	}
}

func TestBlocker(t *testing.T) {
	r, h := newTestRouter(t, appRoutes(), "/")
	ctx := context.Background()
	for _, to := range []string{"/users/1", "/users/2"} {
		if err := r.Navigate(ctx, to); err != nil {
			t.Fatalf("Navigate %s: %v", to, err)
		}
	}

	var seen []BlockerArgs
	unblock := r.Block(func(a BlockerArgs) bool {
		seen = append(seen, a)
		return true
	})

	if err := r.Navigate(ctx, "/about"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("error = %v, want ErrBlocked", err)
	}

	r.Go(-1)
	if h.Index() != 2 {
		t.Errorf("blocked POP left history at %d", h.Index())
	}
	if got := r.State().Location.Pathname; got != "/users/2" {
		t.Errorf("location = %q", got)
	}
	if len(seen) != 2 || seen[1].HistoryAction != history.Pop || seen[1].NextLocation.Pathname != "/users/1" {
		t.Errorf("blocker args = %+v", seen)
	}

	unblock()
	if err := r.Navigate(ctx, "/about"); err != nil {
		t.Fatalf("Navigate after unblock: %v", err)
	}
}

func TestHashOnlyChangeSkipsLoaders(t *testing.T) {
	var calls atomic.Int32
	routes := appRoutes()
	routes[0].Loader = counting(&calls, "root")
	r, _ := newTestRouter(t, routes, "/about")

	if err := r.Navigate(context.Background(), "/about#team"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("root loader ran %d times, want 1", got)
	}
	if s := r.State(); s.Location.Hash != "#team" || s.LoaderData["root"] != "root" {
		t.Errorf("state = %q %v", s.Location.Hash, s.LoaderData)
	}
}

func TestSubmissionRunsActionThenLoaders(t *testing.T) {
	var loads atomic.Int32
	var got url.Values
	routes := []router.Route{{
		ID:     "form",
		Path:   "/form",
		Loader: counting(&loads, "page"),
		Action: func(_ context.Context, a router.Args) (any, error) {
			if err := a.Request.ParseForm(); err != nil {
				return nil, err
			}
			got = a.Request.PostForm
			return "saved", nil
		},
	}}
	r, h := newTestRouter(t, routes, "/form")

	err := r.Navigate(context.Background(), "/form", WithFormData("post", url.Values{"name": {"ada"}}))
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s := r.State()
	if s.ActionData["form"] != "saved" {
		t.Errorf("action data = %v", s.ActionData)
	}
	if got.Get("name") != "ada" {
		t.Errorf("form = %v", got)
	}
	if n := loads.Load(); n != 2 {
		t.Errorf("loader ran %d times, want 2", n)
	}
	if h.Index() != 0 || s.HistoryAction != history.Replace {
		t.Errorf("same-URL submission should replace: index %d action %s", h.Index(), s.HistoryAction)
	}
}

func TestSubscribeSeesPendingThenIdle(t *testing.T) {
	r, _ := newTestRouter(t, appRoutes(), "/")

	var mu sync.Mutex
	var phases []Phase
	unsubscribe := r.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Navigation.Phase)
	})
	defer unsubscribe()

	if err := r.Navigate(context.Background(), "/users/4"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(phases) != 2 || phases[0] != Loading || phases[1] != Idle {
		t.Errorf("phases = %v", phases)
	}
}

func TestSubmissionPhases(t *testing.T) {
	routes := []router.Route{{
		ID:     "form",
		Path:   "/form",
		Loader: value("page"),
		Action: func(context.Context, router.Args) (any, error) { return "saved", nil },
	}}
	r, _ := newTestRouter(t, routes, "/form")

	var mu sync.Mutex
	var phases []Phase
	var submissions []bool
	unsubscribe := r.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Navigation.Phase)
		submissions = append(submissions, s.Navigation.Submission != nil)
	})
	defer unsubscribe()

	err := r.Navigate(context.Background(), "/form", WithFormData("post", url.Values{"name": {"ada"}}))
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []Phase{Submitting, Loading, Idle}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phases = %v, want %v", phases, want)
			break
		}
	}
	if !submissions[0] || !submissions[1] || submissions[2] {
		t.Errorf("submission visible = %v, want [true true false]", submissions)
	}
}

func TestHydrationSkipsLoaders(t *testing.T) {
	routes := []router.Route{{
		ID:   "root",
		Path: "/",
		Loader: func(context.Context, router.Args) (any, error) {
			t.Error("loader ran during hydration")
			return nil, nil
		},
	}}
	r, _ := newTestRouter(t, routes, "/", func(c *Config) {
		c.HydrationData = &HydrationData{LoaderData: map[string]any{"root": "from server"}}
	})

	s := r.State()
	if !s.Initialized || s.LoaderData["root"] != "from server" {
		t.Errorf("state = %v %v", s.Initialized, s.LoaderData)
	}
}

func TestBasename(t *testing.T) {
	r, h := newTestRouter(t, appRoutes(), "/app/users/1", func(c *Config) { c.Basename = "/app" })

	if s := r.State(); s.LoaderData["user"] != "1" {
		t.Fatalf("loader data = %v", s.LoaderData)
	}
	if err := r.Navigate(context.Background(), "/users/2"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := h.Location().Pathname; got != "/app/users/2" {
		t.Errorf("history pathname = %q", got)
	}
	if got := r.Href("/about"); got != "/app/about" {
		t.Errorf("Href = %q", got)
	}
}

func TestRevalidate(t *testing.T) {
	var calls atomic.Int32
	routes := appRoutes()
	routes[0].Loader = counting(&calls, "root")
	r, _ := newTestRouter(t, routes, "/about")

	if err := r.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("root loader ran %d times, want 2", got)
	}
	if s := r.State(); s.Revalidation != Idle || s.HistoryAction != history.Pop {
		t.Errorf("state = %s %s", s.Revalidation, s.HistoryAction)
	}
}

func TestRevalidateDuringNavigation(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	routes := []router.Route{{
		ID:   "root",
		Path: "/",
		Children: []router.Route{
			{ID: "home", Index: true},
			{ID: "list", Path: "list", Loader: func(context.Context, router.Args) (any, error) {
				n := calls.Inc()
				if n == 1 {
					close(started)
					<-release
				}
				return n, nil
			}},
		},
	}}
	r, _ := newTestRouter(t, routes, "/")
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- r.Navigate(ctx, "/list") }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("loader did not start")
	}
	if err := r.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	close(release)

	if err := <-errc; err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s := r.State()
	if got := s.LoaderData["list"]; got != int32(2) {
		t.Errorf("list data = %v, want 2 (reloaded before commit)", got)
	}
	if s.Location.Pathname != "/list" || s.Navigation.Phase != Idle {
		t.Errorf("state = %q %s", s.Location.Pathname, s.Navigation.Phase)
	}

	if err := r.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("loader ran %d times, want 3", n)
	}
}

func TestDispose(t *testing.T) {
	r, _ := newTestRouter(t, appRoutes(), "/")
	r.Dispose()

	if err := r.Navigate(context.Background(), "/about"); !errors.Is(err, ErrDisposed) {
		t.Errorf("error = %v, want ErrDisposed", err)
	}
}
