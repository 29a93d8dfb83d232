package datastrategy

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/waypoint/pkg/router"
)

func noopLoader(context.Context, router.Args) (any, error) { return nil, nil }

func revalidateTree(should router.ShouldRevalidateFunc) *router.Tree {
	return router.MustNewTree([]router.Route{{
		Path: "/", ID: "root", Loader: noopLoader,
		Children: []router.Route{
			{Path: "users/:id", ID: "user", Loader: noopLoader, ShouldRevalidate: should},
			{Path: "files/*", ID: "files", Loader: noopLoader},
			{Path: "about", ID: "about"},
		},
	}})
}

func loadIDs(tree *router.Tree, from, to string, mutate func(*RevalidationInput)) []string {
	in := RevalidationInput{
		CurrentMatches: tree.Match(routePathname(from)),
		CurrentHref:    from,
		NextMatches:    tree.Match(routePathname(to)),
		NextHref:       to,
		LoaderData:     map[string]any{"root": 1, "user": 2, "files": 3},
	}
	if mutate != nil {
		mutate(&in)
	}
	return RouteIDs(MatchesToLoad(in))
}

func routePathname(href string) string {
	for i := 0; i < len(href); i++ {
		if href[i] == '?' || href[i] == '#' {
			return href[:i]
		}
	}
	return href
}

func TestMatchesToLoad(t *testing.T) {
	tree := revalidateTree(nil)

	tests := []struct {
		name     string
		from, to string
		mutate   func(*RevalidationInput)
		want     []string
	}{
		{"initial load", "/", "/users/1", func(in *RevalidationInput) { in.CurrentMatches = nil }, []string{"root", "user"}},
		{"param change", "/users/1", "/users/2", nil, []string{"user"}},
		{"new route", "/about", "/users/1", nil, []string{"user"}},
		{"same url", "/users/1", "/users/1", nil, []string{"root", "user"}},
		{"search change", "/users/1", "/users/1?tab=x", nil, []string{"root", "user"}},
		{"hash only", "/users/1", "/users/1#top", nil, []string{"root", "user"}},
		{"splat change", "/files/a", "/files/b", nil, []string{"files"}},
		{"forced", "/users/1", "/users/2", func(in *RevalidationInput) { in.ForceRevalidate = true }, []string{"root", "user"}},
		{"mutation", "/users/1", "/users/1", func(in *RevalidationInput) {
			in.Submission = &Submission{Method: "POST"}
		}, []string{"root", "user"}},
		{"missing data", "/users/1", "/users/2", func(in *RevalidationInput) { delete(in.LoaderData, "root") }, []string{"root", "user"}},
		{"action error boundary", "/users/1", "/users/1", func(in *RevalidationInput) {
			in.Submission = &Submission{}
			in.ActionErrorBoundary = "user"
		}, []string{"root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loadIDs(tree, tt.from, tt.to, tt.mutate)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchesToLoad(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestMatchesToLoadShouldRevalidate(t *testing.T) {
	var seen router.ShouldRevalidateArgs
	never := func(args router.ShouldRevalidateArgs) bool {
		seen = args
		return false
	}
	tree := revalidateTree(never)

	got := loadIDs(tree, "/users/1", "/users/2", nil)
	if len(got) != 0 {
		t.Errorf("got %v, want user skipped", got)
	}
	if !seen.DefaultShouldRevalidate {
		t.Error("DefaultShouldRevalidate should be true for a param change")
	}
	if seen.CurrentParams.Get("id") != "1" || seen.NextParams.Get("id") != "2" {
		t.Errorf("params = %v -> %v", seen.CurrentParams, seen.NextParams)
	}
	if seen.NextURL == nil || seen.NextURL.Path != "/users/2" {
		t.Errorf("NextURL = %v", seen.NextURL)
	}

	always := func(args router.ShouldRevalidateArgs) bool { return true }
	tree = revalidateTree(always)
	if got := loadIDs(tree, "/users/1?a=1", "/users/1?a=1#x", func(in *RevalidationInput) {
		in.CurrentHref = "/users/1?a=1"
		in.NextHref = "/users/1?a=2"
	}); !reflect.DeepEqual(got, []string{"root", "user"}) {
		t.Errorf("got %v", got)
	}

	actionErr := errors.New("bad")
	tree = revalidateTree(func(args router.ShouldRevalidateArgs) bool {
		return args.FormMethod == "PUT" && args.ActionError == actionErr
	})
	got = loadIDs(tree, "/users/1", "/users/1", func(in *RevalidationInput) {
		in.Submission = &Submission{Method: "put"}
		in.ActionError = actionErr
	})
	if !reflect.DeepEqual(got, []string{"root", "user"}) {
		t.Errorf("got %v, want user revalidated via args", got)
	}
}

func TestMatchesToLoadShouldRevalidateNotConsultedForNewRoutes(t *testing.T) {
	called := false
	tree := revalidateTree(func(router.ShouldRevalidateArgs) bool {
		called = true
		return false
	})

	got := loadIDs(tree, "/about", "/users/1", nil)
	if !reflect.DeepEqual(got, []string{"user"}) {
		t.Errorf("got %v, want [user]", got)
	}
	if called {
		t.Error("ShouldRevalidate consulted for a new route")
	}
}

func TestFindBoundary(t *testing.T) {
	matches := []router.Match{
		{Route: &router.Route{ID: "root", ErrorBoundary: true}},
		{Route: &router.Route{ID: "mid"}},
		{Route: &router.Route{ID: "leaf"}},
	}

	if id, ok := FindBoundary(matches, "leaf"); !ok || id != "root" {
		t.Errorf("FindBoundary(leaf) = %q, %v", id, ok)
	}

	matches[1].Route.ErrorBoundary = true
	if id, _ := FindBoundary(matches, "leaf"); id != "mid" {
		t.Errorf("FindBoundary(leaf) = %q, want mid", id)
	}
	if id, _ := FindBoundary(matches, "mid"); id != "mid" {
		t.Errorf("FindBoundary(mid) = %q, want mid (self)", id)
	}
	if _, ok := FindBoundary(matches, "unknown"); ok {
		t.Error("FindBoundary(unknown) should fail")
	}
}

func TestMergeLoaderData(t *testing.T) {
	matches := []router.Match{
		{Route: &router.Route{ID: "root"}},
		{Route: &router.Route{ID: "mid"}},
		{Route: &router.Route{ID: "leaf"}},
	}
	current := map[string]any{"root": "old-root", "mid": "old-mid", "leaf": "old-leaf", "gone": "x"}

	out := newOutcome()
	out.Loaded = []string{"mid"}
	out.LoaderData["mid"] = "new-mid"
	got := MergeLoaderData(current, out, matches)
	want := map[string]any{"root": "old-root", "mid": "new-mid", "leaf": "old-leaf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}

	out = newOutcome()
	out.Loaded = []string{"mid", "leaf"}
	out.LoaderData["leaf"] = "new-leaf"
	out.Errors["mid"] = errors.New("mid failed")
	got = MergeLoaderData(current, out, matches)
	want = map[string]any{"root": "old-root"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}
}

func TestTargetMatch(t *testing.T) {
	tree := router.MustNewTree([]router.Route{{
		Path: "/", ID: "root",
		Children: []router.Route{{
			Path: "projects", ID: "projects",
			Children: []router.Route{{
				ID: "layout",
				Children: []router.Route{{Index: true, ID: "list"}},
			}},
		}},
	}})
	matches := tree.Match("/projects")

	if m, _ := TargetMatch(matches, ""); m.Route.ID != "projects" {
		t.Errorf("target = %s, want projects", m.Route.ID)
	}
	if m, _ := TargetMatch(matches, "?index"); m.Route.ID != "list" {
		t.Errorf("target with ?index = %s, want list", m.Route.ID)
	}
	if m, _ := TargetMatch(matches, "?index=1"); m.Route.ID != "projects" {
		t.Errorf("target with ?index=1 = %s, want projects", m.Route.ID)
	}
	if _, ok := TargetMatch(nil, ""); ok {
		t.Error("TargetMatch(nil) should fail")
	}
}
