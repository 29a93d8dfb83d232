package router

import (
	"errors"
	"reflect"
	"testing"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
)

func matchIDs(matches []Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Route.ID
	}
	return ids
}

func exampleRoutes() []Route {
	return []Route{{
		Path:          "/",
		ID:            "root",
		ErrorBoundary: true,
		Children: []Route{
			{Index: true, ID: "home"},
			{Path: "users/:id", ID: "user"},
			{Path: "files/*", ID: "files"},
		},
	}}
}

func TestTreeMatchExample(t *testing.T) {
	tree := MustNewTree(exampleRoutes())

	tests := []struct {
		pathname string
		ids      []string
		params   Params
	}{
		{"/", []string{"root", "home"}, Params{}},
		{"/users/42", []string{"root", "user"}, Params{"id": "42"}},
		{"/files/a/b.txt", []string{"root", "files"}, Params{"*": "a/b.txt"}},
		{"/files", []string{"root", "files"}, Params{"*": ""}},
		{"/users", nil, nil},
		{"/nope", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.pathname, func(t *testing.T) {
			matches := tree.Match(tt.pathname)
			if tt.ids == nil {
				if matches != nil {
					t.Fatalf("Match(%q) = %v, want no match", tt.pathname, matchIDs(matches))
				}
				return
			}
			if got := matchIDs(matches); !reflect.DeepEqual(got, tt.ids) {
				t.Fatalf("Match(%q) ids = %v, want %v", tt.pathname, got, tt.ids)
			}
			for _, m := range matches {
				if !reflect.DeepEqual(m.Params, tt.params) {
					t.Errorf("route %s params = %v, want %v", m.Route.ID, m.Params, tt.params)
				}
			}
		})
	}
}

func TestTreeMatchPathnames(t *testing.T) {
	tree := MustNewTree(exampleRoutes())

	matches := tree.Match("/files/a/b.txt")
	if matches[0].Pathname != "/" || matches[0].PathnameBase != "/" {
		t.Errorf("root = %q/%q, want /,/", matches[0].Pathname, matches[0].PathnameBase)
	}
	if matches[1].Pathname != "/files/a/b.txt" {
		t.Errorf("files Pathname = %q", matches[1].Pathname)
	}
	if matches[1].PathnameBase != "/files" {
		t.Errorf("files PathnameBase = %q, want /files", matches[1].PathnameBase)
	}
}

func TestTreeStaticBeatsDynamic(t *testing.T) {
	// Declaration order must not matter.
	tree := MustNewTree([]Route{
		{Path: "/users/:id", ID: "user"},
		{Path: "/users/me", ID: "me"},
	})

	if got := matchIDs(tree.Match("/users/me")); !reflect.DeepEqual(got, []string{"me"}) {
		t.Errorf("/users/me = %v, want [me]", got)
	}
	if got := matchIDs(tree.Match("/users/42")); !reflect.DeepEqual(got, []string{"user"}) {
		t.Errorf("/users/42 = %v, want [user]", got)
	}
}

func TestTreeDynamicBeatsSplat(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/files/*", ID: "splat"},
		{Path: "/files/:name", ID: "name"},
	})

	if got := matchIDs(tree.Match("/files/x")); !reflect.DeepEqual(got, []string{"name"}) {
		t.Errorf("/files/x = %v, want [name]", got)
	}
	if got := matchIDs(tree.Match("/files/x/y")); !reflect.DeepEqual(got, []string{"splat"}) {
		t.Errorf("/files/x/y = %v, want [splat]", got)
	}
}

func TestTreeFullConsumption(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/users", ID: "users", Children: []Route{
			{Path: ":id", ID: "user"},
		}},
	})

	if got := matchIDs(tree.Match("/users/42/edit")); got != nil && len(got) != 0 {
		t.Errorf("/users/42/edit = %v, want no match", got)
	}
	if got := matchIDs(tree.Match("/users")); !reflect.DeepEqual(got, []string{"users"}) {
		t.Errorf("/users = %v, want [users]", got)
	}
}

func TestTreeIndexExclusivity(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/users", ID: "users", Children: []Route{
			{Index: true, ID: "list"},
			{Path: ":id", ID: "user"},
		}},
	})

	if got := matchIDs(tree.Match("/users")); !reflect.DeepEqual(got, []string{"users", "list"}) {
		t.Errorf("/users = %v, want [users list]", got)
	}
	if got := matchIDs(tree.Match("/users/")); !reflect.DeepEqual(got, []string{"users", "list"}) {
		t.Errorf("/users/ = %v, want [users list]", got)
	}
	if got := matchIDs(tree.Match("/users/7")); !reflect.DeepEqual(got, []string{"users", "user"}) {
		t.Errorf("/users/7 = %v, want [users user]", got)
	}
}

func TestTreePathlessLayout(t *testing.T) {
	tree := MustNewTree([]Route{
		{ID: "auth", Children: []Route{
			{Path: "/login", ID: "login"},
		}},
		{Path: "/", ID: "root"},
	})

	if got := matchIDs(tree.Match("/login")); !reflect.DeepEqual(got, []string{"auth", "login"}) {
		t.Errorf("/login = %v, want [auth login]", got)
	}
	if got := matchIDs(tree.Match("/")); !reflect.DeepEqual(got, []string{"root"}) {
		t.Errorf("/ = %v, want [root]", got)
	}
}

func TestTreeNestedParamsMerge(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/orgs/:org", ID: "org", Children: []Route{
			{Path: "repos/:repo", ID: "repo"},
		}},
	})

	matches := tree.Match("/orgs/acme/repos/widgets")
	want := Params{"org": "acme", "repo": "widgets"}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	for _, m := range matches {
		if !reflect.DeepEqual(m.Params, want) {
			t.Errorf("%s params = %v, want %v", m.Route.ID, m.Params, want)
		}
	}
	if matches[0].PathnameBase != "/orgs/acme" {
		t.Errorf("org PathnameBase = %q", matches[0].PathnameBase)
	}

	matches[0].Params["org"] = "changed"
	if matches[1].Params["org"] != "acme" {
		t.Error("matches share a params map")
	}
}

func TestTreeOptionalSegments(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/:lang?/about", ID: "about"},
	})

	tests := []struct {
		pathname string
		params   Params
	}{
		{"/about", Params{}},
		{"/en/about", Params{"lang": "en"}},
	}
	for _, tt := range tests {
		matches := tree.Match(tt.pathname)
		if len(matches) != 1 {
			t.Fatalf("Match(%q) = %v", tt.pathname, matchIDs(matches))
		}
		if !reflect.DeepEqual(matches[0].Params, tt.params) {
			t.Errorf("Match(%q) params = %v, want %v", tt.pathname, matches[0].Params, tt.params)
		}
	}
}

func TestTreeParamTypes(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/posts/:id", ID: "byID", ParamTypes: map[string]string{"id": "int"}},
		{Path: "/posts/:slug", ID: "bySlug"},
	})

	if got := matchIDs(tree.Match("/posts/12")); !reflect.DeepEqual(got, []string{"byID"}) {
		t.Errorf("/posts/12 = %v, want [byID]", got)
	}
	if got := matchIDs(tree.Match("/posts/hello")); !reflect.DeepEqual(got, []string{"bySlug"}) {
		t.Errorf("/posts/hello = %v, want [bySlug]", got)
	}
}

func TestTreeCaseSensitivity(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/About", ID: "about"},
		{Path: "/Team", ID: "team", CaseSensitive: true},
	})

	if got := tree.Match("/about"); len(got) != 1 {
		t.Errorf("/about should match case-insensitively")
	}
	if got := tree.Match("/team"); got != nil {
		t.Errorf("/team should not match a case-sensitive /Team")
	}
}

func TestTreeStrictTrailingSlash(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/docs/", ID: "strict", Strict: true},
		{Path: "/docs", ID: "loose"},
	})

	if got := matchIDs(tree.Match("/docs/")); !reflect.DeepEqual(got, []string{"strict"}) {
		t.Errorf("/docs/ = %v, want [strict]", got)
	}
	if got := matchIDs(tree.Match("/docs")); !reflect.DeepEqual(got, []string{"loose"}) {
		t.Errorf("/docs = %v, want [loose]", got)
	}
}

func TestTreeDeclarationOrderTieBreak(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/:a", ID: "first"},
		{Path: "/:b", ID: "second"},
	})
	if got := matchIDs(tree.Match("/x")); !reflect.DeepEqual(got, []string{"first"}) {
		t.Errorf("/x = %v, want [first]", got)
	}

	reversed := MustNewTree([]Route{
		{Path: "/:a", ID: "first"},
		{Path: "/:b", ID: "second"},
	}, WithTieBreaker(func(a, b *Branch) int { return DeclarationOrder(b, a) }))
	if got := matchIDs(reversed.Match("/x")); !reflect.DeepEqual(got, []string{"second"}) {
		t.Errorf("reversed /x = %v, want [second]", got)
	}
}

func TestTreeDeterminism(t *testing.T) {
	tree := MustNewTree(exampleRoutes())
	first := tree.Match("/users/9")
	for i := 0; i < 50; i++ {
		if got := tree.Match("/users/9"); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: Match differs", i)
		}
	}
}

func TestTreeAssignsIDs(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/", Children: []Route{
			{Path: "a"},
			{Path: "b", Children: []Route{{Index: true}}},
		}},
	})

	for _, id := range []string{"0", "0-0", "0-1", "0-1-0"} {
		if _, ok := tree.Route(id); !ok {
			t.Errorf("route %q not found", id)
		}
	}
	if p := tree.Parent("0-1-0"); p == nil || p.ID != "0-1" {
		t.Errorf("Parent(0-1-0) = %v, want 0-1", p)
	}
	if p := tree.Parent("0"); p != nil {
		t.Errorf("Parent(0) = %v, want nil", p)
	}
}

func TestTreeDoesNotModifyInput(t *testing.T) {
	routes := []Route{{Path: "/", Children: []Route{{Path: "a"}}}}
	MustNewTree(routes)
	if routes[0].ID != "" || routes[0].Children[0].ID != "" {
		t.Error("NewTree modified the caller's routes")
	}
}

func TestNewTreeErrors(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		code   string
	}{
		{"index with children", []Route{{Index: true, Children: []Route{{Path: "a"}}}}, "W201"},
		{"index with path", []Route{{Index: true, Path: "a"}}, "W202"},
		{"duplicate id", []Route{{Path: "/a", ID: "x"}, {Path: "/b", ID: "x"}}, "W203"},
		{"unknown param type", []Route{{Path: "/:id", ParamTypes: map[string]string{"id": "date"}}}, "W204"},
		{"empty", nil, "W205"},
		{"bad pattern", []Route{{Path: "/*/a"}}, "W101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTree(tt.routes)
			if err == nil {
				t.Fatal("NewTree() error = nil")
			}
			var e *rerrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *errors.Error", err)
			}
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
		})
	}

	_, err := NewTree([]Route{{Index: true, Path: "a"}})
	if !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("errors.Is(err, ErrInvalidRoute) = false")
	}
}

func TestBranchesRanked(t *testing.T) {
	tree := MustNewTree([]Route{
		{Path: "/files/*", ID: "splat"},
		{Path: "/files/:name", ID: "name"},
		{Path: "/files/readme", ID: "readme"},
	})

	var got []string
	for _, b := range tree.Branches() {
		got = append(got, b.Leaf().ID)
	}
	want := []string{"readme", "name", "splat"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("branch order = %v, want %v", got, want)
	}
}

func TestMatchCache(t *testing.T) {
	tree := MustNewTree(exampleRoutes(), WithMatchCache(8))

	first := tree.Match("/users/1")
	first[1].Params["id"] = "mutated"

	second := tree.Match("/users/1")
	if second[1].Params["id"] != "1" {
		t.Errorf("cached params were mutated: %v", second[1].Params)
	}
	if tree.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1", tree.CacheLen())
	}

	if tree.Match("/missing") != nil {
		t.Error("expected no match")
	}
	if tree.Match("/missing") != nil {
		t.Error("expected cached no match")
	}
	if tree.CacheLen() != 2 {
		t.Errorf("CacheLen() = %d, want 2", tree.CacheLen())
	}

	if n := MustNewTree(exampleRoutes()).CacheLen(); n != 0 {
		t.Errorf("uncached CacheLen() = %d", n)
	}
}

func TestMatchRoutes(t *testing.T) {
	matches, err := MatchRoutes(exampleRoutes(), "/users/3")
	if err != nil {
		t.Fatalf("MatchRoutes() error: %v", err)
	}
	leaf, ok := Leaf(matches)
	if !ok || leaf.RouteID() != "user" {
		t.Errorf("leaf = %v, want user", leaf.RouteID())
	}
}

func TestTreeWalk(t *testing.T) {
	tree := MustNewTree(exampleRoutes())
	var ids []string
	tree.Walk(func(r *Route, depth int) {
		ids = append(ids, r.ID)
	})
	want := []string{"root", "home", "user", "files"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Walk = %v, want %v", ids, want)
	}
}
