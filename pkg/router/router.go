package router

import (
	"errors"
	"slices"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
)

// ErrInvalidRoute is wrapped by every route definition error.
var ErrInvalidRoute = errors.New("invalid route definition")

// Tree is a validated, compiled and ranked route tree. It is immutable
// after NewTree and safe for concurrent use.
type Tree struct {
	roots    []*routeNode
	byID     map[string]*routeNode
	children map[string][]*routeNode
	branches []*Branch

	tieBreaker TieBreaker
	cache      *MatchCache
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithTieBreaker overrides how branches of equal specificity are
// ordered. The default is DeclarationOrder.
func WithTieBreaker(tb TieBreaker) TreeOption {
	return func(t *Tree) {
		if tb != nil {
			t.tieBreaker = tb
		}
	}
}

// WithMatchCache caches the results of Match for up to size pathnames.
func WithMatchCache(size int) TreeOption {
	return func(t *Tree) {
		if c, err := NewMatchCache(size); err == nil {
			t.cache = c
		}
	}
}

// NewTree validates routes and builds a Tree. The caller's routes are
// copied; IDs are assigned to routes that have none.
func NewTree(routes []Route, opts ...TreeOption) (*Tree, error) {
	if len(routes) == 0 {
		return nil, rerrors.New("W205").Wrap(ErrInvalidRoute)
	}

	t := &Tree{
		byID:       make(map[string]*routeNode),
		children:   make(map[string][]*routeNode),
		tieBreaker: DeclarationOrder,
	}
	for _, opt := range opts {
		opt(t)
	}

	roots, err := t.buildNodes(routes, nil, nil)
	if err != nil {
		return nil, err
	}
	t.roots = roots

	t.flatten(roots, nil)
	slices.SortStableFunc(t.branches, func(a, b *Branch) int {
		return compareBranches(a, b, t.tieBreaker)
	})
	return t, nil
}

// MustNewTree is like NewTree but panics on error.
func MustNewTree(routes []Route, opts ...TreeOption) *Tree {
	t, err := NewTree(routes, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the matched branch for pathname, root first, or nil
// when nothing matches. The pathname must not include a search or hash
// and should already be canonical (see routepath.CanonicalizePath).
// Every returned match carries its own copy of the merged params.
func (t *Tree) Match(pathname string) []Match {
	if pathname == "" {
		pathname = "/"
	}
	if t.cache != nil {
		if cached, ok := t.cache.Get(pathname); ok {
			return cloneMatches(cached)
		}
	}

	var matches []Match
	for _, b := range t.branches {
		if matches = matchBranch(b, pathname); matches != nil {
			break
		}
	}

	if t.cache != nil {
		t.cache.Add(pathname, cloneMatches(matches))
	}
	return matches
}

// CacheLen returns the number of cached pathnames, 0 without a cache.
func (t *Tree) CacheLen() int {
	if t.cache == nil {
		return 0
	}
	return t.cache.Len()
}

// Branches returns the ranked branches, most specific first.
func (t *Tree) Branches() []*Branch {
	return slices.Clone(t.branches)
}

// Routes returns the top-level routes.
func (t *Tree) Routes() []*Route {
	out := make([]*Route, len(t.roots))
	for i, n := range t.roots {
		out[i] = n.route
	}
	return out
}

// Route returns the route with the given ID.
func (t *Tree) Route(id string) (*Route, bool) {
	n, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return n.route, true
}

// Parent returns the parent of the route with the given ID, or nil for
// a top-level or unknown route.
func (t *Tree) Parent(id string) *Route {
	n, ok := t.byID[id]
	if !ok || n.parent == nil {
		return nil
	}
	return n.parent.route
}

// Walk visits every route depth-first, parents before children.
func (t *Tree) Walk(fn func(r *Route, depth int)) {
	var walk func(nodes []*routeNode, depth int)
	walk = func(nodes []*routeNode, depth int) {
		for _, n := range nodes {
			fn(n.route, depth)
			walk(t.children[n.route.ID], depth+1)
		}
	}
	walk(t.roots, 0)
}

// MatchRoutes builds a tree from routes and matches pathname once.
func MatchRoutes(routes []Route, pathname string) ([]Match, error) {
	t, err := NewTree(routes)
	if err != nil {
		return nil, err
	}
	return t.Match(pathname), nil
}
