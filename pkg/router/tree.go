package router

import (
	"errors"
	"strconv"
	"strings"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/pattern"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// IndexBonus is added to the score of a branch ending in an index route.
const IndexBonus = 2

// routeNode is a validated route with its compiled patterns.
type routeNode struct {
	route  *Route
	parent *routeNode
	order  []int

	// Patterns per exploded variant of route.Path.
	variants []string
	prefix   []*pattern.Pattern
	end      []*pattern.Pattern
}

// level is one route of a branch, compiled as prefix or end.
type level struct {
	node    *routeNode
	pattern *pattern.Pattern
}

// Branch is a root-to-route chain that can end a match.
type Branch struct {
	levels []level

	path          string
	score         int
	segmentScores []int
	hasSplat      bool
	order         []int
	variant       int
}

// Path returns the branch's full template, e.g. "/users/:id".
func (b *Branch) Path() string { return b.path }

// Score returns the branch's total specificity.
func (b *Branch) Score() int { return b.score }

// SegmentScores returns the per-segment scores in order.
func (b *Branch) SegmentScores() []int { return b.segmentScores }

// HasSplat reports whether any level ends in a splat.
func (b *Branch) HasSplat() bool { return b.hasSplat }

// Order returns the children-index path of the leaf route.
func (b *Branch) Order() []int { return b.order }

// Routes returns the routes of the branch, root first.
func (b *Branch) Routes() []*Route {
	out := make([]*Route, len(b.levels))
	for i, l := range b.levels {
		out[i] = l.node.route
	}
	return out
}

// Leaf returns the route that ends the branch.
func (b *Branch) Leaf() *Route {
	return b.levels[len(b.levels)-1].node.route
}

// buildNodes validates routes, assigns IDs and compiles patterns.
func (t *Tree) buildNodes(routes []Route, parent *routeNode, parentOrder []int) ([]*routeNode, error) {
	nodes := make([]*routeNode, 0, len(routes))
	for i := range routes {
		src := routes[i]
		order := append(append([]int(nil), parentOrder...), i)

		r := src
		r.Children = nil
		if r.ID == "" {
			r.ID = orderID(order)
		}
		if r.ParamTypes != nil {
			types := make(map[string]string, len(src.ParamTypes))
			for k, v := range src.ParamTypes {
				types[k] = v
			}
			r.ParamTypes = types
		}

		if err := validateRoute(&src, r.ID); err != nil {
			return nil, err
		}
		if _, dup := t.byID[r.ID]; dup {
			return nil, rerrors.New("W203").
				WithRoute(r.ID, r.Path).
				WithDetail("route ID " + strconv.Quote(r.ID) + " is used more than once").
				Wrap(ErrInvalidRoute)
		}

		node := &routeNode{route: &r, parent: parent, order: order}
		if err := t.compile(node); err != nil {
			return nil, err
		}
		t.byID[r.ID] = node

		children, err := t.buildNodes(src.Children, node, order)
		if err != nil {
			return nil, err
		}
		r.Children = make([]Route, 0, len(children))
		for _, c := range children {
			r.Children = append(r.Children, *c.route)
		}
		t.children[r.ID] = children
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func orderID(order []int) string {
	parts := make([]string, len(order))
	for i, n := range order {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

func validateRoute(r *Route, id string) error {
	if r.Index && len(r.Children) > 0 {
		return rerrors.New("W201").WithRoute(id, r.Path).Wrap(ErrInvalidRoute)
	}
	if r.Index && r.Path != "" {
		return rerrors.New("W202").WithRoute(id, r.Path).Wrap(ErrInvalidRoute)
	}
	for name, typ := range r.ParamTypes {
		if !IsKnownParamType(typ) {
			return rerrors.New("W204").
				WithRoute(id, r.Path).
				WithDetail("parameter " + strconv.Quote(name) + " has type " + strconv.Quote(typ)).
				Wrap(ErrInvalidRoute)
		}
	}
	return nil
}

func (t *Tree) compile(node *routeNode) error {
	r := node.route
	variants, err := pattern.Explode(r.Path)
	if err != nil {
		var e *rerrors.Error
		if errors.As(err, &e) {
			e.WithRoute(r.ID, r.Path)
		}
		return err
	}

	node.variants = variants
	for _, v := range variants {
		prefix, err := pattern.Compile(v, pattern.Options{CaseSensitive: r.CaseSensitive})
		if err != nil {
			return err
		}
		end, err := pattern.Compile(v, pattern.Options{CaseSensitive: r.CaseSensitive, End: true, Strict: r.Strict})
		if err != nil {
			return err
		}
		node.prefix = append(node.prefix, prefix)
		node.end = append(node.end, end)
	}
	return nil
}

// flatten collects the branches ending at nodes and their descendants.
// Ancestor levels use prefix patterns; the leaf uses its end pattern.
func (t *Tree) flatten(nodes []*routeNode, ancestors []level) {
	for _, node := range nodes {
		for vi := range node.variants {
			if !node.route.IsPathless() {
				leaf := level{node: node, pattern: node.end[vi]}
				t.branches = append(t.branches, newBranch(append(cloneLevels(ancestors), leaf), vi))
			}
			children := t.children[node.route.ID]
			if len(children) > 0 {
				t.flatten(children, append(cloneLevels(ancestors), level{node: node, pattern: node.prefix[vi]}))
			}
		}
	}
}

func cloneLevels(in []level) []level {
	return append(make([]level, 0, len(in)+1), in...)
}

func newBranch(levels []level, variant int) *Branch {
	b := &Branch{levels: levels, variant: variant}

	parts := make([]string, 0, len(levels)+1)
	parts = append(parts, "/")
	for _, l := range levels {
		parts = append(parts, l.pattern.Template())
		b.score += l.pattern.Score()
		b.segmentScores = append(b.segmentScores, l.pattern.SegmentScores()...)
		if l.pattern.HasSplat() {
			b.hasSplat = true
		}
	}
	b.path = routepath.JoinPaths(parts...)

	leaf := levels[len(levels)-1].node
	if leaf.route.Index {
		b.score += IndexBonus
	}
	b.order = leaf.order
	return b
}

// matchBranch matches pathname against b, level by level, the way
// nested routes consume the pathname: each level matches the remainder
// left after its parent's PathnameBase.
func matchBranch(b *Branch, pathname string) []Match {
	params := make(Params)
	matchedPathname := "/"
	matches := make([]Match, 0, len(b.levels))

	for _, l := range b.levels {
		remaining := pathname
		if matchedPathname != "/" {
			remaining = pathname[len(matchedPathname):]
		}
		if remaining == "" {
			remaining = "/"
		}

		m := l.pattern.Match(remaining)
		if m == nil {
			return nil
		}
		for k, v := range m.Params {
			params[k] = v
		}

		matches = append(matches, Match{
			Route:        l.node.route,
			Pathname:     joinMatched(matchedPathname, m.Pathname),
			PathnameBase: routepath.NormalizePathname(joinMatched(matchedPathname, m.PathnameBase)),
		})

		if m.PathnameBase != "/" {
			matchedPathname = routepath.JoinPaths(matchedPathname, m.PathnameBase)
		}
	}

	for _, l := range b.levels {
		for name, typ := range l.node.route.ParamTypes {
			value, ok := params[name]
			if !ok {
				continue
			}
			if ValidateParam(value, typ) != nil {
				return nil
			}
		}
	}

	for i := range matches {
		matches[i].Params = params.Clone()
	}
	return matches
}

func joinMatched(base, p string) string {
	if p == "/" || p == "" {
		return base
	}
	return routepath.JoinPaths(base, p)
}

// compareBranches orders a before b when it returns a negative number.
func compareBranches(a, b *Branch, tie TieBreaker) int {
	if a.score != b.score {
		return b.score - a.score
	}
	if c := compareSegmentScores(a.segmentScores, b.segmentScores); c != 0 {
		return c
	}
	if a.hasSplat != b.hasSplat {
		if a.hasSplat {
			return 1
		}
		return -1
	}
	if c := tie(a, b); c != 0 {
		return c
	}
	return a.variant - b.variant
}

// compareSegmentScores sorts higher per-segment scores first; on a shared
// prefix the longer list wins.
func compareSegmentScores(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return b[i] - a[i]
		}
	}
	return len(b) - len(a)
}

// TieBreaker orders branches that have identical specificity.
type TieBreaker func(a, b *Branch) int

// DeclarationOrder prefers the branch whose leaf was declared first.
// A descendant is ordered before its ancestor.
func DeclarationOrder(a, b *Branch) int {
	for i := 0; i < len(a.order) && i < len(b.order); i++ {
		if a.order[i] != b.order[i] {
			return a.order[i] - b.order[i]
		}
	}
	return len(b.order) - len(a.order)
}
