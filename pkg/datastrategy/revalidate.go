package datastrategy

import (
	"net/url"
	"strings"

	"github.com/vango-dev/waypoint/pkg/pattern"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// RevalidationInput describes a transition for MatchesToLoad.
type RevalidationInput struct {
	CurrentMatches []router.Match
	CurrentHref    string
	NextMatches    []router.Match
	NextHref       string

	// LoaderData is the data currently held, keyed by route ID. Routes
	// without an entry are loaded unconditionally.
	LoaderData map[string]any

	Submission   *Submission
	ActionResult any
	ActionError  error

	// ActionErrorBoundary limits loading to routes above it.
	ActionErrorBoundary string

	// ForceRevalidate is set by explicit revalidation.
	ForceRevalidate bool
}

// MatchesToLoad returns the next matches whose loaders must run.
//
// A route is always loaded when it is new to the match or has no data.
// Otherwise it reloads by default when the URL is unchanged (a reload),
// the search changed, its own pathname or splat changed, a mutation was
// submitted, or revalidation was forced; Route.ShouldRevalidate may
// overrule that default.
func MatchesToLoad(in RevalidationInput) []router.Match {
	next := in.NextMatches
	if in.ActionErrorBoundary != "" {
		next = matchesAboveBoundary(next, in.ActionErrorBoundary)
	}

	cur := routepath.Parse(in.CurrentHref)
	nxt := routepath.Parse(in.NextHref)
	curURL, _ := url.Parse(in.CurrentHref)
	nextURL, _ := url.Parse(in.NextHref)

	forced := in.ForceRevalidate || in.Submission.IsMutation()
	sameURL := cur.Pathname == nxt.Pathname && cur.Search == nxt.Search
	searchChanged := cur.Search != nxt.Search

	var out []router.Match
	for i, m := range next {
		if m.Route.Loader == nil {
			continue
		}

		var current *router.Match
		if i < len(in.CurrentMatches) && in.CurrentMatches[i].Route.ID == m.Route.ID {
			current = &in.CurrentMatches[i]
		}
		if current == nil {
			out = append(out, m)
			continue
		}
		if _, ok := in.LoaderData[m.Route.ID]; !ok {
			out = append(out, m)
			continue
		}

		def := forced || sameURL || searchChanged || isNewRouteInstance(*current, m)
		if m.Route.ShouldRevalidate == nil {
			if def {
				out = append(out, m)
			}
			continue
		}

		args := router.ShouldRevalidateArgs{
			CurrentURL:              curURL,
			NextURL:                 nextURL,
			CurrentParams:           current.Params.Clone(),
			NextParams:              m.Params.Clone(),
			ActionResult:            in.ActionResult,
			ActionError:             in.ActionError,
			DefaultShouldRevalidate: def,
		}
		if in.Submission != nil {
			args.FormMethod = in.Submission.FormMethod()
		}
		if m.Route.ShouldRevalidate(args) {
			out = append(out, m)
		}
	}
	return out
}

func isNewRouteInstance(current, next router.Match) bool {
	if current.Pathname != next.Pathname {
		return true
	}
	return strings.HasSuffix(current.Route.Path, pattern.SplatParam) &&
		current.Params[pattern.SplatParam] != next.Params[pattern.SplatParam]
}

// RouteIDs returns the route IDs of matches in order.
func RouteIDs(matches []router.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Route.ID
	}
	return ids
}
