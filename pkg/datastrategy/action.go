package datastrategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vango-dev/waypoint/pkg/router"
)

// ErrNoMatches is returned when an action is requested for an empty match.
var ErrNoMatches = errors.New("no matched routes")

// ActionOutcome is the result of RunAction.
type ActionOutcome struct {
	// RouteID is the route whose action ran (or should have).
	RouteID  string
	Result   Result
	Redirect *router.RedirectError
}

// TargetMatch returns the match a submission is addressed to: the leaf,
// except that an index leaf only receives submissions carrying a bare
// "index" search param; otherwise the nearest route with a path does.
func TargetMatch(matches []router.Match, search string) (router.Match, bool) {
	leaf, ok := router.Leaf(matches)
	if !ok {
		return router.Match{}, false
	}
	if leaf.Route.Index && hasNakedIndexQuery(search) {
		return leaf, true
	}

	var target router.Match
	for i, m := range matches {
		if i == 0 || m.Route.Path != "" {
			target = m
		}
	}
	return target, true
}

func hasNakedIndexQuery(search string) bool {
	q, err := url.ParseQuery(trimQuestion(search))
	if err != nil {
		return false
	}
	for _, v := range q["index"] {
		if v == "" {
			return true
		}
	}
	return false
}

func trimQuestion(s string) string {
	if len(s) > 0 && s[0] == '?' {
		return s[1:]
	}
	return s
}

// RunAction runs the action of the submission's target route. A target
// without an action yields a 405 *router.ErrorResponse in the Result.
func (e *Executor) RunAction(ctx context.Context, req *http.Request, matches []router.Match, opts ...CallOption) (*ActionOutcome, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	target, ok := TargetMatch(matches, req.URL.RawQuery)
	if !ok {
		return nil, ErrNoMatches
	}

	out := &ActionOutcome{RouteID: target.Route.ID}
	if target.Route.Action == nil {
		out.Result = Result{
			Err: &router.ErrorResponse{
				Status:     http.StatusMethodNotAllowed,
				StatusText: http.StatusText(http.StatusMethodNotAllowed),
				Data: fmt.Sprintf("You made a %s request to %q but did not provide an action for route %q, so there is no way to handle the request.",
					req.Method, req.URL.Path, target.Route.ID),
				Internal: true,
			},
			Status: http.StatusMethodNotAllowed,
		}
		return out, nil
	}

	i := 0
	for j, m := range matches {
		if m.Route.ID == target.Route.ID {
			i = j
		}
	}

	res, redirect := e.invoke(ctx, router.KindAction, req, matches, i, target.Route.Action, co)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Result = res
	out.Redirect = redirect
	return out, nil
}
