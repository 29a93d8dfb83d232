package navigation

import (
	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
)

// Phase is the state of a navigation, revalidation or fetcher.
type Phase string

const (
	Idle       Phase = "idle"
	Loading    Phase = "loading"
	Submitting Phase = "submitting"
)

// Pending describes the navigation in flight.
type Pending struct {
	Phase      Phase
	Location   history.Location
	Submission *datastrategy.Submission
}

// Fetcher is the published state of a fetcher.
type Fetcher struct {
	Phase      Phase
	Data       any
	Err        error
	Submission *datastrategy.Submission
	RouteID    string
	Href       string
}

// State is the router's published state. Values handed out by State
// and Subscribe are copies.
type State struct {
	HistoryAction history.Action
	Location      history.Location
	Matches       []router.Match
	Initialized   bool

	// Navigation is the pending navigation; Phase is Idle when none.
	Navigation Pending

	// Revalidation is Loading while an explicit revalidation runs.
	Revalidation Phase

	LoaderData map[string]any
	ActionData map[string]any

	// Errors are keyed by the boundary route that renders them.
	Errors map[string]error

	// Error is a *NoMatchError or a fatal (unbounded) error.
	Error error

	Fetchers map[string]Fetcher

	PreventScrollReset bool
}

// LoaderDataFor returns the loader data of routeID.
func (s State) LoaderDataFor(routeID string) (any, bool) {
	v, ok := s.LoaderData[routeID]
	return v, ok
}

// Fatal reports whether State.Error is a fatal error rather than a
// missing match.
func (s State) Fatal() bool {
	if s.Error == nil {
		return false
	}
	_, noMatch := s.Error.(*NoMatchError)
	return !noMatch
}

func (s State) clone() State {
	out := s
	out.Matches = cloneMatches(s.Matches)
	out.LoaderData = cloneMap(s.LoaderData)
	out.ActionData = cloneMap(s.ActionData)
	if s.Errors != nil {
		out.Errors = make(map[string]error, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	out.Fetchers = make(map[string]Fetcher, len(s.Fetchers))
	for k, v := range s.Fetchers {
		out.Fetchers[k] = v
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneMatches(in []router.Match) []router.Match {
	if in == nil {
		return nil
	}
	out := make([]router.Match, len(in))
	for i, m := range in {
		out[i] = m
		out[i].Params = m.Params.Clone()
	}
	return out
}
