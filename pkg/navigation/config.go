package navigation

import (
	"log/slog"
	"time"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
)

// DefaultMaxRedirects bounds a redirect chain.
const DefaultMaxRedirects = 20

// Navigation outcomes reported to NavigationMetrics.
const (
	OutcomeCommitted  = "committed"
	OutcomeSuperseded = "superseded"
	OutcomeBlocked    = "blocked"
	OutcomeCancelled  = "cancelled"
	OutcomeRedirect   = "external_redirect"
	OutcomeError      = "error"
)

// NavigationMetrics receives navigation and fetcher lifecycle events.
// middleware.Metrics is a Prometheus implementation.
type NavigationMetrics interface {
	NavigationStarted(action history.Action)
	NavigationFinished(action history.Action, outcome string, duration time.Duration)
	FetcherFinished(kind, outcome string, duration time.Duration)
}

// HydrationData seeds the state of a router whose data was loaded
// elsewhere (e.g. by a server render).
type HydrationData struct {
	LoaderData map[string]any
	ActionData map[string]any
	Errors     map[string]error
}

// Config configures a Router.
type Config struct {
	// Routes are built into a tree unless Tree is set.
	Routes      []router.Route
	TreeOptions []router.TreeOption
	Tree        *router.Tree

	// History defaults to a MemoryHistory at "/".
	History history.History

	// Basename is stripped before matching and prepended to history
	// entries.
	Basename string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Executor defaults to one built from Logger, Middleware and Context.
	Executor   *datastrategy.Executor
	Middleware []router.Middleware
	Context    any

	HydrationData *HydrationData

	// MaxRedirects defaults to DefaultMaxRedirects.
	MaxRedirects int

	Metrics NavigationMetrics
}
