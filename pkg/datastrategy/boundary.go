package datastrategy

import (
	"fmt"

	"github.com/vango-dev/waypoint/pkg/router"
)

// UnhandledError is an error thrown by a route that has no error
// boundary above it.
type UnhandledError struct {
	RouteID string
	Err     error
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("unhandled error in route %s: %v", e.RouteID, e.Err)
}

func (e *UnhandledError) Unwrap() error {
	return e.Err
}

// FindBoundary returns the ID of the nearest ancestor-or-self of routeID
// in matches that has ErrorBoundary set.
func FindBoundary(matches []router.Match, routeID string) (string, bool) {
	end := -1
	for i, m := range matches {
		if m.Route.ID == routeID {
			end = i
			break
		}
	}
	for i := end; i >= 0; i-- {
		if matches[i].Route.ErrorBoundary {
			return matches[i].Route.ID, true
		}
	}
	return "", false
}

// matchesAboveBoundary returns the matches strictly above boundaryID.
func matchesAboveBoundary(matches []router.Match, boundaryID string) []router.Match {
	for i, m := range matches {
		if m.Route.ID == boundaryID {
			return matches[:i]
		}
	}
	return matches
}
