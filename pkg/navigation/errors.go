package navigation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/waypoint/pkg/router"
)

var (
	// ErrSuperseded is returned by a navigation or fetch that lost to a
	// newer one. It never reaches State.
	ErrSuperseded = errors.New("navigation superseded")

	// ErrBlocked is returned when a blocker rejected the navigation.
	ErrBlocked = errors.New("navigation blocked")

	// ErrRouterErrored is returned while the router holds a fatal error.
	// Call Reset to recover.
	ErrRouterErrored = errors.New("router is in a fatal error state")

	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("router disposed")

	// ErrTooManyRedirects is returned when redirects exceed MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrUnknownRoute is returned for a route ID that isn't matched.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrExternalRedirect is returned when a redirect leaves the app or
	// asks for a document reload; the host must load the URL itself.
	ErrExternalRedirect = errors.New("external redirect")
)

// NoMatchError is set as State.Error when no route matches the location.
type NoMatchError struct {
	Pathname string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no route matches URL %q", e.Pathname)
}

// Unwrap exposes the error as a 404 *router.ErrorResponse.
func (e *NoMatchError) Unwrap() error {
	return &router.ErrorResponse{
		Status:     http.StatusNotFound,
		StatusText: http.StatusText(http.StatusNotFound),
		Data:       e.Error(),
		Internal:   true,
	}
}

// ExternalRedirectError carries the target of an external redirect.
type ExternalRedirectError struct {
	Location string
}

func (e *ExternalRedirectError) Error() string {
	return fmt.Sprintf("%s to %s", ErrExternalRedirect, e.Location)
}

func (e *ExternalRedirectError) Is(target error) bool {
	return target == ErrExternalRedirect
}
