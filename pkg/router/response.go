package router

import (
	"errors"
	"fmt"
	"net/http"
)

// RedirectError is returned (or wrapped) by a loader or action to abort
// the current navigation and start a new one at Location.
type RedirectError struct {
	Location string
	Status   int

	// Replace asks for the redirect to replace the current history entry.
	Replace bool

	// ReloadDocument asks the rendering layer for a full document load.
	ReloadDocument bool
}

// Error implements error.
func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect %d to %s", e.Status, e.Location)
}

// RedirectOption configures a redirect.
type RedirectOption func(*RedirectError)

// RedirectStatus sets the redirect status code (default 302).
func RedirectStatus(status int) RedirectOption {
	return func(r *RedirectError) {
		r.Status = status
	}
}

// RedirectReplace makes the redirect replace the current history entry.
func RedirectReplace() RedirectOption {
	return func(r *RedirectError) {
		r.Replace = true
	}
}

// RedirectDocument asks for a full document reload.
func RedirectDocument() RedirectOption {
	return func(r *RedirectError) {
		r.ReloadDocument = true
	}
}

// Redirect returns a redirect signal for loaders and actions:
//
//	func loader(ctx context.Context, args router.Args) (any, error) {
//	    if !loggedIn(args.Request) {
//	        return nil, router.Redirect("/login")
//	    }
//	    ...
//	}
func Redirect(location string, opts ...RedirectOption) error {
	r := &RedirectError{Location: location, Status: http.StatusFound}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsRedirectStatus reports whether status is a redirect status the
// router follows.
func IsRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Response lets a loader or action return data together with a status
// and headers. A redirect status with a Location header is treated as
// a redirect.
type Response struct {
	Status int
	Header http.Header
	Data   any
}

// JSON returns a 200 Response carrying data.
func JSON(data any) *Response {
	return &Response{Status: http.StatusOK, Data: data}
}

// AsRedirect extracts a redirect from a loader or action result.
func AsRedirect(data any, err error) (*RedirectError, bool) {
	var redirect *RedirectError
	if err != nil && errors.As(err, &redirect) {
		return redirect, true
	}
	if resp, ok := data.(*Response); ok && resp != nil && IsRedirectStatus(resp.Status) {
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, false
		}
		return &RedirectError{
			Location:       location,
			Status:         resp.Status,
			Replace:        resp.Header.Get("X-Waypoint-Replace") != "",
			ReloadDocument: resp.Header.Get("X-Waypoint-Reload-Document") != "",
		}, true
	}
	return nil, false
}

// UnwrapData returns the payload of a *Response, or data unchanged.
func UnwrapData(data any) any {
	if resp, ok := data.(*Response); ok && resp != nil {
		return resp.Data
	}
	return data
}

// ErrorResponse is an error carrying an HTTP-like status, e.g. a 404
// thrown by a loader that could not find its record.
type ErrorResponse struct {
	Status     int
	StatusText string
	Data       any

	// Internal marks errors produced by the router itself (405, 404).
	Internal bool
}

// Error implements error.
func (e *ErrorResponse) Error() string {
	text := e.StatusText
	if text == "" {
		text = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%d %s", e.Status, text)
}

// NewErrorResponse returns an ErrorResponse with the standard status text.
func NewErrorResponse(status int, data any) *ErrorResponse {
	return &ErrorResponse{Status: status, StatusText: http.StatusText(status), Data: data}
}

// IsErrorResponse reports whether err is (or wraps) an ErrorResponse.
func IsErrorResponse(err error) (*ErrorResponse, bool) {
	var resp *ErrorResponse
	if errors.As(err, &resp) {
		return resp, true
	}
	return nil, false
}

// StatusOf returns the HTTP status an error maps to: the ErrorResponse
// status, or 500 for anything else.
func StatusOf(err error) int {
	if resp, ok := IsErrorResponse(err); ok {
		return resp.Status
	}
	return http.StatusInternalServerError
}
