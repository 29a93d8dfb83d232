package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryPattern Category = "pattern"
	CategoryRoute   Category = "route"
	CategoryConfig  Category = "config"
)

// Location identifies where in a route definition the error occurred.
type Location struct {
	// File is the route config file, if the tree was loaded from one.
	File string

	// RouteID is the ID of the offending route.
	RouteID string

	// Template is the route's path template.
	Template string
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	var s string
	if l.RouteID != "" {
		s = "route " + l.RouteID
		if l.Template != "" {
			s += " (" + l.Template + ")"
		}
	} else if l.Template != "" {
		s = fmt.Sprintf("%q", l.Template)
	}
	if l.File != "" {
		if s == "" {
			return l.File
		}
		return l.File + ": " + s
	}
	return s
}

// Error is a structured configuration error with location and suggestions.
type Error struct {
	// Code is a unique error identifier (e.g., "W101").
	Code string

	// Category is the error type (pattern, route, config).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location points at the offending route definition.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if loc := e.Location.String(); loc != "" {
		msg += " [" + loc + "]"
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithRoute records the route the error belongs to.
func (e *Error) WithRoute(id, template string) *Error {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.RouteID = id
	e.Location.Template = template
	return e
}

// WithTemplate records the path template without a route ID.
func (e *Error) WithTemplate(template string) *Error {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.Template = template
	return e
}

// WithFile records the config file the route was loaded from.
func (e *Error) WithFile(file string) *Error {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.File = file
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(code).Wrap(err)
}
