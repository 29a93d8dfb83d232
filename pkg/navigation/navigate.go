package navigation

import (
	"fmt"
	"net/url"

	"github.com/vango-dev/waypoint/pkg/datastrategy"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	// Nil lets the router decide.
	Replace *bool

	// State is stored on the new history entry.
	State any

	// Params are query parameters to add to the URL.
	Params map[string]any

	// Submission turns the navigation into a form submission.
	Submission *datastrategy.Submission

	// PreventScrollReset asks the rendering layer to keep scroll.
	PreventScrollReset bool

	// From resolves a relative target against this pathname instead of
	// the current location.
	From string
}

// NavigateOption is a functional option for Navigate and Fetch.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		replace := true
		o.Replace = &replace
	}
}

// WithPush forces a new history entry.
func WithPush() NavigateOption {
	return func(o *NavigateOptions) {
		replace := false
		o.Replace = &replace
	}
}

// WithState stores state on the new history entry.
func WithState(state any) NavigateOption {
	return func(o *NavigateOptions) {
		o.State = state
	}
}

// WithParams adds query parameters to the navigation URL.
func WithParams(params map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Params = params
	}
}

// WithSubmission submits s to the target route.
func WithSubmission(s *datastrategy.Submission) NavigateOption {
	return func(o *NavigateOptions) {
		o.Submission = s
	}
}

// WithFormData submits form values with method.
func WithFormData(method string, data url.Values) NavigateOption {
	return WithSubmission(&datastrategy.Submission{Method: method, FormData: data})
}

// WithJSON submits v as JSON with method.
func WithJSON(method string, v any) NavigateOption {
	return WithSubmission(&datastrategy.Submission{Method: method, JSON: v})
}

// WithPreventScrollReset keeps the scroll position after navigation.
func WithPreventScrollReset() NavigateOption {
	return func(o *NavigateOptions) {
		o.PreventScrollReset = true
	}
}

// WithRelative resolves a relative target against from.
func WithRelative(from string) NavigateOption {
	return func(o *NavigateOptions) {
		o.From = from
	}
}

func buildOptions(opts []NavigateOption) NavigateOptions {
	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BuildURL resolves to against from and applies query params and a GET
// submission.
func (o NavigateOptions) BuildURL(to, from string) (string, error) {
	if o.From != "" {
		from = o.From
	}
	p := routepath.Resolve(to, from)

	if o.Params != nil {
		u, err := url.Parse(p.String())
		if err != nil {
			return "", fmt.Errorf("invalid path: %s", to)
		}
		q := u.Query()
		for k, v := range o.Params {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		p.Search = ""
		if encoded := q.Encode(); encoded != "" {
			p.Search = "?" + encoded
		}
	}

	return datastrategy.ApplyGetSubmission(p.String(), o.Submission), nil
}
