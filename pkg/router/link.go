package router

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/vango-dev/waypoint/pkg/pattern"
)

// GeneratePath fills template with params. Optional segments whose
// param is missing are dropped; a missing required param is an error.
//
//	GeneratePath("/users/:id", Params{"id": "42"})       // "/users/42"
//	GeneratePath("/files/*", Params{"*": "a/b.txt"})     // "/files/a/b.txt"
//	GeneratePath("/:lang?/about", nil)                   // "/about"
func GeneratePath(template string, params Params) (string, error) {
	segments, err := pattern.Parse(template)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg.Kind {
		case pattern.Static, pattern.OptionalStatic:
			parts = append(parts, seg.Value)
		case pattern.Dynamic, pattern.OptionalDynamic:
			value, ok := params[seg.Value]
			if !ok || value == "" {
				if seg.IsOptional() {
					continue
				}
				return "", fmt.Errorf("missing param %q for %q", seg.Value, template)
			}
			parts = append(parts, url.PathEscape(value))
		case pattern.Splat:
			value := params[pattern.SplatParam]
			if value == "" {
				continue
			}
			splat := strings.Split(strings.TrimPrefix(value, "/"), "/")
			for i, s := range splat {
				splat[i] = url.PathEscape(s)
			}
			parts = append(parts, strings.Join(splat, "/"))
		}
	}
	return "/" + strings.Join(parts, "/"), nil
}

// Href builds a link target from template, params and query values.
// Query keys are written in sorted order.
func Href(template string, params Params, query map[string]any) (string, error) {
	path, err := GeneratePath(template, params)
	if err != nil {
		return "", err
	}
	if len(query) == 0 {
		return path, nil
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Set(k, fmt.Sprintf("%v", query[k]))
	}
	return path + "?" + q.Encode(), nil
}
