package pattern

import (
	"errors"
	"regexp"
	"strings"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
)

// ErrInvalidPattern is wrapped by every error Compile returns.
var ErrInvalidPattern = errors.New("invalid path pattern")

// SplatParam is the params key holding a splat's value.
const SplatParam = "*"

// SegmentKind classifies a template segment.
type SegmentKind int

const (
	Static SegmentKind = iota
	Dynamic
	OptionalDynamic
	OptionalStatic
	Splat
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case OptionalDynamic:
		return "optional-dynamic"
	case OptionalStatic:
		return "optional-static"
	case Splat:
		return "splat"
	default:
		return "unknown"
	}
}

// Segment is one parsed template segment. Value is the literal text for
// static kinds and the parameter name for dynamic kinds.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// IsOptional reports whether the segment may be absent.
func (s Segment) IsOptional() bool {
	return s.Kind == OptionalDynamic || s.Kind == OptionalStatic
}

// String renders the segment back to template syntax.
func (s Segment) String() string {
	switch s.Kind {
	case Dynamic:
		return ":" + s.Value
	case OptionalDynamic:
		return ":" + s.Value + "?"
	case OptionalStatic:
		return s.Value + "?"
	case Splat:
		return "*"
	default:
		return s.Value
	}
}

var paramNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Parse splits a template into classified segments. Empty segments
// (leading, trailing or repeated slashes) are dropped.
func Parse(template string) ([]Segment, error) {
	raw := strings.Split(template, "/")
	segments := make([]Segment, 0, len(raw))
	seen := make(map[string]bool)

	for i, part := range raw {
		if part == "" {
			continue
		}

		if part == "*" {
			if hasNonEmpty(raw[i+1:]) {
				return nil, invalid("W101", template)
			}
			segments = append(segments, Segment{Kind: Splat, Value: SplatParam})
			continue
		}
		if strings.Contains(part, "*") {
			return nil, invalid("W102", template)
		}

		optional := strings.HasSuffix(part, "?")
		body := strings.TrimSuffix(part, "?")
		if strings.Contains(body, "?") || body == "" {
			return nil, invalid("W105", template)
		}

		if strings.HasPrefix(body, ":") {
			name := body[1:]
			if !paramNameRe.MatchString(name) {
				return nil, invalid("W104", template).
					WithDetail("Parameter " + `"` + name + `"` + " must match [A-Za-z0-9_-]+.")
			}
			if seen[name] {
				return nil, invalid("W103", template).
					WithSuggestion(`Rename one of the ":` + name + `" segments`)
			}
			seen[name] = true
			kind := Dynamic
			if optional {
				kind = OptionalDynamic
			}
			segments = append(segments, Segment{Kind: kind, Value: name})
			continue
		}

		kind := Static
		if optional {
			kind = OptionalStatic
		}
		segments = append(segments, Segment{Kind: kind, Value: body})
	}

	return segments, nil
}

func hasNonEmpty(parts []string) bool {
	for _, p := range parts {
		if p != "" {
			return true
		}
	}
	return false
}

func invalid(code, template string) *rerrors.Error {
	return rerrors.New(code).WithTemplate(template).Wrap(ErrInvalidPattern)
}

// Explode expands optional segments into every concrete template they
// stand for, longest first:
//
//	Explode("a/:b?/:c?") // ["a/:b/:c", "a/:b", "a/:c", "a"]
//
// Templates without optional segments come back unchanged as a single
// element. Leading-slash templates keep their leading slash, and a fully
// collapsed one becomes "/".
func Explode(template string) ([]string, error) {
	segments, err := Parse(template)
	if err != nil {
		return nil, err
	}
	hasOptional := false
	for _, s := range segments {
		if s.IsOptional() {
			hasOptional = true
			break
		}
	}
	if !hasOptional {
		return []string{template}, nil
	}

	variants := explode(segments)
	out := make([]string, len(variants))
	leading := strings.HasPrefix(template, "/")
	for i, v := range variants {
		s := strings.Join(v, "/")
		if leading {
			s = "/" + s
		}
		out[i] = s
	}
	return out, nil
}

func explode(segments []Segment) [][]string {
	if len(segments) == 0 {
		return [][]string{nil}
	}
	first := segments[0]
	required := first
	switch first.Kind {
	case OptionalDynamic:
		required.Kind = Dynamic
	case OptionalStatic:
		required.Kind = Static
	}

	rest := explode(segments[1:])
	out := make([][]string, 0, len(rest)*2)
	for _, r := range rest {
		out = append(out, append([]string{required.String()}, r...))
	}
	if first.IsOptional() {
		out = append(out, rest...)
	}
	return out
}
