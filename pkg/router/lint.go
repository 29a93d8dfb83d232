package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/waypoint/pkg/pattern"
)

// LintIssue is a problem found in a valid but suspicious route tree.
type LintIssue struct {
	// Type is the issue category
	Type LintIssueType

	// Message is the human-readable issue message
	Message string

	// Path is the branch template involved
	Path string

	// RouteIDs are the routes involved
	RouteIDs []string
}

func (e LintIssue) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// LintIssueType categorizes lint issues.
type LintIssueType string

const (
	// LintShadowedRoute indicates a branch can never match because an
	// earlier-ranked branch has the same shape.
	// Example: "users/:id" and "users/:userId" under the same parent.
	LintShadowedRoute LintIssueType = "SHADOWED_ROUTE"

	// LintParamConstraintConflict indicates one branch constrains the
	// same param to different types.
	LintParamConstraintConflict LintIssueType = "PARAM_CONSTRAINT_CONFLICT"
)

// Lint reports shadowed branches and conflicting param constraints.
// A tree with issues still works; ranking decides the winner.
func (t *Tree) Lint() []LintIssue {
	var issues []LintIssue

	seen := make(map[string]*Branch)
	for _, b := range t.branches {
		sig := branchSignature(b)
		if first, ok := seen[sig]; ok {
			issues = append(issues, LintIssue{
				Type:     LintShadowedRoute,
				Message:  fmt.Sprintf("route %s at %s is shadowed by route %s", b.Leaf().ID, b.Path(), first.Leaf().ID),
				Path:     b.Path(),
				RouteIDs: []string{first.Leaf().ID, b.Leaf().ID},
			})
			continue
		}
		seen[sig] = b
	}

	for _, b := range t.branches {
		types := make(map[string]string)
		owners := make(map[string]string)
		for _, r := range b.Routes() {
			for name, typ := range r.ParamTypes {
				if prev, ok := types[name]; ok && prev != typ && !(isStringType(prev) && isStringType(typ)) {
					issues = append(issues, LintIssue{
						Type:     LintParamConstraintConflict,
						Message:  fmt.Sprintf("param %q is %s in route %s but %s in route %s", name, prev, owners[name], typ, r.ID),
						Path:     b.Path(),
						RouteIDs: []string{owners[name], r.ID},
					})
					continue
				}
				types[name] = typ
				owners[name] = r.ID
			}
		}
	}
	return dedupeIssues(issues)
}

func isStringType(t string) bool {
	return t == "" || t == "string"
}

// branchSignature renders a branch's shape with param names erased.
func branchSignature(b *Branch) string {
	var sb strings.Builder
	for _, l := range b.levels {
		for _, seg := range l.pattern.Segments() {
			sb.WriteByte('/')
			switch seg.Kind {
			case pattern.Static:
				if l.pattern.Options().CaseSensitive {
					sb.WriteString(seg.Value)
				} else {
					sb.WriteString(strings.ToLower(seg.Value))
				}
			case pattern.Dynamic:
				sb.WriteByte(':')
			case pattern.Splat:
				sb.WriteByte('*')
			}
		}
	}
	leaf := b.levels[len(b.levels)-1]
	if leaf.node.route.Index {
		sb.WriteString("#index")
	}
	if leaf.pattern.Options().Strict && strings.HasSuffix(leaf.pattern.Template(), "/") {
		sb.WriteString("#slash")
	}
	return sb.String()
}

func dedupeIssues(in []LintIssue) []LintIssue {
	seen := make(map[string]bool)
	out := in[:0]
	for _, issue := range in {
		key := string(issue.Type) + issue.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	return out
}

// FormatLintIssue formats an issue for display:
//
//	WARNING: route user2 at /users/:userId is shadowed by route user
//	  routes: user, user2
func FormatLintIssue(issue LintIssue) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("WARNING: %s\n", issue.Message))
	if len(issue.RouteIDs) > 0 {
		sb.WriteString(fmt.Sprintf("  routes: %s\n", strings.Join(issue.RouteIDs, ", ")))
	}
	return sb.String()
}
