// Package pattern compiles route path templates into matchers.
//
// A template is a "/"-separated list of segments:
//
//	users          static segment
//	:id            dynamic segment, captured as params["id"]
//	:lang?         optional dynamic segment
//	edit?          optional static segment
//	*              splat, captures the rest of the pathname as params["*"]
//
// Compile turns a template into a *Pattern holding an anchored regular
// expression, the ordered parameter names and a specificity score used to
// rank competing routes. A pattern compiled with End matches a whole
// pathname; without End it matches a prefix that stops at a segment
// boundary, leaving the remainder for descendant routes.
//
//	p, err := pattern.Compile("users/:id", pattern.Options{End: true})
//	m := p.Match("/users/42")
//	// m.Params["id"] == "42", m.Pathname == "/users/42"
package pattern
