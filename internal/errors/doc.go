// Package errors provides structured, actionable configuration errors for waypoint.
//
// Route trees are validated once, when they are built. Anything wrong with
// them (a malformed path template, an index route with children, two routes
// sharing an ID) is reported as an *Error carrying:
//   - A stable code (e.g. "W101") with a registered message and detail
//   - The offending route ID, template and config file, when known
//   - A suggestion on how to fix the definition
//
// # Error Categories
//
//   - pattern: path template errors (splat placement, duplicate params)
//   - route: route tree errors (index/children conflicts, duplicate IDs)
//   - config: route or tool configuration file errors
//
// # Usage
//
//	err := errors.New("W101").
//	    WithRoute("0-2", "files/*/raw").
//	    WithSuggestion("Move the splat to the last segment")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR W101: Splat segment must be last
//	//
//	//   route 0-2 (files/*/raw)
//	//
//	//   A "*" segment consumes the rest of the pathname, so nothing may follow it.
//	//
//	//   Hint: Move the splat to the last segment
//
// Public packages wrap a sentinel (pattern.ErrInvalidPattern,
// router.ErrInvalidRoute) so callers can use errors.Is without importing
// this package.
package errors
