package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Pattern errors (W101-W199)
	"W101": {
		Category:   CategoryPattern,
		Message:    "Splat segment must be last",
		Detail:     `A "*" segment consumes the rest of the pathname, so nothing may follow it.`,
		Suggestion: "Move the splat to the last segment or nest the remaining segments in a child route",
	},
	"W102": {
		Category:   CategoryPattern,
		Message:    "Splat must be a whole segment",
		Detail:     `"*" is only recognised as its own segment, e.g. "files/*". Partial splats like "files*" are ambiguous.`,
		Suggestion: `Write the splat as a separate segment: "files/*"`,
	},
	"W103": {
		Category:   CategoryPattern,
		Message:    "Duplicate parameter name",
		Detail:     "Each dynamic segment in a path template must have a unique name; the second value would overwrite the first.",
	},
	"W104": {
		Category: CategoryPattern,
		Message:  "Invalid parameter name",
		Detail:   "Parameter names may contain letters, digits, '_' and '-' and must not be empty.",
	},
	"W105": {
		Category:   CategoryPattern,
		Message:    "Misplaced optional marker",
		Detail:     `"?" marks a whole segment as optional and must be its last character.`,
		Suggestion: `Use ":name?" or "name?"`,
	},

	// Route tree errors (W201-W299)
	"W201": {
		Category:   CategoryRoute,
		Message:    "Index route cannot have children",
		Detail:     "Index routes render when their parent matches exactly, so they are always leaves.",
		Suggestion: "Move the children to the parent route or make this a pathless layout route",
	},
	"W202": {
		Category:   CategoryRoute,
		Message:    "Index route cannot have a path",
		Detail:     "An index route shares its parent's path; giving it a path of its own is contradictory.",
		Suggestion: `Drop Index or drop Path`,
	},
	"W203": {
		Category: CategoryRoute,
		Message:  "Duplicate route ID",
		Detail:   "Route IDs key loader data, action data and errors, so they must be unique across the tree.",
	},
	"W204": {
		Category: CategoryRoute,
		Message:  "Unknown parameter type",
		Detail:   "Supported parameter types are string, int, uint and uuid.",
	},
	"W205": {
		Category: CategoryRoute,
		Message:  "Empty route tree",
		Detail:   "A router needs at least one route to match against.",
	},

	// Config errors (W301-W399)
	"W301": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The file could not be read or decoded. JSON and YAML are supported.",
	},
	"W302": {
		Category: CategoryConfig,
		Message:  "Unknown handler reference",
		Detail:   "A route references a loader or action that is not present in the handler registry.",
	},
	"W303": {
		Category: CategoryConfig,
		Message:  "No configuration file found",
		Detail:   "waypoint looks for waypoint.json, waypoint.yaml or waypoint.yml.",
	},
	"W304": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
