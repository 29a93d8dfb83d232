package routepath

import "strings"

// Path is a parsed URL path: pathname, search ("?..." or "") and hash ("#..." or "").
type Path struct {
	Pathname string
	Search   string
	Hash     string
}

// String reassembles the path.
func (p Path) String() string {
	pathname := p.Pathname
	if pathname == "" {
		pathname = "/"
	}
	s := pathname
	if p.Search != "" && p.Search != "?" {
		if !strings.HasPrefix(p.Search, "?") {
			s += "?"
		}
		s += p.Search
	}
	if p.Hash != "" && p.Hash != "#" {
		if !strings.HasPrefix(p.Hash, "#") {
			s += "#"
		}
		s += p.Hash
	}
	return s
}

// Parse splits a relative URL into pathname, search and hash.
// The pathname is left empty when to has none (e.g. "?q=1").
func Parse(to string) Path {
	var p Path
	if i := strings.IndexByte(to, '#'); i >= 0 {
		p.Hash = to[i:]
		to = to[:i]
	}
	if i := strings.IndexByte(to, '?'); i >= 0 {
		p.Search = to[i:]
		to = to[:i]
	}
	p.Pathname = to
	return p
}

// JoinPaths joins path fragments with "/" and collapses repeated slashes.
func JoinPaths(parts ...string) string {
	joined := strings.Join(parts, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return joined
}

// NormalizePathname strips trailing slashes and guarantees a leading one.
func NormalizePathname(pathname string) string {
	pathname = strings.TrimRight(pathname, "/")
	if !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	return pathname
}

// Resolve resolves to against the pathname from, the way a link inside a
// page at from would. Absolute pathnames are returned as-is; "." and ".."
// segments walk relative to from. Search and hash always come from to.
func Resolve(to, from string) Path {
	p := Parse(to)
	switch {
	case p.Pathname == "":
		p.Pathname = from
	case strings.HasPrefix(p.Pathname, "/"):
		p.Pathname = resolveSegments(p.Pathname, "/")
	default:
		p.Pathname = resolveSegments(p.Pathname, from)
	}
	if p.Pathname == "" {
		p.Pathname = "/"
	}
	return p
}

func resolveSegments(relative, from string) string {
	var segments []string
	for _, s := range strings.Split(strings.Trim(from, "/"), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if strings.HasPrefix(relative, "/") {
		segments = nil
	}
	trailing := len(relative) > 1 && strings.HasSuffix(relative, "/")
	for _, s := range strings.Split(relative, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, s)
		}
	}
	out := "/" + strings.Join(segments, "/")
	if trailing && out != "/" {
		out += "/"
	}
	return out
}

// StripBasename removes basename from the front of pathname. It reports
// false when pathname lives outside basename. Comparison is case-insensitive.
func StripBasename(pathname, basename string) (string, bool) {
	if basename == "" || basename == "/" {
		return pathname, true
	}
	basename = strings.TrimRight(basename, "/")
	if !strings.HasPrefix(strings.ToLower(pathname), strings.ToLower(basename)) {
		return "", false
	}
	rest := pathname[len(basename):]
	if rest == "" {
		return "/", true
	}
	if rest[0] != '/' {
		return "", false
	}
	return rest, true
}

// PrependBasename is the inverse of StripBasename.
func PrependBasename(pathname, basename string) string {
	if basename == "" || basename == "/" {
		return pathname
	}
	if pathname == "/" {
		return NormalizePathname(basename)
	}
	return JoinPaths(basename, pathname)
}
