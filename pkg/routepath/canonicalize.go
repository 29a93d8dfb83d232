// Package routepath normalizes, joins and resolves URL pathnames for route
// matching and navigation.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// CanonicalizeResult contains the result of path canonicalization.
type CanonicalizeResult struct {
	// Path is the canonicalized path (without query string or hash).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Hash is the fragment (without leading "#").
	Hash string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in non-splat segment")
)

// CanonicalizePath normalizes a URL path before it is matched.
//
// The following transformations are applied:
//   - Collapse multiple slashes (/blog//post → /blog/post)
//   - Remove "." segments (/blog/./post → /blog/post)
//   - Resolve ".." segments (/blog/../other → /other)
//   - Collapse trailing slashes to one (/blog/// → /blog/)
//
// A single trailing slash is kept: routes compiled without Strict ignore it,
// strict routes distinguish it.
//
// The following inputs are rejected with an error:
//   - Paths containing backslash (\)
//   - Paths containing NUL byte (%00)
//   - Invalid percent-escapes (e.g., %GG, %2)
//   - ".." that would escape root (e.g., /../secret)
//
// Query string and hash are split off and returned untouched.
func CanonicalizePath(input string) (CanonicalizeResult, error) {
	if input == "" {
		return CanonicalizeResult{Path: "/", Changed: true}, nil
	}

	parsed := Parse(input)
	path := parsed.Pathname

	if strings.Contains(path, "\\") {
		return CanonicalizeResult{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return CanonicalizeResult{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return CanonicalizeResult{}, err
		}
	}

	original := path
	trailing := len(path) > 1 && strings.HasSuffix(path, "/")

	var result []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(result) == 0 {
				return CanonicalizeResult{}, ErrPathEscapesRoot
			}
			result = result[:len(result)-1]
		default:
			result = append(result, seg)
		}
	}

	path = "/" + strings.Join(result, "/")
	if trailing && path != "/" {
		path += "/"
	}

	return CanonicalizeResult{
		Path:    path,
		Query:   strings.TrimPrefix(parsed.Search, "?"),
		Hash:    strings.TrimPrefix(parsed.Hash, "#"),
		Changed: path != original,
	}, nil
}

// validatePercentEscapes checks that all percent-escapes are valid.
// Valid escapes are %XX where X is a hex digit (0-9, a-f, A-F).
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeSegment decodes a single matched path segment.
// For non-splat params, a decoded "/" (i.e. %2F was present) is rejected.
func DecodeSegment(segment string, isSplat bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !isSplat && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// IsExternal reports whether to points outside the application
// (has a scheme or is protocol-relative).
func IsExternal(to string) bool {
	if strings.HasPrefix(to, "//") {
		return true
	}
	u, err := url.Parse(to)
	return err == nil && u.Scheme != ""
}
