// Package pattern holds the pure matching predicates used by the validator and
// the enforcer: path globs, command regexes, domain wildcards and MCP tool specs.
// Every matcher is total. A pattern that cannot be compiled degrades to a
// narrow fallback and never to "match everything".
package pattern

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll is the read/write glob that grants every path.
const MatchAll = "**/*"

var lexicalGlob = regexp.MustCompile(`^[a-zA-Z0-9_\-./*?\[\]{}]+$`)

// MatchGlob reports whether path matches the glob. `**` spans any number of
// segments including zero, `*` and `?` never cross a `/`. A pattern that does
// not parse only matches itself.
func MatchGlob(path, glob string) bool {
	if path == glob {
		return true
	}
	ok, err := doublestar.Match(glob, path)
	if err != nil {
		return false
	}
	return ok
}

// MatchAnyGlob returns the first glob that matches path.
func MatchAnyGlob(path string, globs []string) (string, bool) {
	for _, g := range globs {
		if MatchGlob(path, g) {
			return g, true
		}
	}
	return "", false
}

// GlobSubsumes reports whether a child glob is covered by one of the parent globs:
// exact match, a parent of "**/*", or the child pattern text matched as a literal
// path against a parent glob.
func GlobSubsumes(child string, parents []string) bool {
	for _, p := range parents {
		if p == child || p == MatchAll {
			return true
		}
		if MatchGlob(child, p) {
			return true
		}
	}
	return false
}

// LooksLikeGlob is a conservative lexical check on the characters of a glob.
func LooksLikeGlob(glob string) bool {
	return lexicalGlob.MatchString(glob)
}

// Overlaps is the lexical overlap test used for read/deny conflict warnings.
func Overlaps(a, b string) bool {
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// SimilarGlobs returns up to limit globs whose first or second path segment equals
// that of path. A second segment missing on both sides counts as equal.
func SimilarGlobs(path string, globs []string, limit int) []string {
	pathParts := strings.Split(path, "/")
	var out []string
	for _, g := range globs {
		if len(out) == limit {
			break
		}
		parts := strings.Split(g, "/")
		if parts[0] == pathParts[0] || sameSecondSegment(parts, pathParts) {
			out = append(out, g)
		}
	}
	return out
}

func sameSecondSegment(a, b []string) bool {
	switch {
	case len(a) < 2 && len(b) < 2:
		return true
	case len(a) < 2 || len(b) < 2:
		return false
	}
	return a[1] == b[1]
}
