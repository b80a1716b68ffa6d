package pattern

import (
	"net/url"
	"strings"
)

// MatchDomain reports whether host matches a domain pattern. "*.base" matches
// base itself and any subdomain of base; anything else must match exactly.
// Comparison is case-insensitive.
func MatchDomain(host, pattern string) bool {
	host, pattern = strings.ToLower(host), strings.ToLower(pattern)
	if host == pattern {
		return true
	}
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == base || strings.HasSuffix(host, "."+base)
	}
	return false
}

// MatchAnyDomain returns the first pattern that matches host.
func MatchAnyDomain(host string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if MatchDomain(host, p) {
			return p, true
		}
	}
	return "", false
}

// Hostname extracts the lowercased host of a URL. Input without a scheme is
// read as a bare host, optionally followed by a port or path, so
// "EVIL.com:443/x" yields "evil.com". Input that does not parse is returned
// lowercased as is.
func Hostname(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	if u, err := url.Parse("//" + raw); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(raw)
}
