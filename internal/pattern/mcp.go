package pattern

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// AnyTool is the MCP spec that matches every tool.
const AnyTool = "*"

var mcpCache sync.Map // pattern -> glob.Glob (nil when the pattern is unusable)

func compileMCP(pattern string) glob.Glob {
	if g, ok := mcpCache.Load(pattern); ok {
		if g == nil {
			return nil
		}
		return g.(glob.Glob)
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = glob.QuoteMeta(p)
	}
	g, err := glob.Compile(strings.Join(parts, "*"))
	if err != nil {
		mcpCache.Store(pattern, nil)
		return nil
	}
	mcpCache.Store(pattern, g)
	return g
}

// MatchMCP reports whether a "server:tool" spec matches pattern. "*" matches
// everything, and any other "*" stands for a run of arbitrary characters, so
// "server:*" and "*:tool" both work. All other characters are literal.
func MatchMCP(spec, pattern string) bool {
	if pattern == AnyTool || pattern == spec {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	g := compileMCP(pattern)
	return g != nil && g.Match(spec)
}

// MatchAnyMCP returns the first pattern that matches spec.
func MatchAnyMCP(spec string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if MatchMCP(spec, p) {
			return p, true
		}
	}
	return "", false
}

// MCPCovered is the inheritance coverage test for MCP allow lists: exact
// membership, a "*" entry, or an entry ending in "*" whose prefix starts spec.
func MCPCovered(spec string, allowed []string) bool {
	for _, a := range allowed {
		if a == spec || a == AnyTool {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "*"); ok && strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}
