package permission

import (
	"slices"

	"permgate/internal/domain"
	"permgate/internal/pattern"
)

// SecurityScore is a 0-100 heuristic of how locked down a matrix is. Higher is
// stricter. It is meant for display and ranking only.
func SecurityScore(m *domain.PermissionMatrix) int {
	if m == nil {
		return 100
	}
	score := 100

	if b := m.Bash; b != nil {
		if b.Enabled {
			score -= 15
			if !b.Sandboxed {
				score -= 10
			}
		}
		if slices.Contains(b.AllowedPatterns, pattern.AllowAllCommands) {
			score -= 20
		}
		if len(b.DeniedPatterns) > 0 {
			score += 5
		}
	}
	if n := m.Network; n != nil {
		if n.Enabled {
			score -= 10
		}
		if len(n.DeniedDomains) > 0 {
			score += 5
		}
	}
	if ct := m.CoreTools; ct != nil {
		if ct.Write {
			score -= 5
		}
		if ct.Edit {
			score -= 5
		}
		if ct.Task {
			score -= 5
		}
	}
	if fs := m.FileSystem; fs != nil {
		if slices.Contains(fs.ReadPatterns, pattern.MatchAll) {
			score -= 15
		}
		if slices.Contains(fs.WritePatterns, pattern.MatchAll) {
			score -= 20
		}
		if len(fs.DenyPatterns) > 0 {
			score += 5
		}
	}
	if m.MCPTools != nil && slices.Contains(m.MCPTools.Allowed, pattern.AnyTool) {
		score -= 10
	}

	return max(0, min(100, score))
}
