package permission

import (
	"fmt"
	"slices"
	"strings"

	"permgate/internal/domain"
	"permgate/internal/pattern"
)

// toolCapabilities maps built-in tool names to the capability that gates them.
// Names missing from the table are not gated.
var toolCapabilities = map[string]domain.CoreTool{
	"Read":         domain.ToolRead,
	"Write":        domain.ToolWrite,
	"Edit":         domain.ToolEdit,
	"Glob":         domain.ToolGlob,
	"Grep":         domain.ToolGrep,
	"Task":         domain.ToolTask,
	"WebFetch":     domain.ToolWebFetch,
	"WebSearch":    domain.ToolWebSearch,
	"TodoWrite":    domain.ToolTodoWrite,
	"Ls":           domain.ToolLs,
	"NotebookEdit": domain.ToolNotebookEdit,
}

// strictBlacklist applies under strict isolation whatever the matrix says.
var strictBlacklist = []string{
	`rm\s+-rf`,
	`sudo`,
	`chmod\s+777`,
	`>\s*\/dev\/`,
	`mkfs`,
	`dd\s+if=`,
}

const maxSuggestions = 3

func deny(typ domain.ViolationType, resource, permission, msg string) domain.Violation {
	return domain.Violation{
		Type:       typ,
		Resource:   resource,
		Permission: permission,
		Message:    msg,
		Severity:   domain.SeverityError,
	}
}

func denied(v domain.Violation) domain.EnforcementResult {
	return domain.NewResult([]domain.Violation{v}, nil)
}

func checkTool(m *domain.PermissionMatrix, tool string) domain.EnforcementResult {
	capability, gated := toolCapabilities[tool]
	if gated && !m.CoreTools.Get(capability) {
		return denied(deny(domain.ViolationToolDenied, tool, "coreTools."+string(capability),
			fmt.Sprintf(`Tool "%s" is not allowed`, tool)))
	}
	return domain.NewResult(nil, nil)
}

func checkFileRead(m *domain.PermissionMatrix, path string) domain.EnforcementResult {
	fs := m.FileSystem
	if fs == nil {
		return denied(deny(domain.ViolationFileReadDenied, path, "fileSystem",
			"File system permissions are not configured"))
	}
	if p, ok := pattern.MatchAnyGlob(path, fs.DenyPatterns); ok {
		return denied(deny(domain.ViolationFileReadDenied, path, "fileSystem.denyPatterns",
			fmt.Sprintf(`Path "%s" matches deny pattern "%s"`, path, p)))
	}
	if len(fs.ReadPatterns) == 0 {
		return domain.NewResult(nil, nil)
	}
	if _, ok := pattern.MatchAnyGlob(path, fs.ReadPatterns); ok {
		return domain.NewResult(nil, nil)
	}

	var suggestions []string
	if similar := pattern.SimilarGlobs(path, fs.ReadPatterns, maxSuggestions); len(similar) > 0 {
		suggestions = []string{"Similar allowed patterns: " + strings.Join(similar, ", ")}
	}
	return domain.NewResult([]domain.Violation{
		deny(domain.ViolationFileReadDenied, path, "fileSystem.readPatterns",
			fmt.Sprintf(`Path "%s" does not match any allowed read pattern`, path)),
	}, suggestions)
}

func checkFileWrite(m *domain.PermissionMatrix, path string) domain.EnforcementResult {
	fs := m.FileSystem
	if fs == nil {
		return denied(deny(domain.ViolationFileWriteDenied, path, "fileSystem",
			"File system permissions are not configured"))
	}
	if p, ok := pattern.MatchAnyGlob(path, fs.DenyPatterns); ok {
		return denied(deny(domain.ViolationFileWriteDenied, path, "fileSystem.denyPatterns",
			fmt.Sprintf(`Path "%s" matches deny pattern "%s"`, path, p)))
	}
	if !m.CoreTools.Get(domain.ToolWrite) && !m.CoreTools.Get(domain.ToolEdit) {
		return denied(deny(domain.ViolationFileWriteDenied, path, "coreTools.write",
			"Write operations are not allowed"))
	}
	if len(fs.WritePatterns) == 0 {
		return domain.NewResult(nil, nil)
	}
	if _, ok := pattern.MatchAnyGlob(path, fs.WritePatterns); ok {
		return domain.NewResult(nil, nil)
	}
	return denied(deny(domain.ViolationFileWriteDenied, path, "fileSystem.writePatterns",
		fmt.Sprintf(`Path "%s" does not match any allowed write pattern`, path)))
}

// checkBash never short-circuits after the deny list, so an allow-list miss and
// a strict-isolation hit are both reported.
func checkBash(m *domain.PermissionMatrix, isolation domain.IsolationLevel, command string) domain.EnforcementResult {
	b := m.Bash
	if b == nil || !b.Enabled {
		return denied(deny(domain.ViolationBashDenied, command, "bash.enabled",
			"Bash commands are not allowed"))
	}
	if p, ok := pattern.MatchAnyRegexDeny(command, b.DeniedPatterns); ok {
		return denied(deny(domain.ViolationBashPatternDenied, command, "bash.deniedPatterns",
			fmt.Sprintf(`Command matches denied pattern "%s"`, p)))
	}

	var violations []domain.Violation
	if len(b.AllowedPatterns) > 0 {
		if _, ok := pattern.MatchAnyRegex(command, b.AllowedPatterns); !ok {
			violations = append(violations, deny(domain.ViolationBashPatternDenied, command,
				"bash.allowedPatterns", "Command does not match any allowed pattern"))
		}
	}
	if isolation == domain.IsolationStrict {
		if _, ok := pattern.MatchAnyRegexDeny(command, strictBlacklist); ok {
			violations = append(violations, deny(domain.ViolationIsolationViolation, command,
				"isolationLevel", "Command contains dangerous pattern in strict isolation mode"))
		}
	}
	return domain.NewResult(violations, nil)
}

func checkMCP(m *domain.PermissionMatrix, spec string) domain.EnforcementResult {
	mcp := m.MCPTools
	if mcp == nil {
		return denied(deny(domain.ViolationMCPDenied, spec, "mcpTools",
			"MCP tool permissions are not configured"))
	}
	if _, ok := pattern.MatchAnyMCP(spec, mcp.Denied); ok {
		return denied(deny(domain.ViolationMCPDenied, spec, "mcpTools.denied",
			fmt.Sprintf(`MCP tool "%s" is explicitly denied`, spec)))
	}
	if len(mcp.Allowed) == 0 || slices.Contains(mcp.Allowed, pattern.AnyTool) {
		return domain.NewResult(nil, nil)
	}
	if _, ok := pattern.MatchAnyMCP(spec, mcp.Allowed); !ok {
		return denied(deny(domain.ViolationMCPDenied, spec, "mcpTools.allowed",
			fmt.Sprintf(`MCP tool "%s" is not in allowed list`, spec)))
	}
	return domain.NewResult(nil, nil)
}

func checkNetwork(m *domain.PermissionMatrix, rawURL string) domain.EnforcementResult {
	n := m.Network
	if n == nil || !n.Enabled {
		return denied(deny(domain.ViolationNetworkDenied, rawURL, "network.enabled",
			"Network access is not allowed"))
	}
	host := pattern.Hostname(rawURL)
	if _, ok := pattern.MatchAnyDomain(host, n.DeniedDomains); ok {
		return denied(deny(domain.ViolationNetworkDenied, rawURL, "network.deniedDomains",
			fmt.Sprintf(`Domain "%s" is explicitly denied`, host)))
	}
	if len(n.AllowedDomains) == 0 {
		return domain.NewResult(nil, nil)
	}
	if _, ok := pattern.MatchAnyDomain(host, n.AllowedDomains); !ok {
		return denied(deny(domain.ViolationNetworkDenied, rawURL, "network.allowedDomains",
			fmt.Sprintf(`Domain "%s" is not in allowed list`, host)))
	}
	return domain.NewResult(nil, nil)
}

func checkModel(m *domain.PermissionMatrix, tier domain.ModelTier) domain.EnforcementResult {
	allowed := m.Models.AllowedTiers()
	if slices.Contains(allowed, tier) {
		return domain.NewResult(nil, nil)
	}
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	list := strings.Join(names, ", ")
	return domain.NewResult([]domain.Violation{
		deny(domain.ViolationModelDenied, string(tier), "models.allowed",
			fmt.Sprintf(`Model "%s" is not allowed. Allowed: %s`, tier, list)),
	}, []string{"Consider using: " + list})
}

func unknownRequest(env domain.Envelope) domain.EnforcementResult {
	return denied(deny(domain.ViolationToolDenied, env.Resource, string(env.Type),
		"Unknown request type: "+string(env.Type)))
}
