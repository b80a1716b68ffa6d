package permission

import (
	"maps"
	"slices"

	"permgate/internal/domain"
)

// restrict merges restrictions onto parent, one explicit policy per field:
// narrowing booleans are ANDed, numeric caps take the minimum, allow lists
// override or inherit, deny lists grow.
func restrict(parent *domain.PermissionMatrix, r domain.Restrictions) *domain.PermissionMatrix {
	return &domain.PermissionMatrix{
		CoreTools:  restrictCoreTools(parent.CoreTools, r.CoreTools),
		Bash:       restrictBash(parent.Bash, r.Bash),
		FileSystem: restrictFileSystem(parent.FileSystem, r.FileSystem),
		MCPTools:   restrictMCP(parent.MCPTools, r.MCPTools),
		Network:    restrictNetwork(parent.Network, r.Network),
		Models:     restrictModels(parent.Models, r.Models),
	}
}

func restrictCoreTools(parent *domain.CoreToolPermissions, r *domain.CoreToolRestrictions) *domain.CoreToolPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.CoreToolRestrictions{}
	}
	return &domain.CoreToolPermissions{
		Read:         and(parent.Read, r.Read),
		Write:        and(parent.Write, r.Write),
		Edit:         and(parent.Edit, r.Edit),
		Glob:         and(parent.Glob, r.Glob),
		Grep:         and(parent.Grep, r.Grep),
		Task:         and(parent.Task, r.Task),
		WebFetch:     and(parent.WebFetch, r.WebFetch),
		WebSearch:    and(parent.WebSearch, r.WebSearch),
		TodoWrite:    and(parent.TodoWrite, r.TodoWrite),
		Ls:           and(parent.Ls, r.Ls),
		NotebookEdit: and(parent.NotebookEdit, r.NotebookEdit),
	}
}

func restrictBash(parent *domain.BashPermissions, r *domain.BashRestrictions) *domain.BashPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.BashRestrictions{}
	}
	env := maps.Clone(parent.EnvironmentOverrides)
	if len(r.EnvironmentOverrides) > 0 {
		if env == nil {
			env = make(map[string]string, len(r.EnvironmentOverrides))
		}
		maps.Copy(env, r.EnvironmentOverrides)
	}
	return &domain.BashPermissions{
		Enabled:                 and(parent.Enabled, r.Enabled),
		Sandboxed:               parent.Sandboxed || deref(r.Sandboxed, false),
		AllowedPatterns:         overrideOrInherit(r.AllowedPatterns, parent.AllowedPatterns),
		DeniedPatterns:          concat(parent.DeniedPatterns, r.DeniedPatterns),
		MaxExecutionTimeMs:      minOf(parent.MaxExecutionTimeMs, r.MaxExecutionTimeMs),
		AllowBackground:         and(parent.AllowBackground, r.AllowBackground),
		EnvironmentOverrides:    env,
		WorkingDirectoryPattern: firstNonEmpty(r.WorkingDirectoryPattern, parent.WorkingDirectoryPattern),
	}
}

func restrictFileSystem(parent *domain.FileSystemPermissions, r *domain.FileSystemRestrictions) *domain.FileSystemPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.FileSystemRestrictions{}
	}
	return &domain.FileSystemPermissions{
		ReadPatterns:           overrideOrInherit(r.ReadPatterns, parent.ReadPatterns),
		WritePatterns:          overrideOrInherit(r.WritePatterns, parent.WritePatterns),
		DenyPatterns:           concat(parent.DenyPatterns, r.DenyPatterns),
		MaxReadSizeBytes:       minOf(parent.MaxReadSizeBytes, r.MaxReadSizeBytes),
		MaxWriteSizeBytes:      minOf(parent.MaxWriteSizeBytes, r.MaxWriteSizeBytes),
		MaxTotalWriteBytes:     minOf(parent.MaxTotalWriteBytes, r.MaxTotalWriteBytes),
		AllowedReadExtensions:  overrideOrInherit(r.AllowedReadExtensions, parent.AllowedReadExtensions),
		AllowedWriteExtensions: overrideOrInherit(r.AllowedWriteExtensions, parent.AllowedWriteExtensions),
	}
}

func restrictMCP(parent *domain.MCPToolPermissions, r *domain.MCPToolRestrictions) *domain.MCPToolPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.MCPToolRestrictions{}
	}

	var limits map[string]domain.RateLimit
	tools := slices.Sorted(maps.Keys(parent.RateLimits))
	for _, tool := range slices.Sorted(maps.Keys(r.RateLimits)) {
		if _, ok := parent.RateLimits[tool]; !ok {
			tools = append(tools, tool)
		}
	}
	for _, tool := range tools {
		p, pok := parent.RateLimits[tool]
		c, cok := r.RateLimits[tool]
		merged := p
		switch {
		case pok && cok:
			merged = domain.RateLimit{
				MaxCallsPerMinute: minLimit(p.MaxCallsPerMinute, c.MaxCallsPerMinute),
				MaxCallsPerHour:   minLimit(p.MaxCallsPerHour, c.MaxCallsPerHour),
			}
		case cok:
			merged = c
		}
		if limits == nil {
			limits = make(map[string]domain.RateLimit, len(tools))
		}
		limits[tool] = merged
	}

	return &domain.MCPToolPermissions{
		Allowed:    overrideOrInherit(r.Allowed, parent.Allowed),
		Denied:     concat(parent.Denied, r.Denied),
		RateLimits: limits,
	}
}

func restrictNetwork(parent *domain.NetworkPermissions, r *domain.NetworkRestrictions) *domain.NetworkPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.NetworkRestrictions{}
	}

	var protocols []domain.Protocol
	for _, p := range overrideOrInherit(r.AllowedProtocols, parent.AllowedProtocols) {
		if slices.Contains(parent.AllowedProtocols, p) {
			protocols = append(protocols, p)
		}
	}
	if protocols == nil {
		protocols = []domain.Protocol{}
	}

	return &domain.NetworkPermissions{
		Enabled:               and(parent.Enabled, r.Enabled),
		AllowedDomains:        overrideOrInherit(r.AllowedDomains, parent.AllowedDomains),
		DeniedDomains:         concat(parent.DeniedDomains, r.DeniedDomains),
		AllowedProtocols:      protocols,
		MaxRequestSizeBytes:   minOf(parent.MaxRequestSizeBytes, r.MaxRequestSizeBytes),
		MaxResponseSizeBytes:  minOf(parent.MaxResponseSizeBytes, r.MaxResponseSizeBytes),
		RequestTimeoutMs:      minOf(parent.RequestTimeoutMs, r.RequestTimeoutMs),
		MaxConcurrentRequests: minOf(parent.MaxConcurrentRequests, r.MaxConcurrentRequests),
	}
}

func restrictModels(parent *domain.ModelPermissions, r *domain.ModelRestrictions) *domain.ModelPermissions {
	if parent == nil {
		return nil
	}
	if r == nil {
		r = &domain.ModelRestrictions{}
	}

	allowed := parent.Allowed
	if r.Allowed != nil {
		parentSet := parent.AllowedTiers()
		allowed = []domain.ModelTier{}
		for _, tier := range r.Allowed {
			if slices.Contains(parentSet, tier) {
				allowed = append(allowed, tier)
			}
		}
	}
	allowed = slices.Clone(allowed)

	var tokens map[domain.ModelTier]int
	for _, tier := range domain.AllModelTiers {
		p, pok := parent.MaxTokensPerModel[tier]
		c, cok := r.MaxTokensPerModel[tier]
		if !pok && !cok {
			continue
		}
		v := p
		switch {
		case pok && cok:
			v = min(p, c)
		case cok:
			v = c
		}
		if tokens == nil {
			tokens = make(map[domain.ModelTier]int)
		}
		tokens[tier] = v
	}

	return &domain.ModelPermissions{
		Allowed:              allowed,
		PreferredForSpawning: firstNonEmpty(r.PreferredForSpawning, parent.PreferredForSpawning),
		MaxTokensPerModel:    tokens,
		AllowEscalation:      and(parent.AllowEscalation, r.AllowEscalation),
	}
}

// --- Merge helpers ---

func and(parent bool, r *bool) bool {
	return parent && deref(r, parent)
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func minOf[T int | int64](parent T, r *T) T {
	return min(parent, deref(r, parent))
}

// minLimit is min over call budgets where a non-positive value is unbounded.
func minLimit(a, b int) int {
	switch {
	case a <= 0:
		return max(b, 0)
	case b <= 0:
		return a
	}
	return min(a, b)
}

func overrideOrInherit[T any](r, parent []T) []T {
	if r != nil {
		return slices.Clone(r)
	}
	return slices.Clone(parent)
}

func concat[T any](parent, r []T) []T {
	out := make([]T, 0, len(parent)+len(r))
	out = append(out, parent...)
	return append(out, r...)
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
