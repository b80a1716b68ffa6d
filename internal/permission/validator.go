// Package permission validates permission matrices, derives restricted child
// matrices for delegated tasks and enforces a matrix at runtime.
package permission

import (
	"fmt"
	"log/slog"
	"slices"

	"permgate/internal/domain"
	"permgate/internal/pattern"
)

// Validator checks matrices on their own and against a parent. It holds no
// state besides its logger and is safe for concurrent use.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate checks a single matrix for structure, pattern syntax, conflicts and
// common risks. Every check runs; problems are returned as data.
func (v *Validator) Validate(m *domain.PermissionMatrix) domain.ValidationResult {
	var c collector
	if m == nil {
		m = &domain.PermissionMatrix{}
	}

	validateStructure(m, &c)
	validatePatterns(m, &c)
	detectConflicts(m, &c)
	addSecurityRecommendations(m, &c)

	return c.result(true, SecurityScore(m))
}

// ValidateInheritance checks that child grants nothing parent does not.
// The security score is the child's.
func (v *Validator) ValidateInheritance(parent, child *domain.PermissionMatrix) domain.ValidationResult {
	var c collector
	if parent == nil {
		parent = &domain.PermissionMatrix{}
	}
	if child == nil {
		child = &domain.PermissionMatrix{}
	}

	validateCoreToolInheritance(parent.CoreTools, child.CoreTools, &c)
	validateBashInheritance(parent.Bash, child.Bash, &c)
	validateFileSystemInheritance(parent.FileSystem, child.FileSystem, &c)
	validateMCPInheritance(parent.MCPTools, child.MCPTools, &c)
	validateNetworkInheritance(parent.Network, child.Network, &c)
	validateModelInheritance(parent.Models, child.Models, &c)

	inheritanceValid := true
	for _, e := range c.errors {
		if e.Code == domain.CodeInheritanceViolation {
			inheritanceValid = false
			break
		}
	}
	return c.result(inheritanceValid, SecurityScore(child))
}

// CanInherit reports whether child is a legal restriction of parent.
func (v *Validator) CanInherit(parent, child *domain.PermissionMatrix) bool {
	return v.ValidateInheritance(parent, child).InheritanceValid
}

// CreateRestrictedChild derives a matrix no more permissive than parent, using
// restrictions as hints, and re-validates it against parent.
func (v *Validator) CreateRestrictedChild(parent *domain.PermissionMatrix, restrictions domain.Restrictions) (*domain.PermissionMatrix, error) {
	if parent == nil {
		return nil, fmt.Errorf("create restricted child: parent matrix is nil")
	}
	child := restrict(parent, restrictions)

	result := v.ValidateInheritance(parent, child)
	if !result.Valid {
		v.logger.Warn("restricted child rejected",
			"errors", len(result.Errors),
			"first", result.Errors[0].Message,
		)
		return nil, &PermissionValidationError{
			Message: "Failed to create valid restricted child",
			Errors:  result.Errors,
		}
	}
	v.logger.Debug("restricted child created", "score", result.SecurityScore)
	return child, nil
}

// Validate checks m with a default validator.
func Validate(m *domain.PermissionMatrix) domain.ValidationResult {
	return NewValidator(nil).Validate(m)
}

// ValidateInheritance checks child against parent with a default validator.
func ValidateInheritance(parent, child *domain.PermissionMatrix) domain.ValidationResult {
	return NewValidator(nil).ValidateInheritance(parent, child)
}

// --- Result accumulation ---

type collector struct {
	errors   []domain.PermissionError
	warnings []domain.PermissionWarning
}

func (c *collector) fail(code domain.ErrorCode, field, msg string, parent, child any) {
	c.errors = append(c.errors, domain.PermissionError{
		Code:        code,
		Message:     msg,
		Field:       field,
		ParentValue: parent,
		ChildValue:  child,
	})
}

func (c *collector) violation(field, msg string, parent, child any) {
	c.fail(domain.CodeInheritanceViolation, field, msg, parent, child)
}

func (c *collector) warn(code domain.WarningCode, field, msg, recommendation string) {
	c.warnings = append(c.warnings, domain.PermissionWarning{
		Code:           code,
		Message:        msg,
		Field:          field,
		Recommendation: recommendation,
	})
}

func (c *collector) result(inheritanceValid bool, score int) domain.ValidationResult {
	errs, warns := c.errors, c.warnings
	if errs == nil {
		errs = []domain.PermissionError{}
	}
	if warns == nil {
		warns = []domain.PermissionWarning{}
	}
	return domain.ValidationResult{
		Valid:            len(errs) == 0,
		Errors:           errs,
		Warnings:         warns,
		InheritanceValid: inheritanceValid,
		SecurityScore:    score,
	}
}

// --- Single matrix ---

func validateStructure(m *domain.PermissionMatrix, c *collector) {
	if m.CoreTools == nil {
		c.fail(domain.CodeMissingRequired, "coreTools", "coreTools is required", nil, nil)
	}
	if m.Bash == nil {
		c.fail(domain.CodeMissingRequired, "bash", "bash is required", nil, nil)
	}
	if m.FileSystem == nil {
		c.fail(domain.CodeMissingRequired, "fileSystem", "fileSystem is required", nil, nil)
	}
}

func validatePatterns(m *domain.PermissionMatrix, c *collector) {
	if m.Bash != nil {
		for _, p := range m.Bash.AllowedPatterns {
			if _, err := pattern.CompileRegex(p); err != nil {
				c.fail(domain.CodeInvalidPattern, "bash.allowedPatterns",
					"Invalid regex pattern in bash.allowedPatterns: "+p, nil, nil)
			}
		}
	}
	if fs := m.FileSystem; fs != nil {
		for _, g := range []struct {
			field string
			globs []string
		}{
			{"fileSystem.readPatterns", fs.ReadPatterns},
			{"fileSystem.writePatterns", fs.WritePatterns},
			{"fileSystem.denyPatterns", fs.DenyPatterns},
		} {
			for _, p := range g.globs {
				if !pattern.LooksLikeGlob(p) {
					c.warn(domain.WarnDeprecatedPattern, g.field,
						"Potentially invalid glob pattern: "+p, "Use standard glob syntax")
				}
			}
		}
	}
}

func detectConflicts(m *domain.PermissionMatrix, c *collector) {
	if fs := m.FileSystem; fs != nil {
		for _, read := range fs.ReadPatterns {
			for _, denyGlob := range fs.DenyPatterns {
				if pattern.Overlaps(read, denyGlob) {
					c.warn(domain.WarnSecurityRecommendation, "fileSystem",
						fmt.Sprintf(`Read pattern "%s" may conflict with deny pattern "%s"`, read, denyGlob),
						"Review patterns to ensure deny takes precedence")
				}
			}
		}
		if slices.Contains(fs.ReadPatterns, pattern.MatchAll) {
			c.warn(domain.WarnOverlyPermissive, "fileSystem.readPatterns",
				`Read pattern "**/*" allows access to all files`,
				"Consider restricting to specific directories")
		}
	}
	if m.Bash != nil && slices.Contains(m.Bash.AllowedPatterns, pattern.AllowAllCommands) {
		c.warn(domain.WarnOverlyPermissive, "bash.allowedPatterns",
			`Bash pattern ".*" allows all commands`,
			"Consider restricting to specific commands")
	}
}

func addSecurityRecommendations(m *domain.PermissionMatrix, c *collector) {
	if m.Bash != nil && m.Bash.Enabled && !m.Bash.Sandboxed {
		c.warn(domain.WarnSecurityRecommendation, "bash.sandboxed",
			"Bash is enabled without sandbox",
			"Consider enabling sandbox for bash commands")
	}
	if m.Network != nil && m.Network.Enabled && len(m.Network.AllowedDomains) == 0 {
		c.warn(domain.WarnSecurityRecommendation, "network.allowedDomains",
			"Network enabled without domain restrictions",
			"Consider restricting to specific domains")
	}
	if m.MCPTools != nil && slices.Contains(m.MCPTools.Allowed, pattern.AnyTool) {
		c.warn(domain.WarnOverlyPermissive, "mcpTools.allowed",
			"All MCP tools allowed with wildcard",
			"Consider listing specific allowed tools")
	}
}

// --- Inheritance ---
//
// A nil child domain grants nothing and is never a violation. A nil parent
// domain grants nothing, so any grant in the child is.

func validateCoreToolInheritance(parent, child *domain.CoreToolPermissions, c *collector) {
	if child == nil {
		return
	}
	for _, tool := range domain.CoreToolKeys {
		p, ch := parent.Get(tool), child.Get(tool)
		if !p && ch {
			c.violation("coreTools."+string(tool),
				fmt.Sprintf("Child cannot have %s permission when parent doesn't", tool), p, ch)
		}
	}
}

func validateBashInheritance(parent, child *domain.BashPermissions, c *collector) {
	if child == nil {
		return
	}
	if parent == nil {
		parent = &domain.BashPermissions{}
	}

	if !parent.Enabled && child.Enabled {
		c.violation("bash.enabled", "Child cannot enable bash when parent has it disabled", false, true)
	}
	if parent.Sandboxed && !child.Sandboxed {
		c.violation("bash.sandboxed", "Child cannot disable sandbox when parent requires it", true, false)
	}
	for _, p := range child.AllowedPatterns {
		if !pattern.RegexSubsumes(p, parent.AllowedPatterns) {
			c.violation("bash.allowedPatterns",
				fmt.Sprintf(`Child bash pattern "%s" not allowed by parent`, p), parent.AllowedPatterns, p)
		}
	}
	for _, p := range parent.DeniedPatterns {
		if !slices.Contains(child.DeniedPatterns, p) {
			c.warn(domain.WarnSecurityRecommendation, "bash.deniedPatterns",
				fmt.Sprintf(`Parent denies pattern "%s" but child doesn't explicitly deny it`, p),
				"Consider explicitly denying this pattern in child")
		}
	}
}

func validateFileSystemInheritance(parent, child *domain.FileSystemPermissions, c *collector) {
	if child == nil {
		return
	}
	if parent == nil {
		parent = &domain.FileSystemPermissions{}
	}

	for _, p := range child.ReadPatterns {
		if !pattern.GlobSubsumes(p, parent.ReadPatterns) {
			c.violation("fileSystem.readPatterns",
				fmt.Sprintf(`Child read pattern "%s" exceeds parent permissions`, p), parent.ReadPatterns, p)
		}
	}
	for _, p := range child.WritePatterns {
		if !pattern.GlobSubsumes(p, parent.WritePatterns) {
			c.violation("fileSystem.writePatterns",
				fmt.Sprintf(`Child write pattern "%s" exceeds parent permissions`, p), parent.WritePatterns, p)
		}
	}
	for _, p := range parent.DenyPatterns {
		if !slices.Contains(child.DenyPatterns, p) {
			c.warn(domain.WarnSecurityRecommendation, "fileSystem.denyPatterns",
				fmt.Sprintf(`Parent denies path "%s" but child doesn't`, p),
				"Inherit deny patterns from parent")
		}
	}
}

func validateMCPInheritance(parent, child *domain.MCPToolPermissions, c *collector) {
	if child == nil {
		return
	}
	if parent == nil {
		parent = &domain.MCPToolPermissions{}
	}

	for _, tool := range child.Allowed {
		if !pattern.MCPCovered(tool, parent.Allowed) {
			c.violation("mcpTools.allowed",
				fmt.Sprintf(`Child MCP tool "%s" not allowed by parent`, tool), parent.Allowed, tool)
		}
	}
	for _, tool := range parent.Denied {
		if slices.Contains(child.Allowed, tool) {
			c.violation("mcpTools.denied",
				fmt.Sprintf(`Child allows MCP tool "%s" that parent denies`, tool), parent.Denied, child.Allowed)
		}
	}
}

func validateNetworkInheritance(parent, child *domain.NetworkPermissions, c *collector) {
	if child == nil {
		return
	}
	if parent == nil {
		parent = &domain.NetworkPermissions{}
	}

	if !parent.Enabled && child.Enabled {
		c.violation("network.enabled", "Child cannot enable network when parent has it disabled", false, true)
	}
	for _, d := range child.AllowedDomains {
		if _, ok := pattern.MatchAnyDomain(d, parent.AllowedDomains); !ok {
			c.violation("network.allowedDomains",
				fmt.Sprintf(`Child network domain "%s" not allowed by parent`, d), parent.AllowedDomains, d)
		}
	}
}

// validateModelInheritance compares effective tier sets: an unset allow list
// means every tier, on either side, as it does at enforcement time.
func validateModelInheritance(parent, child *domain.ModelPermissions, c *collector) {
	parentAllowed := parent.AllowedTiers()
	for _, tier := range child.AllowedTiers() {
		if !slices.Contains(parentAllowed, tier) {
			var pv any
			if parent != nil {
				pv = parent.Allowed
			}
			c.violation("models.allowed",
				fmt.Sprintf(`Child model "%s" not allowed by parent`, tier), pv, tier)
		}
	}
}
