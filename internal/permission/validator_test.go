package permission

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permgate/internal/domain"
	"permgate/internal/preset"
)

func warningMessages(r domain.ValidationResult) []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Message
	}
	return out
}

func errorMessages(r domain.ValidationResult) []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

func TestValidate_MissingDomains(t *testing.T) {
	r := Validate(&domain.PermissionMatrix{})
	assert.False(t, r.Valid)
	missing := r.ErrorsWithCode(domain.CodeMissingRequired)
	require.Len(t, missing, 3)
	assert.Equal(t, "coreTools", missing[0].Field)
	assert.Equal(t, "bash", missing[1].Field)
	assert.Equal(t, "fileSystem", missing[2].Field)
}

func TestValidate_NilMatrix(t *testing.T) {
	r := Validate(nil)
	assert.False(t, r.Valid)
	assert.Equal(t, 100, r.SecurityScore)
	assert.NotNil(t, r.Warnings)
}

func TestValidate_InvalidRegex(t *testing.T) {
	m := preset.MustGet(preset.Standard)
	m.Bash.AllowedPatterns = append(m.Bash.AllowedPatterns, "(unclosed")

	r := Validate(m)
	assert.False(t, r.Valid)
	errs := r.ErrorsWithCode(domain.CodeInvalidPattern)
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid regex pattern in bash.allowedPatterns: (unclosed", errs[0].Message)
	assert.Equal(t, "bash.allowedPatterns", errs[0].Field)
}

func TestValidate_SuspiciousGlobWarns(t *testing.T) {
	m := preset.MustGet(preset.ReadOnly)
	m.FileSystem.ReadPatterns = []string{"docs/my notes/*"}

	r := Validate(m)
	assert.True(t, r.Valid)
	assert.Contains(t, warningMessages(r), "Potentially invalid glob pattern: docs/my notes/*")
}

func TestValidate_SuspiciousWriteAndDenyGlobsWarn(t *testing.T) {
	m := preset.MustGet(preset.Standard)
	m.FileSystem.WritePatterns = append(m.FileSystem.WritePatterns, "out dir/*")
	m.FileSystem.DenyPatterns = append(m.FileSystem.DenyPatterns, "~/.ssh/*")

	r := Validate(m)
	assert.True(t, r.Valid)

	fields := map[string]string{}
	for _, w := range r.Warnings {
		if w.Code == domain.WarnDeprecatedPattern {
			fields[w.Field] = w.Message
		}
	}
	assert.Equal(t, map[string]string{
		"fileSystem.writePatterns": "Potentially invalid glob pattern: out dir/*",
		"fileSystem.denyPatterns":  "Potentially invalid glob pattern: ~/.ssh/*",
	}, fields)
}

func TestValidate_FullPresetWarnings(t *testing.T) {
	r := Validate(preset.MustGet(preset.Full))
	assert.True(t, r.Valid)
	assert.Equal(t, 0, r.SecurityScore)

	msgs := warningMessages(r)
	assert.Contains(t, msgs, `Read pattern "**/*" allows access to all files`)
	assert.Contains(t, msgs, `Bash pattern ".*" allows all commands`)
	assert.Contains(t, msgs, "Bash is enabled without sandbox")
	assert.Contains(t, msgs, "Network enabled without domain restrictions")
	assert.Contains(t, msgs, "All MCP tools allowed with wildcard")
}

func TestValidate_ReadDenyOverlapWarns(t *testing.T) {
	m := preset.MustGet(preset.Minimal)
	m.FileSystem.ReadPatterns = []string{"secrets/**"}
	m.FileSystem.DenyPatterns = []string{"secrets/**"}

	r := Validate(m)
	assert.Contains(t, warningMessages(r), `Read pattern "secrets/**" may conflict with deny pattern "secrets/**"`)
}

func TestSecurityScore_Bounds(t *testing.T) {
	assert.Equal(t, 100, SecurityScore(nil))
	assert.Equal(t, 100, SecurityScore(preset.MustGet(preset.Minimal)))
	assert.Equal(t, 0, SecurityScore(preset.MustGet(preset.Full)))

	// bash on, sandboxed: 100 - 15 + 5 (deny list) - 10 (network) + 5 (deny
	// patterns) - 15 (read all) - 5 (task)
	assert.Equal(t, 65, SecurityScore(preset.MustGet(preset.ReadOnly)))
}

func TestValidateInheritance_SandboxDisabled(t *testing.T) {
	parent := preset.MustGet(preset.ReadOnly)
	child := parent.Clone()
	child.Bash.Sandboxed = false

	r := ValidateInheritance(parent, child)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, domain.CodeInheritanceViolation, r.Errors[0].Code)
	assert.Equal(t, "bash.sandboxed", r.Errors[0].Field)
	assert.False(t, r.Valid)
	assert.False(t, r.InheritanceValid)
}

func TestValidateInheritance_Escalations(t *testing.T) {
	parent := preset.MustGet(preset.Minimal)
	child := preset.MustGet(preset.Full)

	r := ValidateInheritance(parent, child)
	assert.False(t, r.InheritanceValid)

	byField := map[string]string{}
	for _, e := range r.Errors {
		if _, seen := byField[e.Field]; !seen {
			byField[e.Field] = e.Message
		}
	}
	assert.Equal(t, "Child cannot have write permission when parent doesn't", byField["coreTools.write"])
	assert.Equal(t, "Child cannot enable bash when parent has it disabled", byField["bash.enabled"])
	assert.Equal(t, "Child cannot disable sandbox when parent requires it", byField["bash.sandboxed"])
	assert.Equal(t, `Child bash pattern ".*" not allowed by parent`, byField["bash.allowedPatterns"])
	assert.Equal(t, `Child read pattern "**/*" exceeds parent permissions`, byField["fileSystem.readPatterns"])
	assert.Equal(t, `Child write pattern "**/*" exceeds parent permissions`, byField["fileSystem.writePatterns"])
	assert.Equal(t, `Child MCP tool "*" not allowed by parent`, byField["mcpTools.allowed"])
	assert.Equal(t, `Child allows MCP tool "*" that parent denies`, byField["mcpTools.denied"])
	assert.Equal(t, "Child cannot enable network when parent has it disabled", byField["network.enabled"])
	assert.Equal(t, `Child model "sonnet" not allowed by parent`, byField["models.allowed"])
}

func TestValidateInheritance_PatternSubsumption(t *testing.T) {
	parent := preset.MustGet(preset.Standard)
	child := parent.Clone()
	child.Bash.AllowedPatterns = []string{`^git\b`, `^ls\b`}
	child.FileSystem.WritePatterns = []string{"src/**/*", "src/app.ts"}
	child.Network.AllowedDomains = nil

	r := ValidateInheritance(parent, child)
	assert.True(t, r.InheritanceValid, "%v", r.Errors)
}

func TestValidateInheritance_DomainOutsideParent(t *testing.T) {
	parent := preset.MustGet(preset.ReadOnly)
	child := parent.Clone()
	child.Network.AllowedDomains = []string{"api.github.com", "example.org"}

	r := ValidateInheritance(parent, child)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, `Child network domain "example.org" not allowed by parent`, r.Errors[0].Message)
}

func TestValidateInheritance_DroppedDenyPatternsWarn(t *testing.T) {
	parent := preset.MustGet(preset.Standard)
	child := parent.Clone()
	child.Bash.DeniedPatterns = nil
	child.FileSystem.DenyPatterns = nil

	r := ValidateInheritance(parent, child)
	assert.True(t, r.Valid)
	assert.Len(t, r.Warnings, len(parent.Bash.DeniedPatterns)+len(parent.FileSystem.DenyPatterns))
	assert.Contains(t, warningMessages(r), `Parent denies path ".git/**" but child doesn't`)
}

func TestValidateInheritance_NilChildDomainsGrantNothing(t *testing.T) {
	parent := preset.MustGet(preset.Minimal)
	r := ValidateInheritance(parent, &domain.PermissionMatrix{
		Models: &domain.ModelPermissions{Allowed: []domain.ModelTier{}},
	})
	assert.True(t, r.Valid)
	assert.True(t, r.InheritanceValid)
}

func TestValidateInheritance_UnsetChildModelsMeanAllTiers(t *testing.T) {
	parent := preset.MustGet(preset.Minimal)

	for _, models := range []*domain.ModelPermissions{nil, {}} {
		child := parent.Clone()
		child.Models = models

		r := ValidateInheritance(parent, child)
		assert.False(t, r.InheritanceValid)
		assert.Equal(t, []string{
			`Child model "sonnet" not allowed by parent`,
			`Child model "opus" not allowed by parent`,
		}, errorMessages(r))

		assert.True(t, NewEnforcer(child, WithLogger(quietLogger())).Check(domain.ModelRequest{Tier: domain.TierOpus}).Allowed,
			"the enforcer grants every tier to the same child")
	}
}

func TestValidateInheritance_ModelsDefaultToAllTiers(t *testing.T) {
	parent := preset.MustGet(preset.Standard)
	parent.Models = nil
	child := preset.MustGet(preset.Standard)

	r := ValidateInheritance(parent, child)
	assert.Empty(t, r.ErrorsWithCode(domain.CodeInheritanceViolation))
}

func TestCanInherit(t *testing.T) {
	v := NewValidator(nil)
	assert.True(t, v.CanInherit(preset.MustGet(preset.Full), preset.MustGet(preset.Standard)))
	assert.False(t, v.CanInherit(preset.MustGet(preset.Standard), preset.MustGet(preset.Full)))
}

func TestCreateRestrictedChild(t *testing.T) {
	parent := preset.MustGet(preset.Standard)
	child, err := NewValidator(nil).CreateRestrictedChild(parent, domain.Restrictions{
		CoreTools: &domain.CoreToolRestrictions{Edit: domain.Ptr(false), Task: domain.Ptr(false)},
		Bash: &domain.BashRestrictions{
			AllowedPatterns:    []string{`^git\b`},
			DeniedPatterns:     []string{`^git\s+push`},
			MaxExecutionTimeMs: domain.Ptr(int64(60_000)),
		},
		FileSystem: &domain.FileSystemRestrictions{WritePatterns: []string{"src/**/*"}},
		Models:     &domain.ModelRestrictions{Allowed: []domain.ModelTier{domain.TierHaiku}},
	})
	require.NoError(t, err)

	assert.True(t, child.CoreTools.Write)
	assert.False(t, child.CoreTools.Edit)
	assert.False(t, child.CoreTools.Task)
	assert.Equal(t, []string{`^git\b`}, child.Bash.AllowedPatterns)
	assert.Equal(t, `^git\s+push`, child.Bash.DeniedPatterns[len(child.Bash.DeniedPatterns)-1])
	assert.Len(t, child.Bash.DeniedPatterns, len(parent.Bash.DeniedPatterns)+1)
	assert.Equal(t, int64(60_000), child.Bash.MaxExecutionTimeMs)
	assert.Equal(t, []string{"src/**/*"}, child.FileSystem.WritePatterns)
	assert.Equal(t, parent.FileSystem.DenyPatterns, child.FileSystem.DenyPatterns)
	assert.Equal(t, []domain.ModelTier{domain.TierHaiku}, child.Models.Allowed)

	assert.True(t, ValidateInheritance(parent, child).Valid)
}

func TestCreateRestrictedChild_AlwaysInheritsFromEveryPreset(t *testing.T) {
	v := NewValidator(nil)
	for _, name := range preset.Names {
		parent := preset.MustGet(name)
		child, err := v.CreateRestrictedChild(parent, domain.Restrictions{})
		require.NoError(t, err, name)
		assert.True(t, v.ValidateInheritance(parent, child).InheritanceValid, name)
	}
}

// assertNoWider checks child against parent field by field, including the
// parts ValidateInheritance does not compare.
func assertNoWider(t *testing.T, parent, child *domain.PermissionMatrix, name string) {
	t.Helper()
	implies := func(childOn, parentOn bool, field string) {
		assert.False(t, childOn && !parentOn, "%s: %s widened", name, field)
	}
	capped := func(childV, parentV int64, field string) {
		assert.LessOrEqual(t, childV, parentV, "%s: %s raised", name, field)
	}

	pc, cc := parent.CoreTools, child.CoreTools
	for tool, on := range map[string][2]bool{
		"read": {cc.Read, pc.Read}, "write": {cc.Write, pc.Write}, "edit": {cc.Edit, pc.Edit},
		"glob": {cc.Glob, pc.Glob}, "grep": {cc.Grep, pc.Grep}, "task": {cc.Task, pc.Task},
		"webFetch": {cc.WebFetch, pc.WebFetch}, "webSearch": {cc.WebSearch, pc.WebSearch},
		"todoWrite": {cc.TodoWrite, pc.TodoWrite}, "ls": {cc.Ls, pc.Ls},
		"notebookEdit": {cc.NotebookEdit, pc.NotebookEdit},
	} {
		implies(on[0], on[1], "coreTools."+tool)
	}

	implies(child.Bash.Enabled, parent.Bash.Enabled, "bash.enabled")
	implies(!child.Bash.Sandboxed, !parent.Bash.Sandboxed, "bash.sandboxed")
	implies(child.Bash.AllowBackground, parent.Bash.AllowBackground, "bash.allowBackground")
	capped(child.Bash.MaxExecutionTimeMs, parent.Bash.MaxExecutionTimeMs, "bash.maxExecutionTimeMs")
	assert.Subset(t, child.Bash.DeniedPatterns, parent.Bash.DeniedPatterns, name)

	capped(child.FileSystem.MaxReadSizeBytes, parent.FileSystem.MaxReadSizeBytes, "fileSystem.maxReadSizeBytes")
	capped(child.FileSystem.MaxWriteSizeBytes, parent.FileSystem.MaxWriteSizeBytes, "fileSystem.maxWriteSizeBytes")
	capped(child.FileSystem.MaxTotalWriteBytes, parent.FileSystem.MaxTotalWriteBytes, "fileSystem.maxTotalWriteBytes")
	assert.Subset(t, child.FileSystem.DenyPatterns, parent.FileSystem.DenyPatterns, name)

	assert.Subset(t, child.MCPTools.Denied, parent.MCPTools.Denied, name)
	for tool, p := range parent.MCPTools.RateLimits {
		c, ok := child.MCPTools.RateLimits[tool]
		require.True(t, ok, "%s: rate limit for %s dropped", name, tool)
		for _, w := range [][3]any{
			{"perMinute", c.MaxCallsPerMinute, p.MaxCallsPerMinute},
			{"perHour", c.MaxCallsPerHour, p.MaxCallsPerHour},
		} {
			cv, pv := w[1].(int), w[2].(int)
			if pv > 0 {
				assert.True(t, cv > 0 && cv <= pv, "%s: %s %s is %d, parent %d", name, tool, w[0], cv, pv)
			}
		}
	}

	implies(child.Network.Enabled, parent.Network.Enabled, "network.enabled")
	assert.Subset(t, child.Network.DeniedDomains, parent.Network.DeniedDomains, name)
	assert.Subset(t, parent.Network.AllowedProtocols, child.Network.AllowedProtocols, name)
	capped(child.Network.MaxRequestSizeBytes, parent.Network.MaxRequestSizeBytes, "network.maxRequestSizeBytes")
	capped(child.Network.RequestTimeoutMs, parent.Network.RequestTimeoutMs, "network.requestTimeoutMs")

	assert.Subset(t, parent.Models.AllowedTiers(), child.Models.AllowedTiers(), name)
	implies(child.Models.AllowEscalation, parent.Models.AllowEscalation, "models.allowEscalation")
}

func TestCreateRestrictedChild_NeverWidensAnyPreset(t *testing.T) {
	restrictions := map[string]domain.Restrictions{
		"partial core tools": {
			CoreTools: &domain.CoreToolRestrictions{Write: domain.Ptr(false), Task: domain.Ptr(true), NotebookEdit: domain.Ptr(true)},
		},
		"partial rate limits": {
			MCPTools: &domain.MCPToolRestrictions{RateLimits: map[string]domain.RateLimit{
				"octocode:*": {MaxCallsPerMinute: 5},
				"search:web": {MaxCallsPerMinute: 100, MaxCallsPerHour: 1000},
				"*":          {MaxCallsPerHour: 100},
			}},
		},
		"model lists": {
			Models: &domain.ModelRestrictions{
				Allowed:           []domain.ModelTier{domain.TierHaiku, domain.TierOpus},
				MaxTokensPerModel: map[domain.ModelTier]int{domain.TierOpus: 1_000_000},
				AllowEscalation:   domain.Ptr(true),
			},
		},
		"protocols": {
			Network: &domain.NetworkRestrictions{
				Enabled:          domain.Ptr(true),
				AllowedProtocols: []domain.Protocol{domain.ProtocolHTTP, domain.ProtocolWSS},
			},
		},
		"deny additions": {
			Bash:       &domain.BashRestrictions{DeniedPatterns: []string{`^curl\b`}},
			FileSystem: &domain.FileSystemRestrictions{DenyPatterns: []string{"**/*.pem"}},
			MCPTools:   &domain.MCPToolRestrictions{Denied: []string{"shell:*"}},
			Network:    &domain.NetworkRestrictions{DeniedDomains: []string{"*.internal"}},
		},
		"loosening attempts": {
			Bash: &domain.BashRestrictions{
				Enabled:            domain.Ptr(true),
				Sandboxed:          domain.Ptr(false),
				AllowBackground:    domain.Ptr(true),
				MaxExecutionTimeMs: domain.Ptr(int64(24 * 3_600_000)),
			},
			FileSystem: &domain.FileSystemRestrictions{MaxReadSizeBytes: domain.Ptr(int64(1 << 40))},
			Network:    &domain.NetworkRestrictions{RequestTimeoutMs: domain.Ptr(int64(3_600_000))},
		},
	}

	v := NewValidator(nil)
	for _, name := range preset.Names {
		for label, r := range restrictions {
			t.Run(string(name)+"/"+label, func(t *testing.T) {
				parent := preset.MustGet(name)
				parent.MCPTools.RateLimits = map[string]domain.RateLimit{
					"octocode:*": {MaxCallsPerMinute: 10, MaxCallsPerHour: 20},
					"search:web": {MaxCallsPerHour: 30},
				}

				child, err := v.CreateRestrictedChild(parent, r)
				require.NoError(t, err)
				assert.True(t, v.ValidateInheritance(parent, child).InheritanceValid)
				assertNoWider(t, parent, child, string(name)+"/"+label)
			})
		}
	}
}

func TestCreateRestrictedChild_Rejected(t *testing.T) {
	parent := preset.MustGet(preset.Standard)
	_, err := NewValidator(nil).CreateRestrictedChild(parent, domain.Restrictions{
		FileSystem: &domain.FileSystemRestrictions{WritePatterns: []string{"/etc/**"}},
	})
	require.Error(t, err)

	var verr *PermissionValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, domain.CodeInheritanceViolation, verr.Errors[0].Code)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to create valid restricted child:\n  - "))
	assert.Contains(t, err.Error(), `Child write pattern "/etc/**" exceeds parent permissions`)
}

func TestCreateRestrictedChild_NilParent(t *testing.T) {
	_, err := NewValidator(nil).CreateRestrictedChild(nil, domain.Restrictions{})
	assert.Error(t, err)
}
