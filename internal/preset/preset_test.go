package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permgate/internal/domain"
	"permgate/internal/permission"
)

func TestEveryPresetValidates(t *testing.T) {
	for _, name := range Names {
		t.Run(string(name), func(t *testing.T) {
			m := MustGet(name)
			require.NotNil(t, m.CoreTools)
			require.NotNil(t, m.Bash)
			require.NotNil(t, m.FileSystem)
			require.NotNil(t, m.MCPTools)
			require.NotNil(t, m.Network)
			require.NotNil(t, m.Models)

			result := permission.Validate(m)
			assert.True(t, result.Valid, "errors: %v", result.Errors)
			assert.GreaterOrEqual(t, result.SecurityScore, 0)
			assert.LessOrEqual(t, result.SecurityScore, 100)
		})
	}
}

func TestGet_ReturnsIndependentCopies(t *testing.T) {
	a, err := Get("standard")
	require.NoError(t, err)
	a.Bash.AllowedPatterns[0] = "mutated"
	a.Models.Allowed[0] = domain.TierOpus

	b, err := Get("standard")
	require.NoError(t, err)
	assert.Equal(t, `^npm\b`, b.Bash.AllowedPatterns[0])
	assert.Equal(t, domain.TierHaiku, b.Models.Allowed[0])
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("bogus")
	require.Error(t, err)
	assert.Equal(t,
		"Unknown preset: bogus. Available: minimal, read-only, standard, full, ci-cd, research, code-generation",
		err.Error())
}

func TestMinimal(t *testing.T) {
	m := MustGet(Minimal)
	assert.True(t, m.CoreTools.Read)
	assert.False(t, m.CoreTools.Write)
	assert.False(t, m.Bash.Enabled)
	assert.Empty(t, m.FileSystem.WritePatterns)
	assert.False(t, m.Network.Enabled)
	assert.Equal(t, []domain.ModelTier{domain.TierHaiku}, m.Models.Allowed)
	assert.Contains(t, m.MCPTools.Denied, "*")
	assert.Contains(t, m.FileSystem.DenyPatterns, "**/.env*")
}

func TestFull_IsLeastSecure(t *testing.T) {
	full := permission.SecurityScore(MustGet(Full))
	for _, name := range Names {
		assert.GreaterOrEqual(t, permission.SecurityScore(MustGet(name)), full, name)
	}
	assert.Greater(t, permission.SecurityScore(MustGet(Minimal)), full)
}

func TestNarrowerPresetsInheritFromFull(t *testing.T) {
	v := permission.NewValidator(nil)
	for _, name := range []Name{Standard, Research, CodeGeneration} {
		assert.True(t, v.CanInherit(MustGet(Full), MustGet(name)), name)
	}
	assert.False(t, v.CanInherit(MustGet(Minimal), MustGet(Full)))
}

func TestRecommend(t *testing.T) {
	cases := map[TaskType]Name{
		TaskAnalysis:      ReadOnly,
		TaskResearch:      Research,
		TaskRefactoring:   CodeGeneration,
		TaskNewFeature:    Standard,
		TaskBugFix:        Standard,
		TaskTesting:       CodeGeneration,
		TaskDocumentation: ReadOnly,
		TaskDeployment:    CICD,
		TaskExploration:   Research,
		"unheard-of":      Standard,
	}
	for task, want := range cases {
		assert.Equal(t, want, Recommend(task), task)
	}
}

func TestIsolationFor(t *testing.T) {
	assert.Equal(t, domain.IsolationStrict, IsolationFor(Minimal))
	assert.Equal(t, domain.IsolationStrict, IsolationFor(ReadOnly))
	assert.Equal(t, domain.IsolationPermissive, IsolationFor(Full))
	assert.Equal(t, domain.IsolationModerate, IsolationFor(CICD))
	assert.Equal(t, domain.IsolationModerate, IsolationFor("unknown"))
}

func TestList(t *testing.T) {
	infos := List()
	require.Len(t, infos, len(Names))
	for i, info := range infos {
		assert.Equal(t, Names[i], info.Name)
		assert.NotEmpty(t, info.Description)
		assert.NotEmpty(t, info.SecurityLevel)
	}
	assert.Equal(t, "Highest", infos[0].SecurityLevel)
}

func TestCustom_MergesOverrides(t *testing.T) {
	m, err := Custom("standard", []byte(`
bash:
  enabled: false
models:
  allowed: [haiku]
network:
  allowedDomains: ["*.example.com"]
`))
	require.NoError(t, err)

	assert.False(t, m.Bash.Enabled)
	assert.Equal(t, MustGet(Standard).Bash.AllowedPatterns, m.Bash.AllowedPatterns)
	assert.Equal(t, []domain.ModelTier{domain.TierHaiku}, m.Models.Allowed)
	assert.Equal(t, 32768, m.Models.MaxTokensPerModel[domain.TierOpus])
	assert.Equal(t, []string{"*.example.com"}, m.Network.AllowedDomains)
	assert.True(t, m.Network.Enabled)
	assert.True(t, m.CoreTools.Write)
}

func TestCustom_EmptyOverridesReturnsBase(t *testing.T) {
	m, err := Custom("research", nil)
	require.NoError(t, err)
	assert.Equal(t, MustGet(Research), m)
}

func TestCustom_Errors(t *testing.T) {
	_, err := Custom("bogus", []byte("bash: {}"))
	assert.ErrorContains(t, err, "Unknown preset: bogus")

	_, err = Custom("standard", []byte("bash: [unclosed"))
	assert.ErrorContains(t, err, "parse overrides")

	_, err = Custom("standard", []byte("shell:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "decode merged")
}
