package preset

import "permgate/internal/domain"

const mb = 1 << 20

var allTools = domain.CoreToolPermissions{
	Read: true, Write: true, Edit: true, Glob: true, Grep: true, Task: true,
	WebFetch: true, WebSearch: true, TodoWrite: true, Ls: true, NotebookEdit: true,
}

var allTiers = []domain.ModelTier{domain.TierHaiku, domain.TierSonnet, domain.TierOpus}

// minimal: read-only access with no external connectivity.
func minimal() *domain.PermissionMatrix {
	return &domain.PermissionMatrix{
		CoreTools: &domain.CoreToolPermissions{Read: true, Glob: true, Grep: true, Ls: true},
		Bash: &domain.BashPermissions{
			Sandboxed:       true,
			AllowedPatterns: []string{},
			DeniedPatterns:  []string{`.*`},
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns:  []string{},
			WritePatterns: []string{},
			DenyPatterns: []string{
				"**/.*",
				"**/.env*",
				"**/secrets/**",
				"**/credentials*",
				"**/*.pem",
				"**/*.key",
			},
			MaxReadSizeBytes: 1 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{Allowed: []string{}, Denied: []string{"*"}},
		Network: &domain.NetworkPermissions{
			AllowedDomains:   []string{},
			DeniedDomains:    []string{"*"},
			AllowedProtocols: []domain.Protocol{},
		},
		Models: &domain.ModelPermissions{
			Allowed:              []domain.ModelTier{domain.TierHaiku},
			PreferredForSpawning: domain.TierHaiku,
			MaxTokensPerModel:    map[domain.ModelTier]int{domain.TierHaiku: 2048},
		},
	}
}

// readOnly can read and search but not modify.
func readOnly() *domain.PermissionMatrix {
	return &domain.PermissionMatrix{
		CoreTools: &domain.CoreToolPermissions{
			Read: true, Glob: true, Grep: true, Task: true, WebFetch: true,
			WebSearch: true, TodoWrite: true, Ls: true,
		},
		Bash: &domain.BashPermissions{
			Enabled:   true,
			Sandboxed: true,
			AllowedPatterns: []string{
				`^ls\b`,
				`^cat\b`,
				`^head\b`,
				`^tail\b`,
				`^wc\b`,
				`^find\b`,
				`^grep\b`,
				`^git\s+(status|log|diff|branch|show)`,
				`^npm\s+(list|ls|outdated)`,
				`^node\s+--version`,
				`^python\s+--version`,
			},
			DeniedPatterns: []string{
				`rm\b`,
				`mv\b`,
				`cp\b`,
				`mkdir\b`,
				`touch\b`,
				`chmod\b`,
				`chown\b`,
				`sudo\b`,
				`\|\s*sh`,
				`\|\s*bash`,
				`curl.*\|`,
				`wget.*\|`,
			},
			MaxExecutionTimeMs: 30_000,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns:  []string{"**/*"},
			WritePatterns: []string{},
			DenyPatterns: []string{
				"**/.env*",
				"**/secrets/**",
				"**/credentials*",
				"**/*.pem",
				"**/*.key",
				"**/node_modules/**",
			},
			MaxReadSizeBytes: 10 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{
			Allowed: []string{"octocode:*", "Context7:*", "brave-search:*"},
			Denied:  []string{},
		},
		Network: &domain.NetworkPermissions{
			Enabled: true,
			AllowedDomains: []string{
				"github.com",
				"*.github.com",
				"api.github.com",
				"raw.githubusercontent.com",
				"npmjs.com",
				"pypi.org",
				"docs.python.org",
				"developer.mozilla.org",
			},
			DeniedDomains:         []string{},
			AllowedProtocols:      []domain.Protocol{domain.ProtocolHTTPS},
			MaxRequestSizeBytes:   1 * mb,
			MaxResponseSizeBytes:  10 * mb,
			RequestTimeoutMs:      30_000,
			MaxConcurrentRequests: 5,
		},
		Models: &domain.ModelPermissions{
			Allowed:              []domain.ModelTier{domain.TierHaiku, domain.TierSonnet},
			PreferredForSpawning: domain.TierHaiku,
			MaxTokensPerModel:    map[domain.ModelTier]int{domain.TierHaiku: 4096, domain.TierSonnet: 8192},
			AllowEscalation:      true,
		},
	}
}

// standard is balanced for typical development work.
func standard() *domain.PermissionMatrix {
	tools := allTools
	return &domain.PermissionMatrix{
		CoreTools: &tools,
		Bash: &domain.BashPermissions{
			Enabled: true,
			AllowedPatterns: []string{
				`^npm\b`,
				`^npx\b`,
				`^yarn\b`,
				`^pnpm\b`,
				`^node\b`,
				`^python\b`,
				`^python3\b`,
				`^pip\b`,
				`^pip3\b`,
				`^git\b`,
				`^ls\b`,
				`^cat\b`,
				`^head\b`,
				`^tail\b`,
				`^grep\b`,
				`^find\b`,
				`^wc\b`,
				`^mkdir\b`,
				`^touch\b`,
				`^cp\b`,
				`^mv\b`,
				`^rm\s+-[rf]*\s+(?!/)\S+`, // relative paths only
				`^echo\b`,
				`^pwd\b`,
				`^cd\b`,
				`^which\b`,
				`^env\b`,
				`^export\b`,
				`^curl\b`,
				`^wget\b`,
			},
			DeniedPatterns: []string{
				`sudo\b`,
				`su\b`,
				`chmod\s+777`,
				`rm\s+-rf\s+/`,
				`rm\s+-rf\s+\*`,
				`mkfs`,
				`dd\s+if=`,
				`>\/dev\/`,
				`eval\b`,
				`\$\(`,
			},
			MaxExecutionTimeMs: 300_000,
			AllowBackground:    true,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns: []string{"**/*"},
			WritePatterns: []string{
				"src/**/*",
				"lib/**/*",
				"test/**/*",
				"tests/**/*",
				"docs/**/*",
				"*.json",
				"*.yaml",
				"*.yml",
				"*.md",
				"*.ts",
				"*.tsx",
				"*.js",
				"*.jsx",
				"*.py",
				"*.css",
				"*.html",
			},
			DenyPatterns: []string{
				"**/.env*",
				"**/secrets/**",
				"**/*.pem",
				"**/*.key",
				"**/credentials*",
				".git/**",
			},
			MaxReadSizeBytes:   10 * mb,
			MaxWriteSizeBytes:  1 * mb,
			MaxTotalWriteBytes: 50 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{Allowed: []string{"*"}, Denied: []string{}},
		Network: &domain.NetworkPermissions{
			Enabled:               true,
			AllowedDomains:        []string{},
			DeniedDomains:         []string{},
			AllowedProtocols:      []domain.Protocol{domain.ProtocolHTTP, domain.ProtocolHTTPS},
			MaxRequestSizeBytes:   5 * mb,
			MaxResponseSizeBytes:  20 * mb,
			RequestTimeoutMs:      60_000,
			MaxConcurrentRequests: 10,
		},
		Models: &domain.ModelPermissions{
			Allowed:              allTiers,
			PreferredForSpawning: domain.TierSonnet,
			MaxTokensPerModel: map[domain.ModelTier]int{
				domain.TierHaiku: 8192, domain.TierSonnet: 16384, domain.TierOpus: 32768,
			},
			AllowEscalation: true,
		},
	}
}

// full gives maximum access for trusted operations.
func full() *domain.PermissionMatrix {
	tools := allTools
	return &domain.PermissionMatrix{
		CoreTools: &tools,
		Bash: &domain.BashPermissions{
			Enabled:            true,
			AllowedPatterns:    []string{`.*`},
			DeniedPatterns:     []string{},
			MaxExecutionTimeMs: 600_000,
			AllowBackground:    true,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns:       []string{"**/*"},
			WritePatterns:      []string{"**/*"},
			DenyPatterns:       []string{},
			MaxReadSizeBytes:   100 * mb,
			MaxWriteSizeBytes:  50 * mb,
			MaxTotalWriteBytes: 500 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{Allowed: []string{"*"}, Denied: []string{}},
		Network: &domain.NetworkPermissions{
			Enabled:        true,
			AllowedDomains: []string{},
			DeniedDomains:  []string{},
			AllowedProtocols: []domain.Protocol{
				domain.ProtocolHTTP, domain.ProtocolHTTPS, domain.ProtocolWS, domain.ProtocolWSS,
			},
			MaxRequestSizeBytes:   50 * mb,
			MaxResponseSizeBytes:  100 * mb,
			RequestTimeoutMs:      300_000,
			MaxConcurrentRequests: 20,
		},
		Models: &domain.ModelPermissions{
			Allowed:              allTiers,
			PreferredForSpawning: domain.TierOpus,
			MaxTokensPerModel: map[domain.ModelTier]int{
				domain.TierHaiku: 8192, domain.TierSonnet: 32768, domain.TierOpus: 65536,
			},
			AllowEscalation: true,
		},
	}
}

// ciCD is for automated pipelines.
func ciCD() *domain.PermissionMatrix {
	return &domain.PermissionMatrix{
		CoreTools: &domain.CoreToolPermissions{
			Read: true, Write: true, Edit: true, Glob: true, Grep: true, Task: true,
			WebFetch: true, Ls: true,
		},
		Bash: &domain.BashPermissions{
			Enabled: true,
			AllowedPatterns: []string{
				`^npm\b`,
				`^npx\b`,
				`^yarn\b`,
				`^pnpm\b`,
				`^node\b`,
				`^python\b`,
				`^pip\b`,
				`^git\b`,
				`^make\b`,
				`^docker\b`,
				`^kubectl\b`,
				`^terraform\b`,
				`^aws\b`,
				`^gcloud\b`,
				`^az\b`,
				`^curl\b`,
				`^wget\b`,
			},
			DeniedPatterns: []string{
				`sudo\b`,
				`rm\s+-rf\s+/`,
				`eval\b`,
			},
			MaxExecutionTimeMs: 600_000,
			AllowBackground:    true,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns: []string{"**/*"},
			WritePatterns: []string{
				"dist/**/*",
				"build/**/*",
				"out/**/*",
				"coverage/**/*",
				"*.log",
			},
			DenyPatterns: []string{
				"**/.env.local",
				"**/secrets/**",
				"**/*.pem",
				"**/*.key",
			},
			MaxReadSizeBytes:   50 * mb,
			MaxWriteSizeBytes:  20 * mb,
			MaxTotalWriteBytes: 200 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{
			Allowed: []string{"octocode:*", "desktop-commander:*"},
			Denied:  []string{"ElevenLabs:*", "stability-ai:*"},
		},
		Network: &domain.NetworkPermissions{
			Enabled: true,
			AllowedDomains: []string{
				"github.com",
				"*.github.com",
				"npmjs.com",
				"registry.npmjs.org",
				"pypi.org",
				"*.docker.io",
				"*.docker.com",
			},
			DeniedDomains:         []string{},
			AllowedProtocols:      []domain.Protocol{domain.ProtocolHTTPS},
			MaxRequestSizeBytes:   10 * mb,
			MaxResponseSizeBytes:  50 * mb,
			RequestTimeoutMs:      120_000,
			MaxConcurrentRequests: 10,
		},
		Models: &domain.ModelPermissions{
			Allowed:              []domain.ModelTier{domain.TierHaiku, domain.TierSonnet},
			PreferredForSpawning: domain.TierHaiku,
			MaxTokensPerModel:    map[domain.ModelTier]int{domain.TierHaiku: 4096, domain.TierSonnet: 8192},
		},
	}
}

// research is for analysis and exploration tasks.
func research() *domain.PermissionMatrix {
	return &domain.PermissionMatrix{
		CoreTools: &domain.CoreToolPermissions{
			Read: true, Glob: true, Grep: true, Task: true, WebFetch: true,
			WebSearch: true, TodoWrite: true, Ls: true, NotebookEdit: true,
		},
		Bash: &domain.BashPermissions{
			Enabled:   true,
			Sandboxed: true,
			AllowedPatterns: []string{
				`^curl\b`,
				`^wget\b`,
				`^git\s+(clone|fetch|pull)`,
				`^ls\b`,
				`^cat\b`,
				`^head\b`,
				`^tail\b`,
				`^wc\b`,
				`^grep\b`,
				`^find\b`,
				`^jq\b`,
			},
			DeniedPatterns: []string{
				`rm\b`,
				`mv\b`,
				`mkdir\b`,
				`touch\b`,
				`chmod\b`,
				`sudo\b`,
			},
			MaxExecutionTimeMs: 60_000,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns: []string{"**/*"},
			WritePatterns: []string{
				"research/**/*",
				"notes/**/*",
				"analysis/**/*",
				"*.md",
				"*.txt",
			},
			DenyPatterns: []string{
				"**/.env*",
				"**/secrets/**",
				"**/*.pem",
				"**/*.key",
			},
			MaxReadSizeBytes:   20 * mb,
			MaxWriteSizeBytes:  5 * mb,
			MaxTotalWriteBytes: 50 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{
			Allowed: []string{
				"octocode:*",
				"Context7:*",
				"brave-search:*",
				"firecrawl:*",
				"hf-mcp-server:*",
			},
			Denied: []string{"ElevenLabs:*", "stability-ai:*"},
		},
		Network: &domain.NetworkPermissions{
			Enabled:               true,
			AllowedDomains:        []string{},
			DeniedDomains:         []string{},
			AllowedProtocols:      []domain.Protocol{domain.ProtocolHTTPS},
			MaxRequestSizeBytes:   5 * mb,
			MaxResponseSizeBytes:  30 * mb,
			RequestTimeoutMs:      60_000,
			MaxConcurrentRequests: 5,
		},
		Models: &domain.ModelPermissions{
			Allowed:              allTiers,
			PreferredForSpawning: domain.TierSonnet,
			MaxTokensPerModel: map[domain.ModelTier]int{
				domain.TierHaiku: 4096, domain.TierSonnet: 16384, domain.TierOpus: 32768,
			},
			AllowEscalation: true,
		},
	}
}

// codeGeneration is for writing code with guardrails.
func codeGeneration() *domain.PermissionMatrix {
	tools := allTools
	return &domain.PermissionMatrix{
		CoreTools: &tools,
		Bash: &domain.BashPermissions{
			Enabled: true,
			AllowedPatterns: []string{
				`^npm\b`,
				`^npx\b`,
				`^yarn\b`,
				`^pnpm\b`,
				`^node\b`,
				`^tsc\b`,
				`^eslint\b`,
				`^prettier\b`,
				`^jest\b`,
				`^vitest\b`,
				`^python\b`,
				`^pip\b`,
				`^pytest\b`,
				`^black\b`,
				`^ruff\b`,
				`^git\b`,
				`^ls\b`,
				`^cat\b`,
				`^mkdir\b`,
				`^touch\b`,
			},
			DeniedPatterns: []string{
				`sudo\b`,
				`rm\s+-rf`,
				`chmod\b`,
				`curl.*\|\s*(sh|bash)`,
			},
			MaxExecutionTimeMs: 300_000,
			AllowBackground:    true,
		},
		FileSystem: &domain.FileSystemPermissions{
			ReadPatterns: []string{"**/*"},
			WritePatterns: []string{
				"src/**/*",
				"lib/**/*",
				"app/**/*",
				"components/**/*",
				"pages/**/*",
				"api/**/*",
				"test/**/*",
				"tests/**/*",
				"__tests__/**/*",
				"*.ts",
				"*.tsx",
				"*.js",
				"*.jsx",
				"*.py",
				"*.json",
				"*.yaml",
				"*.yml",
				"*.md",
				"*.css",
				"*.scss",
				"*.html",
			},
			DenyPatterns: []string{
				"**/.env*",
				"**/secrets/**",
				"**/*.pem",
				"**/*.key",
				".git/**",
				"node_modules/**",
			},
			MaxReadSizeBytes:   10 * mb,
			MaxWriteSizeBytes:  2 * mb,
			MaxTotalWriteBytes: 100 * mb,
		},
		MCPTools: &domain.MCPToolPermissions{Allowed: []string{"*"}, Denied: []string{}},
		Network: &domain.NetworkPermissions{
			Enabled:               true,
			AllowedDomains:        []string{},
			DeniedDomains:         []string{},
			AllowedProtocols:      []domain.Protocol{domain.ProtocolHTTPS},
			MaxRequestSizeBytes:   5 * mb,
			MaxResponseSizeBytes:  20 * mb,
			RequestTimeoutMs:      60_000,
			MaxConcurrentRequests: 10,
		},
		Models: &domain.ModelPermissions{
			Allowed:              allTiers,
			PreferredForSpawning: domain.TierSonnet,
			MaxTokensPerModel: map[domain.ModelTier]int{
				domain.TierHaiku: 8192, domain.TierSonnet: 16384, domain.TierOpus: 32768,
			},
			AllowEscalation: true,
		},
	}
}
