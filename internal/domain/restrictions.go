package domain

// Restrictions is a partial matrix used as hints when deriving a child from a
// parent. Nil fields inherit the parent's value; a non-nil empty list is an
// explicit override.
type Restrictions struct {
	CoreTools  *CoreToolRestrictions   `json:"coreTools,omitempty" yaml:"coreTools,omitempty"`
	Bash       *BashRestrictions       `json:"bash,omitempty" yaml:"bash,omitempty"`
	FileSystem *FileSystemRestrictions `json:"fileSystem,omitempty" yaml:"fileSystem,omitempty"`
	MCPTools   *MCPToolRestrictions    `json:"mcpTools,omitempty" yaml:"mcpTools,omitempty"`
	Network    *NetworkRestrictions    `json:"network,omitempty" yaml:"network,omitempty"`
	Models     *ModelRestrictions      `json:"models,omitempty" yaml:"models,omitempty"`
}

// CoreToolRestrictions narrows core tools one at a time. A nil field keeps
// the parent's value.
type CoreToolRestrictions struct {
	Read         *bool `json:"read,omitempty" yaml:"read,omitempty"`
	Write        *bool `json:"write,omitempty" yaml:"write,omitempty"`
	Edit         *bool `json:"edit,omitempty" yaml:"edit,omitempty"`
	Glob         *bool `json:"glob,omitempty" yaml:"glob,omitempty"`
	Grep         *bool `json:"grep,omitempty" yaml:"grep,omitempty"`
	Task         *bool `json:"task,omitempty" yaml:"task,omitempty"`
	WebFetch     *bool `json:"webFetch,omitempty" yaml:"webFetch,omitempty"`
	WebSearch    *bool `json:"webSearch,omitempty" yaml:"webSearch,omitempty"`
	TodoWrite    *bool `json:"todoWrite,omitempty" yaml:"todoWrite,omitempty"`
	Ls           *bool `json:"ls,omitempty" yaml:"ls,omitempty"`
	NotebookEdit *bool `json:"notebookEdit,omitempty" yaml:"notebookEdit,omitempty"`
}

type BashRestrictions struct {
	Enabled                 *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Sandboxed               *bool             `json:"sandboxed,omitempty" yaml:"sandboxed,omitempty"`
	AllowedPatterns         []string          `json:"allowedPatterns,omitempty" yaml:"allowedPatterns,omitempty"`
	DeniedPatterns          []string          `json:"deniedPatterns,omitempty" yaml:"deniedPatterns,omitempty"`
	MaxExecutionTimeMs      *int64            `json:"maxExecutionTimeMs,omitempty" yaml:"maxExecutionTimeMs,omitempty"`
	AllowBackground         *bool             `json:"allowBackground,omitempty" yaml:"allowBackground,omitempty"`
	EnvironmentOverrides    map[string]string `json:"environmentOverrides,omitempty" yaml:"environmentOverrides,omitempty"`
	WorkingDirectoryPattern string            `json:"workingDirectoryPattern,omitempty" yaml:"workingDirectoryPattern,omitempty"`
}

type FileSystemRestrictions struct {
	ReadPatterns           []string `json:"readPatterns,omitempty" yaml:"readPatterns,omitempty"`
	WritePatterns          []string `json:"writePatterns,omitempty" yaml:"writePatterns,omitempty"`
	DenyPatterns           []string `json:"denyPatterns,omitempty" yaml:"denyPatterns,omitempty"`
	MaxReadSizeBytes       *int64   `json:"maxReadSizeBytes,omitempty" yaml:"maxReadSizeBytes,omitempty"`
	MaxWriteSizeBytes      *int64   `json:"maxWriteSizeBytes,omitempty" yaml:"maxWriteSizeBytes,omitempty"`
	MaxTotalWriteBytes     *int64   `json:"maxTotalWriteBytes,omitempty" yaml:"maxTotalWriteBytes,omitempty"`
	AllowedReadExtensions  []string `json:"allowedReadExtensions,omitempty" yaml:"allowedReadExtensions,omitempty"`
	AllowedWriteExtensions []string `json:"allowedWriteExtensions,omitempty" yaml:"allowedWriteExtensions,omitempty"`
}

type MCPToolRestrictions struct {
	Allowed    []string             `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Denied     []string             `json:"denied,omitempty" yaml:"denied,omitempty"`
	RateLimits map[string]RateLimit `json:"rateLimits,omitempty" yaml:"rateLimits,omitempty"`
}

type NetworkRestrictions struct {
	Enabled               *bool      `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	AllowedDomains        []string   `json:"allowedDomains,omitempty" yaml:"allowedDomains,omitempty"`
	DeniedDomains         []string   `json:"deniedDomains,omitempty" yaml:"deniedDomains,omitempty"`
	AllowedProtocols      []Protocol `json:"allowedProtocols,omitempty" yaml:"allowedProtocols,omitempty"`
	MaxRequestSizeBytes   *int64     `json:"maxRequestSizeBytes,omitempty" yaml:"maxRequestSizeBytes,omitempty"`
	MaxResponseSizeBytes  *int64     `json:"maxResponseSizeBytes,omitempty" yaml:"maxResponseSizeBytes,omitempty"`
	RequestTimeoutMs      *int64     `json:"requestTimeoutMs,omitempty" yaml:"requestTimeoutMs,omitempty"`
	MaxConcurrentRequests *int       `json:"maxConcurrentRequests,omitempty" yaml:"maxConcurrentRequests,omitempty"`
}

type ModelRestrictions struct {
	Allowed              []ModelTier       `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	PreferredForSpawning ModelTier         `json:"preferredForSpawning,omitempty" yaml:"preferredForSpawning,omitempty"`
	MaxTokensPerModel    map[ModelTier]int `json:"maxTokensPerModel,omitempty" yaml:"maxTokensPerModel,omitempty"`
	AllowEscalation      *bool             `json:"allowEscalation,omitempty" yaml:"allowEscalation,omitempty"`
}

// Ptr returns a pointer to v. Handy for building Restrictions literals.
func Ptr[T any](v T) *T { return &v }
