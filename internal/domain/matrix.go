package domain

import (
	"maps"
	"slices"
)

// ModelTier names a model size class a task may request.
type ModelTier string

const (
	TierHaiku  ModelTier = "haiku"
	TierSonnet ModelTier = "sonnet"
	TierOpus   ModelTier = "opus"
)

// AllModelTiers is the tier set assumed when a matrix leaves models.allowed unset.
var AllModelTiers = []ModelTier{TierHaiku, TierSonnet, TierOpus}

// Protocol is a network protocol a task may use.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolWS    Protocol = "ws"
	ProtocolWSS   Protocol = "wss"
)

// PermissionMatrix describes everything a task may do across six domains.
// Domains are pointers so that a missing domain can be reported by the validator.
// Treat a matrix as read-only once built; use Clone before modifying a shared one.
type PermissionMatrix struct {
	CoreTools  *CoreToolPermissions   `json:"coreTools,omitempty" yaml:"coreTools,omitempty"`
	Bash       *BashPermissions       `json:"bash,omitempty" yaml:"bash,omitempty"`
	FileSystem *FileSystemPermissions `json:"fileSystem,omitempty" yaml:"fileSystem,omitempty"`
	MCPTools   *MCPToolPermissions    `json:"mcpTools,omitempty" yaml:"mcpTools,omitempty"`
	Network    *NetworkPermissions    `json:"network,omitempty" yaml:"network,omitempty"`
	Models     *ModelPermissions      `json:"models,omitempty" yaml:"models,omitempty"`
}

// CoreToolPermissions gates the built-in tools.
type CoreToolPermissions struct {
	Read         bool `json:"read" yaml:"read"`
	Write        bool `json:"write" yaml:"write"`
	Edit         bool `json:"edit" yaml:"edit"`
	Glob         bool `json:"glob" yaml:"glob"`
	Grep         bool `json:"grep" yaml:"grep"`
	Task         bool `json:"task" yaml:"task"`
	WebFetch     bool `json:"webFetch" yaml:"webFetch"`
	WebSearch    bool `json:"webSearch" yaml:"webSearch"`
	TodoWrite    bool `json:"todoWrite" yaml:"todoWrite"`
	Ls           bool `json:"ls" yaml:"ls"`
	NotebookEdit bool `json:"notebookEdit" yaml:"notebookEdit"`
}

// CoreTool is the key of a single core tool capability.
type CoreTool string

const (
	ToolRead         CoreTool = "read"
	ToolWrite        CoreTool = "write"
	ToolEdit         CoreTool = "edit"
	ToolGlob         CoreTool = "glob"
	ToolGrep         CoreTool = "grep"
	ToolTask         CoreTool = "task"
	ToolWebFetch     CoreTool = "webFetch"
	ToolWebSearch    CoreTool = "webSearch"
	ToolTodoWrite    CoreTool = "todoWrite"
	ToolLs           CoreTool = "ls"
	ToolNotebookEdit CoreTool = "notebookEdit"
)

// CoreToolKeys lists every core tool in declaration order.
var CoreToolKeys = []CoreTool{
	ToolRead, ToolWrite, ToolEdit, ToolGlob, ToolGrep, ToolTask,
	ToolWebFetch, ToolWebSearch, ToolTodoWrite, ToolLs, ToolNotebookEdit,
}

// Get reports whether the given core tool is enabled. Unknown keys are false.
func (c *CoreToolPermissions) Get(tool CoreTool) bool {
	if c == nil {
		return false
	}
	switch tool {
	case ToolRead:
		return c.Read
	case ToolWrite:
		return c.Write
	case ToolEdit:
		return c.Edit
	case ToolGlob:
		return c.Glob
	case ToolGrep:
		return c.Grep
	case ToolTask:
		return c.Task
	case ToolWebFetch:
		return c.WebFetch
	case ToolWebSearch:
		return c.WebSearch
	case ToolTodoWrite:
		return c.TodoWrite
	case ToolLs:
		return c.Ls
	case ToolNotebookEdit:
		return c.NotebookEdit
	}
	return false
}

// BashPermissions gates shell command execution.
type BashPermissions struct {
	Enabled                 bool              `json:"enabled" yaml:"enabled"`
	Sandboxed               bool              `json:"sandboxed" yaml:"sandboxed"`
	AllowedPatterns         []string          `json:"allowedPatterns" yaml:"allowedPatterns"`
	DeniedPatterns          []string          `json:"deniedPatterns" yaml:"deniedPatterns"`
	MaxExecutionTimeMs      int64             `json:"maxExecutionTimeMs" yaml:"maxExecutionTimeMs"`
	AllowBackground         bool              `json:"allowBackground" yaml:"allowBackground"`
	EnvironmentOverrides    map[string]string `json:"environmentOverrides,omitempty" yaml:"environmentOverrides,omitempty"`
	WorkingDirectoryPattern string            `json:"workingDirectoryPattern,omitempty" yaml:"workingDirectoryPattern,omitempty"`
}

// FileSystemPermissions gates file reads and writes. Deny patterns always win.
type FileSystemPermissions struct {
	ReadPatterns           []string `json:"readPatterns" yaml:"readPatterns"`
	WritePatterns          []string `json:"writePatterns" yaml:"writePatterns"`
	DenyPatterns           []string `json:"denyPatterns" yaml:"denyPatterns"`
	MaxReadSizeBytes       int64    `json:"maxReadSizeBytes" yaml:"maxReadSizeBytes"`
	MaxWriteSizeBytes      int64    `json:"maxWriteSizeBytes" yaml:"maxWriteSizeBytes"`
	MaxTotalWriteBytes     int64    `json:"maxTotalWriteBytes" yaml:"maxTotalWriteBytes"`
	AllowedReadExtensions  []string `json:"allowedReadExtensions,omitempty" yaml:"allowedReadExtensions,omitempty"`
	AllowedWriteExtensions []string `json:"allowedWriteExtensions,omitempty" yaml:"allowedWriteExtensions,omitempty"`
}

// RateLimit caps how often a single MCP tool may be called.
type RateLimit struct {
	MaxCallsPerMinute int `json:"maxCallsPerMinute" yaml:"maxCallsPerMinute"`
	MaxCallsPerHour   int `json:"maxCallsPerHour" yaml:"maxCallsPerHour"`
}

// MCPToolPermissions gates external "server:tool" integrations.
type MCPToolPermissions struct {
	Allowed    []string             `json:"allowed" yaml:"allowed"`
	Denied     []string             `json:"denied" yaml:"denied"`
	RateLimits map[string]RateLimit `json:"rateLimits,omitempty" yaml:"rateLimits,omitempty"`
}

// NetworkPermissions gates outbound requests.
type NetworkPermissions struct {
	Enabled               bool       `json:"enabled" yaml:"enabled"`
	AllowedDomains        []string   `json:"allowedDomains" yaml:"allowedDomains"`
	DeniedDomains         []string   `json:"deniedDomains" yaml:"deniedDomains"`
	AllowedProtocols      []Protocol `json:"allowedProtocols" yaml:"allowedProtocols"`
	MaxRequestSizeBytes   int64      `json:"maxRequestSizeBytes" yaml:"maxRequestSizeBytes"`
	MaxResponseSizeBytes  int64      `json:"maxResponseSizeBytes" yaml:"maxResponseSizeBytes"`
	RequestTimeoutMs      int64      `json:"requestTimeoutMs" yaml:"requestTimeoutMs"`
	MaxConcurrentRequests int        `json:"maxConcurrentRequests" yaml:"maxConcurrentRequests"`
}

// ModelPermissions gates which model tiers a task may request.
// A nil Allowed means every tier; an empty non-nil list means none.
type ModelPermissions struct {
	Allowed              []ModelTier       `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	PreferredForSpawning ModelTier         `json:"preferredForSpawning,omitempty" yaml:"preferredForSpawning,omitempty"`
	MaxTokensPerModel    map[ModelTier]int `json:"maxTokensPerModel,omitempty" yaml:"maxTokensPerModel,omitempty"`
	AllowEscalation      bool              `json:"allowEscalation" yaml:"allowEscalation"`
}

// AllowedTiers returns the effective tier allow-list.
func (m *ModelPermissions) AllowedTiers() []ModelTier {
	if m == nil || m.Allowed == nil {
		return AllModelTiers
	}
	return m.Allowed
}

// Clone returns a deep copy of the matrix.
func (m *PermissionMatrix) Clone() *PermissionMatrix {
	if m == nil {
		return nil
	}
	out := &PermissionMatrix{}
	if m.CoreTools != nil {
		ct := *m.CoreTools
		out.CoreTools = &ct
	}
	if m.Bash != nil {
		b := *m.Bash
		b.AllowedPatterns = slices.Clone(m.Bash.AllowedPatterns)
		b.DeniedPatterns = slices.Clone(m.Bash.DeniedPatterns)
		b.EnvironmentOverrides = maps.Clone(m.Bash.EnvironmentOverrides)
		out.Bash = &b
	}
	if m.FileSystem != nil {
		fs := *m.FileSystem
		fs.ReadPatterns = slices.Clone(m.FileSystem.ReadPatterns)
		fs.WritePatterns = slices.Clone(m.FileSystem.WritePatterns)
		fs.DenyPatterns = slices.Clone(m.FileSystem.DenyPatterns)
		fs.AllowedReadExtensions = slices.Clone(m.FileSystem.AllowedReadExtensions)
		fs.AllowedWriteExtensions = slices.Clone(m.FileSystem.AllowedWriteExtensions)
		out.FileSystem = &fs
	}
	if m.MCPTools != nil {
		mcp := *m.MCPTools
		mcp.Allowed = slices.Clone(m.MCPTools.Allowed)
		mcp.Denied = slices.Clone(m.MCPTools.Denied)
		mcp.RateLimits = maps.Clone(m.MCPTools.RateLimits)
		out.MCPTools = &mcp
	}
	if m.Network != nil {
		n := *m.Network
		n.AllowedDomains = slices.Clone(m.Network.AllowedDomains)
		n.DeniedDomains = slices.Clone(m.Network.DeniedDomains)
		n.AllowedProtocols = slices.Clone(m.Network.AllowedProtocols)
		out.Network = &n
	}
	if m.Models != nil {
		md := *m.Models
		md.Allowed = slices.Clone(m.Models.Allowed)
		md.MaxTokensPerModel = maps.Clone(m.Models.MaxTokensPerModel)
		out.Models = &md
	}
	return out
}
