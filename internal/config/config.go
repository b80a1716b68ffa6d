package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"permgate/internal/domain"
	"permgate/internal/preset"
)

// Config is the root configuration for permgate.
type Config struct {
	General GeneralConfig `json:"general"`
	Policy  PolicyConfig  `json:"policy"`
	Server  ServerConfig  `json:"server"`
	Audit   AuditConfig   `json:"audit"`
	Metrics MetricsConfig `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// PolicyConfig selects the matrix the enforcer starts with and how it runs.
type PolicyConfig struct {
	Preset           string `json:"preset"`           // used when File is empty
	File             string `json:"file,omitempty"`   // YAML policy document
	Watch            bool   `json:"watch"`            // hot-reload File on change
	Isolation        string `json:"isolation"`        // "strict" | "moderate" | "permissive"
	MaxAuditEntries  int    `json:"maxAuditEntries"`  // in-memory audit log capacity
	RateLimits       bool   `json:"rateLimits"`       // enforce mcpTools.rateLimits
	CompoundCommands bool   `json:"compoundCommands"` // check each command of a bash line
}

// ServerConfig configures the HTTP decision service.
type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	APIKey              string `json:"apiKey,omitempty"` // bearer token; empty disables auth
	ReadTimeoutSeconds  int    `json:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `json:"writeTimeoutSeconds"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuditConfig configures the durable SQLite audit store.
type AuditConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
	QueueSize     int    `json:"queueSize"` // entries buffered between enforcer and store
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.permgate).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".permgate"
	}
	return filepath.Join(home, ".permgate")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.expandPaths()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (cfg *Config) expandPaths() {
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Policy.File = ExpandPath(cfg.Policy.File)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Policy.File == "" {
		if _, err := preset.Get(cfg.Policy.Preset); err != nil {
			errs = append(errs, "policy.preset: "+err.Error())
		}
	}
	if cfg.Policy.Watch && cfg.Policy.File == "" {
		errs = append(errs, "policy.watch requires policy.file")
	}
	if _, err := domain.ParseIsolationLevel(cfg.Policy.Isolation); err != nil {
		errs = append(errs, "policy.isolation: "+err.Error())
	}
	if cfg.Policy.MaxAuditEntries < 1 {
		errs = append(errs, "policy.maxAuditEntries must be >= 1")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if cfg.Server.ReadTimeoutSeconds < 1 || cfg.Server.WriteTimeoutSeconds < 1 {
		errs = append(errs, "server timeouts must be >= 1 second")
	}

	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}
	if cfg.Audit.RetentionDays < 1 {
		errs = append(errs, "audit.retentionDays must be >= 1")
	}
	if cfg.Audit.QueueSize < 1 {
		errs = append(errs, "audit.queueSize must be >= 1")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
