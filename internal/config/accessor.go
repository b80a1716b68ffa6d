package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"permgate/internal/domain"
	"permgate/internal/preset"
)

// field is one settable leaf of Config, addressed by its JSON dot path.
type field struct {
	get func(*Config) any
	set func(*Config, string) error
}

var fields = map[string]field{
	"general.logLevel": stringField(func(c *Config) *string { return &c.General.LogLevel }, checkLogLevel),
	"general.logFile":  stringField(func(c *Config) *string { return &c.General.LogFile }, nil),

	"policy.preset":           stringField(func(c *Config) *string { return &c.Policy.Preset }, checkPreset),
	"policy.file":             stringField(func(c *Config) *string { return &c.Policy.File }, nil),
	"policy.watch":            boolField(func(c *Config) *bool { return &c.Policy.Watch }),
	"policy.isolation":        stringField(func(c *Config) *string { return &c.Policy.Isolation }, checkIsolation),
	"policy.maxAuditEntries":  intField(func(c *Config) *int { return &c.Policy.MaxAuditEntries }),
	"policy.rateLimits":       boolField(func(c *Config) *bool { return &c.Policy.RateLimits }),
	"policy.compoundCommands": boolField(func(c *Config) *bool { return &c.Policy.CompoundCommands }),

	"server.host":                stringField(func(c *Config) *string { return &c.Server.Host }, nil),
	"server.port":                intField(func(c *Config) *int { return &c.Server.Port }),
	"server.apiKey":              stringField(func(c *Config) *string { return &c.Server.APIKey }, nil),
	"server.readTimeoutSeconds":  intField(func(c *Config) *int { return &c.Server.ReadTimeoutSeconds }),
	"server.writeTimeoutSeconds": intField(func(c *Config) *int { return &c.Server.WriteTimeoutSeconds }),

	"audit.enabled":       boolField(func(c *Config) *bool { return &c.Audit.Enabled }),
	"audit.dbPath":        stringField(func(c *Config) *string { return &c.Audit.DBPath }, nil),
	"audit.retentionDays": intField(func(c *Config) *int { return &c.Audit.RetentionDays }),
	"audit.queueSize":     intField(func(c *Config) *int { return &c.Audit.QueueSize }),

	"metrics.enabled":  boolField(func(c *Config) *bool { return &c.Metrics.Enabled }),
	"metrics.endpoint": stringField(func(c *Config) *string { return &c.Metrics.Endpoint }, nil),
}

func stringField(ptr func(*Config) *string, check func(string) error) field {
	return field{
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			if check != nil {
				if err := check(v); err != nil {
					return err
				}
			}
			*ptr(c) = v
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean %q", v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

func intField(ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer %q", v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func checkLogLevel(v string) error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, v) {
		return fmt.Errorf("invalid log level %q (debug, info, warn, error)", v)
	}
	return nil
}

func checkPreset(v string) error {
	_, err := preset.Get(v)
	return err
}

func checkIsolation(v string) error {
	if v == "" {
		return fmt.Errorf("isolation level is required")
	}
	_, err := domain.ParseIsolationLevel(v)
	return err
}

// GetByPath returns the value at a dot path such as "policy.preset". A section
// name such as "policy" returns that section's fields keyed by their name.
func GetByPath(cfg *Config, path string) (any, error) {
	if f, ok := fields[path]; ok {
		return f.get(cfg), nil
	}
	section := make(map[string]any)
	for p, f := range fields {
		if name, ok := strings.CutPrefix(p, path+"."); ok {
			section[name] = f.get(cfg)
		}
	}
	if len(section) == 0 {
		return nil, fmt.Errorf("unknown config path %q", path)
	}
	return section, nil
}

// SetByPath parses value for the field at path and stores it. Preset and
// isolation names are checked here; cross-field rules are left to Validate.
func SetByPath(cfg *Config, path, value string) error {
	f, ok := fields[path]
	if !ok {
		return fmt.Errorf("unknown config path %q", path)
	}
	if err := f.set(cfg, value); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ListPaths returns every settable path with its current value.
func ListPaths(cfg *Config) map[string]any {
	out := make(map[string]any, len(fields))
	for p, f := range fields {
		out[p] = f.get(cfg)
	}
	return out
}

// Sanitize returns a copy of the config with the API key masked.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	if out.Server.APIKey != "" {
		out.Server.APIKey = maskString(out.Server.APIKey)
	}
	return &out
}

// maskString keeps the first and last four characters.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
