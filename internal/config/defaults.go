package config

import (
	"permgate/internal/domain"
	"permgate/internal/permission"
	"permgate/internal/preset"
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Policy: PolicyConfig{
			Preset:          string(preset.Standard),
			Isolation:       string(domain.IsolationModerate),
			MaxAuditEntries: permission.DefaultMaxAuditEntries,
		},
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8700,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        "~/.permgate/audit.db",
			RetentionDays: 90,
			QueueSize:     1024,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
