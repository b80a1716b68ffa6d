package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// Env holds PERMGATE_* overrides. Empty values leave the file config alone.
type Env struct {
	LogLevel   string `envconfig:"LOG_LEVEL"`
	Preset     string `envconfig:"PRESET"`
	PolicyFile string `envconfig:"POLICY_FILE"`
	Isolation  string `envconfig:"ISOLATION"`
	HTTPHost   string `envconfig:"HTTP_HOST"`
	HTTPPort   int    `envconfig:"HTTP_PORT"`
	APIKey     string `envconfig:"API_KEY"`
	AuditDB    string `envconfig:"AUDIT_DB"`
}

const namespace = "PERMGATE"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// Apply copies every set override onto cfg and re-validates it.
func (e *Env) Apply(cfg *Config) error {
	if e == nil {
		return nil
	}
	if e.LogLevel != "" {
		cfg.General.LogLevel = e.LogLevel
	}
	if e.Preset != "" {
		cfg.Policy.Preset = e.Preset
	}
	if e.PolicyFile != "" {
		cfg.Policy.File = ExpandPath(e.PolicyFile)
	}
	if e.Isolation != "" {
		cfg.Policy.Isolation = e.Isolation
	}
	if e.HTTPHost != "" {
		cfg.Server.Host = e.HTTPHost
	}
	if e.HTTPPort != 0 {
		cfg.Server.Port = e.HTTPPort
	}
	if e.APIKey != "" {
		cfg.Server.APIKey = e.APIKey
	}
	if e.AuditDB != "" {
		cfg.Audit.DBPath = ExpandPath(e.AuditDB)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	return nil
}

// SlogLevel maps general.logLevel to a slog level, defaulting to info.
func (cfg *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.General.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
