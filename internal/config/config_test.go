package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for logLevel=verbose")
	}
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg.General.LogLevel = level
		if err := Validate(cfg); err != nil {
			t.Fatalf("logLevel %q should be valid: %v", level, err)
		}
	}
}

func TestValidate_UnknownPreset(t *testing.T) {
	cfg := Defaults()
	cfg.Policy.Preset = "everything"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "Unknown preset: everything") {
		t.Fatalf("unexpected error: %v", err)
	}

	// A policy file replaces the preset.
	cfg.Policy.File = "/etc/permgate/policy.yaml"
	if err := Validate(cfg); err != nil {
		t.Fatalf("preset should be ignored with a policy file: %v", err)
	}
}

func TestValidate_WatchNeedsFile(t *testing.T) {
	cfg := Defaults()
	cfg.Policy.Watch = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for watch without file")
	}
}

func TestValidate_Isolation(t *testing.T) {
	cfg := Defaults()
	cfg.Policy.Isolation = "paranoid"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for isolation=paranoid")
	}
	cfg.Policy.Isolation = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("empty isolation means moderate: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Server.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Policy.MaxAuditEntries = 0
	cfg.Audit.RetentionDays = 0
	cfg.Audit.QueueSize = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "config validation errors:\n  - ") {
		t.Fatalf("unexpected format: %q", msg)
	}
	if n := strings.Count(msg, "\n  - "); n != 3 {
		t.Fatalf("expected 3 errors, got %d: %s", n, msg)
	}
}

func TestValidate_AuditNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Audit.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty audit.dbPath")
	}
	cfg.Audit.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled audit needs no path: %v", err)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Policy.Preset = "ci-cd"
	original.Policy.RateLimits = true

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Policy.Preset != "ci-cd" {
		t.Fatalf("expected 'ci-cd', got %q", loaded.Policy.Preset)
	}
	if !loaded.Policy.RateLimits {
		t.Fatal("expected rateLimits=true")
	}
}

func TestSave_RestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"policy": {"isolation": "lax"}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for isolation=lax")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgFile, []byte(`{"server": {"port": 9000}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Policy.Preset != "standard" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_PERMGATE_POLICY", "/tmp/test-policy.yaml")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"policy": {
			"file": "${TEST_PERMGATE_POLICY}",
			"isolation": "${TEST_PERMGATE_ISOLATION:-strict}"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Policy.File != "/tmp/test-policy.yaml" {
		t.Fatalf("expected policy file '/tmp/test-policy.yaml', got %q", cfg.Policy.File)
	}
	if cfg.Policy.Isolation != "strict" {
		t.Fatalf("expected isolation 'strict', got %q", cfg.Policy.Isolation)
	}
}

func TestLoad_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfgFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgFile, []byte(`{"audit": {"dbPath": "~/x/audit.db"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Audit.DBPath != filepath.Join(home, "x/audit.db") {
		t.Fatalf("unexpected path %q", cfg.Audit.DBPath)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "policy.preset")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "standard" {
		t.Fatalf("expected 'standard', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "policy.isolation", "strict"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Policy.Isolation != "strict" {
		t.Fatalf("expected 'strict', got %q", cfg.Policy.Isolation)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "audit.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Audit.Enabled {
		t.Fatal("expected audit.enabled=false")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "server.port", "9999"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected 9999, got %d", cfg.Server.Port)
	}
}

func TestGetByPath_Section(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "audit")
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	section, ok := val.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", val)
	}
	if section["retentionDays"] != cfg.Audit.RetentionDays {
		t.Fatalf("retentionDays = %v, want %d", section["retentionDays"], cfg.Audit.RetentionDays)
	}
}

func TestSetByPath_RejectsBadValues(t *testing.T) {
	tests := []struct {
		path, value, wantErr string
	}{
		{"policy.isolation", "paranoid", "policy.isolation"},
		{"policy.isolation", "", "isolation level is required"},
		{"policy.preset", "everything", "Unknown preset: everything"},
		{"general.logLevel", "trace", "invalid log level"},
		{"server.port", "eighty", `invalid integer "eighty"`},
		{"audit.enabled", "maybe", `invalid boolean "maybe"`},
		{"server.tls", "true", `unknown config path "server.tls"`},
	}
	for _, tt := range tests {
		cfg := Defaults()
		err := SetByPath(cfg, tt.path, tt.value)
		if err == nil {
			t.Errorf("SetByPath(%q, %q): expected error", tt.path, tt.value)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("SetByPath(%q, %q): error %q does not contain %q", tt.path, tt.value, err, tt.wantErr)
		}
		if *cfg != *Defaults() {
			t.Errorf("SetByPath(%q, %q): config modified on error", tt.path, tt.value)
		}
	}
}

func TestSetByPath_PresetAndIsolation(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "policy.preset", "ci-cd"); err != nil {
		t.Fatalf("set preset: %v", err)
	}
	if err := SetByPath(cfg, "policy.isolation", "permissive"); err != nil {
		t.Fatalf("set isolation: %v", err)
	}
	if cfg.Policy.Preset != "ci-cd" || cfg.Policy.Isolation != "permissive" {
		t.Fatalf("got preset=%q isolation=%q", cfg.Policy.Preset, cfg.Policy.Isolation)
	}
}

// --- Sanitize ---

func TestSanitize_MasksAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "pg-1234567890abcdefghij"

	sanitized := Sanitize(cfg)

	if sanitized.Server.APIKey != "pg-1****ghij" {
		t.Fatalf("API key should be masked, got %q", sanitized.Server.APIKey)
	}
	if cfg.Server.APIKey != "pg-1234567890abcdefghij" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Server.APIKey != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Server.APIKey)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"general.logLevel", "policy.preset", "server.port", "audit.dbPath"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

func TestListPaths_MatchesJSONLeaves(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogFile = "/tmp/permgate.log"
	cfg.Policy.File = "/tmp/policy.yaml"
	cfg.Server.APIKey = "key"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var tree map[string]map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	paths := ListPaths(cfg)
	leaves := 0
	for section, values := range tree {
		for name := range values {
			leaves++
			if _, ok := paths[section+"."+name]; !ok {
				t.Errorf("json field %s.%s has no config path", section, name)
			}
		}
	}
	if leaves != len(paths) {
		t.Fatalf("json has %d leaves, ListPaths has %d", leaves, len(paths))
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "pg-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "pg-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8080}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

// --- Env ---

func TestLoadEnv_AppliesOverrides(t *testing.T) {
	t.Setenv("PERMGATE_PRESET", "research")
	t.Setenv("PERMGATE_ISOLATION", "strict")
	t.Setenv("PERMGATE_HTTP_PORT", "9123")
	t.Setenv("PERMGATE_LOG_LEVEL", "debug")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	cfg := Defaults()
	if err := env.Apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Policy.Preset != "research" || cfg.Policy.Isolation != "strict" {
		t.Fatalf("policy overrides not applied: %+v", cfg.Policy)
	}
	if cfg.Server.Port != 9123 {
		t.Fatalf("expected port 9123, got %d", cfg.Server.Port)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatal("unset overrides must not clear file values")
	}
}

func TestLoadEnv_InvalidPort(t *testing.T) {
	t.Setenv("PERMGATE_HTTP_PORT", "not-a-number")
	if _, err := LoadEnv(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestEnvApply_RejectsInvalidOverride(t *testing.T) {
	env := &Env{Preset: "bogus"}
	if err := env.Apply(Defaults()); err == nil {
		t.Fatal("expected error for unknown preset override")
	}
}

func TestSlogLevel_DefaultsToInfo(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "chatty"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info, got %v", cfg.SlogLevel())
	}
}
