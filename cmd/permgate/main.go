package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"permgate/internal/config"
	"permgate/internal/domain"
	"permgate/internal/policy"
	"permgate/internal/preset"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:           "permgate",
		Short:         "permgate: permission matrices for delegated agent tasks",
		Long:          "permgate validates hierarchical permission matrices and enforces them at runtime, from the CLI or as an HTTP decision service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.permgate/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(presetsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(restrictCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("permgate", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var (
		presetName string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and policy file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := preset.Get(presetName); err != nil {
				return err
			}
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}

			policyPath := filepath.Join(filepath.Dir(cfgPath), "policy.yaml")
			doc := &policy.Document{Preset: presetName, Isolation: preset.IsolationFor(preset.Name(presetName))}
			if err := policy.Save(policyPath, doc); err != nil {
				return err
			}

			cfg := config.Defaults()
			cfg.Policy.Preset = presetName
			cfg.Policy.File = policyPath
			cfg.Policy.Isolation = string(doc.Isolation)
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "policy", policyPath, "preset", presetName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", string(preset.Standard), "preset the policy file starts from")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

// resolveConfigPath returns the config path from --config, $PERMGATE_CONFIG or the default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("PERMGATE_CONFIG"); p != "" {
		return config.ExpandPath(p)
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it does not
// exist, applies PERMGATE_* overrides and reconfigures the logger.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("config not found, using defaults", "path", cfgPath)
		cfg, err = config.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := env.Apply(cfg); err != nil {
		return nil, err
	}

	if err := setupLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) error {
	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return nil
}

// activePolicy returns the matrix and isolation level the config selects.
// A policy file's isolation wins over policy.isolation.
func activePolicy(cfg *config.Config) (*domain.PermissionMatrix, domain.IsolationLevel, error) {
	isolation, err := domain.ParseIsolationLevel(cfg.Policy.Isolation)
	if err != nil {
		return nil, "", err
	}
	if cfg.Policy.File != "" {
		p, err := policy.LoadPolicy(cfg.Policy.File, logger)
		if err != nil {
			return nil, "", err
		}
		if p.IsolationSet {
			isolation = p.Isolation
		}
		return p.Matrix, isolation, nil
	}
	m, err := preset.Get(cfg.Policy.Preset)
	if err != nil {
		return nil, "", err
	}
	return m, isolation, nil
}

// loadMatrix resolves a preset name or reads a matrix from a JSON or YAML file.
func loadMatrix(ref string) (*domain.PermissionMatrix, error) {
	if m, err := preset.Get(ref); err == nil {
		return m, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a preset nor a readable file: %w", ref, err)
	}
	var m domain.PermissionMatrix
	if strings.EqualFold(filepath.Ext(ref), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ref, err)
		}
		return &m, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ref, err)
	}
	return &m, nil
}

// printEncoded writes v to stdout as indented JSON or YAML.
func printEncoded(v any, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (json or yaml)", format)
}
