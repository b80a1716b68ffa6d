package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"permgate/internal/permission"
	"permgate/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your permgate installation",
		Long: `Verifies that permgate's configuration, policy, audit database and
listen address are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("permgate doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0

			// 1. Config file
			if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
				printWarn("Config file", fmt.Sprintf("not found at %s, using defaults", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg, err := loadConfig()
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d warnings, %d failed\n", passed, warned, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Policy resolves and validates
			m, isolation, err := activePolicy(cfg)
			if err != nil {
				printFail("Policy", err.Error())
				failed++
			} else {
				result := permission.Validate(m)
				detail := fmt.Sprintf("%s, isolation %s, score %d/100", policySource(cfg), isolation, result.SecurityScore)
				if len(result.Warnings) > 0 {
					printWarn("Policy", fmt.Sprintf("%s, %d warnings (run 'permgate validate')", detail, len(result.Warnings)))
					warned++
				} else {
					printPass("Policy", detail)
					passed++
				}
			}

			// 4. Audit database writable
			if cfg.Audit.Enabled {
				if err := checkDatabase(cfg.Audit.DBPath); err != nil {
					printFail("Audit database", err.Error())
					failed++
				} else {
					printPass("Audit database", cfg.Audit.DBPath)
					passed++
				}
			} else {
				printWarn("Audit database", "disabled, decisions are kept in memory only")
				warned++
			}

			// 5. Listen address
			if err := checkAddr(cfg.Server.Addr()); err != nil {
				printWarn("Listen address", fmt.Sprintf("%s may be in use: %v", cfg.Server.Addr(), err))
				warned++
			} else {
				printPass("Listen address", cfg.Server.Addr()+" available")
				passed++
			}
			if cfg.Server.APIKey == "" {
				printWarn("API key", "not set, /v1 endpoints are unauthenticated")
				warned++
			}

			// 6. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running permgate serve.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\npermgate should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! permgate is ready to run.\n")
			}
			return nil
		},
	}
}

// checkDatabase opens the audit store, which runs migrations, and counts rows.
func checkDatabase(dbPath string) error {
	s, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Count(ctx); err != nil {
		return fmt.Errorf("not readable: %w", err)
	}
	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

