package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"permgate/internal/config"
	"permgate/internal/domain"
	"permgate/internal/permission"
	"permgate/internal/preset"
)

var errDenied = errors.New("request denied")

func checkCmd() *cobra.Command {
	var (
		presetName string
		isolation  string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "check [type] [resource...]",
		Short: "Check one request against the configured policy",
		Long: `Checks a single request. Types: tool, file_read, file_write, bash, mcp,
network, model. Remaining arguments are joined into the resource, so
"permgate check bash git status" checks the command "git status".
Exits non-zero when the request is denied.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enforcer, err := cliEnforcer(cfg, presetName, isolation)
			if err != nil {
				return err
			}

			env := domain.Envelope{Type: domain.RequestKind(args[0]), Resource: strings.Join(args[1:], " ")}
			result := enforcer.CheckEnvelope(env)
			if format != "" {
				if err := printEncoded(result, format); err != nil {
					return err
				}
			} else {
				printDecision(env, result)
			}
			if !result.Allowed {
				return errDenied
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "check against this preset instead of the configured policy")
	cmd.Flags().StringVarP(&isolation, "isolation", "i", "", "override the isolation level")
	cmd.Flags().StringVarP(&format, "output", "o", "", "print the full result as json or yaml")
	return cmd
}

// cliEnforcer builds an enforcer for one-shot commands. presetName and
// isolation, when set, override the config.
func cliEnforcer(cfg *config.Config, presetName, isolation string) (*permission.Enforcer, error) {
	var (
		m     *domain.PermissionMatrix
		level domain.IsolationLevel
		err   error
	)
	if presetName != "" {
		if m, err = preset.Get(presetName); err != nil {
			return nil, err
		}
		level = preset.IsolationFor(preset.Name(presetName))
	} else if m, level, err = activePolicy(cfg); err != nil {
		return nil, err
	}
	if isolation != "" {
		if level, err = domain.ParseIsolationLevel(isolation); err != nil {
			return nil, err
		}
	}
	return permission.NewEnforcer(m,
		permission.WithIsolation(level),
		permission.WithLogger(logger),
		permission.WithMaxAuditEntries(cfg.Policy.MaxAuditEntries),
		permission.WithRateLimits(cfg.Policy.RateLimits),
		permission.WithCompoundCommands(cfg.Policy.CompoundCommands),
	), nil
}
