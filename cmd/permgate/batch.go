package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"

	"permgate/internal/domain"
)

type batchResult struct {
	Request domain.Envelope          `json:"request"`
	Result  domain.EnforcementResult `json:"result"`
}

func batchCmd() *cobra.Command {
	var (
		presetName string
		isolation  string
		workers    int
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Check many requests from a JSON array or JSON lines",
		Long: `Reads request envelopes ({"type": ..., "resource": ...}) from a file or
stdin, checks them concurrently and prints one result per request, in input
order, as JSON lines. Exits non-zero when any request is denied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enforcer, err := cliEnforcer(cfg, presetName, isolation)
			if err != nil {
				return err
			}

			var in io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			envs, err := readEnvelopes(in)
			if err != nil {
				return err
			}

			mapper := iter.Mapper[domain.Envelope, batchResult]{MaxGoroutines: workers}
			results := mapper.Map(envs, func(env *domain.Envelope) batchResult {
				return batchResult{Request: *env, Result: enforcer.CheckEnvelope(*env)}
			})

			out := json.NewEncoder(os.Stdout)
			denied := 0
			for _, r := range results {
				if !r.Result.Allowed {
					denied++
				}
				if quiet && r.Result.Allowed {
					continue
				}
				if err := out.Encode(r); err != nil {
					return err
				}
			}
			logger.Info("batch complete", "requests", len(results), "denied", denied)
			if denied > 0 {
				return fmt.Errorf("%d of %d requests denied", denied, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "check against this preset instead of the configured policy")
	cmd.Flags().StringVarP(&isolation, "isolation", "i", "", "override the isolation level")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.GOMAXPROCS(0), "concurrent checks")
	cmd.Flags().BoolVarP(&quiet, "denied-only", "q", false, "print denied requests only")
	return cmd
}

// readEnvelopes accepts a JSON array of envelopes or one envelope per line.
func readEnvelopes(r io.Reader) ([]domain.Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var envs []domain.Envelope
		if err := json.Unmarshal(data, &envs); err != nil {
			return nil, fmt.Errorf("parse requests: %w", err)
		}
		return envs, nil
	}

	var envs []domain.Envelope
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var env domain.Envelope
		if err := json.Unmarshal(text, &env); err != nil {
			return nil, fmt.Errorf("parse requests: line %d: %w", line, err)
		}
		envs = append(envs, env)
	}
	return envs, sc.Err()
}
