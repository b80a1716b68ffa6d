package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"permgate/internal/domain"
	"permgate/internal/store"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and prune the persisted audit log",
	}
	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditPruneCmd())
	return cmd
}

func openStore() (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Audit.DBPath == "" {
		return nil, fmt.Errorf("audit.dbPath is not configured")
	}
	return store.NewSQLiteStore(cfg.Audit.DBPath, logger)
}

func auditListCmd() *cobra.Command {
	var (
		limit      int
		kind       string
		deniedOnly bool
		since      time.Duration
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			q := store.Query{Type: domain.RequestKind(kind), DeniedOnly: deniedOnly, Limit: limit}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}
			entries, err := s.List(context.Background(), q)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tDECISION\tTYPE\tRESOURCE\tREASON")
			for _, e := range entries {
				decision := color.GreenString("allow")
				if !e.Result.Allowed {
					decision = color.RedString("deny")
				}
				if action, ok := e.Metadata["action"].(string); ok {
					decision = color.CyanString(action)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), decision, e.Request.Type, e.Request.Resource, e.Result.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries (0 for all)")
	cmd.Flags().StringVarP(&kind, "type", "t", "", "only this request type")
	cmd.Flags().BoolVarP(&deniedOnly, "denied", "d", false, "only denied requests")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this (e.g. 24h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON lines")
	return cmd
}

func auditPruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Audit.RetentionDays
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Prune(context.Background(), time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d entries older than %d days\n", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 0, "retention in days (default: audit.retentionDays)")
	return cmd
}
