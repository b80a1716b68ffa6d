package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"permgate/internal/bus"
	"permgate/internal/config"
	"permgate/internal/permission"
	"permgate/internal/policy"
	"permgate/internal/server"
	"permgate/internal/store"
)

const pruneInterval = time.Hour

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decision service",
		Long: `Starts the decision service with the configured policy. Decisions are
persisted to the SQLite audit store and the policy file is hot-reloaded when
policy.watch is set. Press Ctrl+C to stop.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, isolation, err := activePolicy(cfg)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus(logger, 0)
	opts := []permission.Option{
		permission.WithIsolation(isolation),
		permission.WithLogger(logger),
		permission.WithEventBus(events),
		permission.WithMaxAuditEntries(cfg.Policy.MaxAuditEntries),
		permission.WithRateLimits(cfg.Policy.RateLimits),
		permission.WithCompoundCommands(cfg.Policy.CompoundCommands),
	}

	var (
		auditStore *store.SQLiteStore
		queue      *bus.AuditQueue
	)
	if cfg.Audit.Enabled {
		auditStore, err = store.NewSQLiteStore(cfg.Audit.DBPath, logger)
		if err != nil {
			return fmt.Errorf("audit store: %w", err)
		}
		defer auditStore.Close()
		queue = bus.NewAuditQueue(cfg.Audit.QueueSize, logger)
		opts = append(opts, permission.WithAuditSink(queue))
	}

	enforcer := permission.NewEnforcer(m, opts...)
	logger.Info("enforcer ready",
		"isolation", isolation,
		"score", permission.SecurityScore(m),
		"policy", policySource(cfg),
	)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Endpoint
	}
	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr(),
		APIKey:       cfg.Server.APIKey,
		MetricsPath:  metricsPath,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}, enforcer, permission.NewValidator(logger), logger)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(srv.Start)

	if queue != nil {
		// The queue outlives ctx so entries buffered at shutdown still reach the store.
		drained := make(chan struct{})
		p.Go(func(context.Context) error {
			defer close(drained)
			return queue.Drain(context.Background(), auditStore)
		})
		p.Go(func(ctx context.Context) error {
			<-ctx.Done()
			queue.Close()
			<-drained
			return nil
		})
		p.Go(func(ctx context.Context) error {
			return pruneLoop(ctx, auditStore, cfg.Audit.RetentionDays)
		})
	}

	if cfg.Policy.Watch {
		watcher := policy.NewWatcher(cfg.Policy.File, enforcer, events, logger)
		p.Go(watcher.Run)
	}

	logger.Info("permgate serving. Press Ctrl+C to stop.", "addr", cfg.Server.Addr())
	err = p.Wait()
	logger.Info("shutdown complete")
	return err
}

// pruneLoop deletes audit entries older than the retention window, once at
// start and then every hour.
func pruneLoop(ctx context.Context, s *store.SQLiteStore, retentionDays int) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if _, err := s.Prune(ctx, cutoff); err != nil && ctx.Err() == nil {
			logger.Error("audit prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func policySource(cfg *config.Config) string {
	if cfg.Policy.File != "" {
		return cfg.Policy.File
	}
	return "preset:" + cfg.Policy.Preset
}
