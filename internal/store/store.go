// Package store persists audit entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"permgate/internal/domain"
)

// SQLiteStore is a durable audit sink. It satisfies bus.AuditSink.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Query selects audit entries. Zero fields do not filter.
type Query struct {
	Type       domain.RequestKind
	DeniedOnly bool
	Since      time.Time
	Limit      int
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// LogAudit inserts entry. Re-inserting an ID is a no-op.
func (s *SQLiteStore) LogAudit(ctx context.Context, entry domain.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
	}
	var permission string
	if len(entry.Result.Violations) > 0 {
		permission = entry.Result.Violations[0].Permission
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO audit_log (id, created_at, type, resource, allowed, reason, duration_ms, permission, entry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC(), string(entry.Request.Type), entry.Request.Resource,
		entry.Result.Allowed, entry.Result.Reason, entry.DurationMs, permission, string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry %s: %w", entry.ID, err)
	}
	return nil
}

// List returns the newest q.Limit matching entries, oldest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.DeniedOnly {
		where = append(where, "allowed = 0")
	}
	if !q.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.Since.UTC())
	}

	query := "SELECT entry FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e domain.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// Prune deletes entries recorded before cutoff and returns how many went.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_log WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune audit log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("audit log pruned", "deleted", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

func (s *SQLiteStore) SchemaVersion() (int, error) {
	return GetSchemaVersion(s.db)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
