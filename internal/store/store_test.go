package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"permgate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, at time.Duration, kind domain.RequestKind, resource string, violations ...domain.Violation) domain.AuditEntry {
	return domain.AuditEntry{
		ID:         id,
		Timestamp:  base.Add(at),
		Request:    domain.Envelope{Type: kind, Resource: resource},
		Result:     domain.NewResult(violations, nil),
		DurationMs: 0.25,
	}
}

var bashDenied = domain.Violation{
	Type:       domain.ViolationBashPatternDenied,
	Resource:   "rm -rf /",
	Permission: "bash.deniedPatterns",
	Message:    "Command matches denied pattern",
	Severity:   domain.SeverityError,
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []domain.AuditEntry{
		entry("01A", 0, domain.KindTool, "read"),
		entry("01B", time.Minute, domain.KindBash, "rm -rf /", bashDenied),
		entry("01C", 2*time.Minute, domain.KindBash, "ls -la"),
		entry("01D", 3*time.Minute, domain.KindFileRead, "src/main.go"),
	} {
		if err := s.LogAudit(ctx, e); err != nil {
			t.Fatalf("log %s: %v", e.ID, err)
		}
	}
}

func ids(entries []domain.AuditEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func equalIDs(t *testing.T, got []domain.AuditEntry, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestLogAudit_RoundTripsEntry(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	got, err := s.List(context.Background(), Query{Type: domain.KindBash, DeniedOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	equalIDs(t, got, "01B")

	e := got[0]
	if e.Result.Allowed {
		t.Fatal("expected denied entry")
	}
	if e.Result.Reason != bashDenied.Message {
		t.Fatalf("unexpected reason %q", e.Result.Reason)
	}
	if len(e.Result.Violations) != 1 || e.Result.Violations[0].Permission != "bash.deniedPatterns" {
		t.Fatalf("violations lost: %+v", e.Result.Violations)
	}
	if !e.Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp changed: %v", e.Timestamp)
	}
}

func TestLogAudit_DuplicateIDIgnored(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	e := entry("01A", 0, domain.KindTool, "read")

	if err := s.LogAudit(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.LogAudit(ctx, e); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestList_ChronologicalWithLimit(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	all, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, all, "01A", "01B", "01C", "01D")

	newest, err := s.List(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, newest, "01C", "01D")
}

func TestList_FilterByTypeAndSince(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	bash, err := s.List(ctx, Query{Type: domain.KindBash})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, bash, "01B", "01C")

	recent, err := s.List(ctx, Query{Since: base.Add(2 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, recent, "01C", "01D")
}

func TestList_Empty(t *testing.T) {
	s := testStore(t)
	got, err := s.List(context.Background(), Query{DeniedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestPrune_DeletesOlderEntries(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	n, err := s.Prune(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	rest, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, rest, "01C", "01D")

	n, err = s.Prune(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected nothing pruned, got %d", n)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "audit.db")
	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != schemaVersion {
		t.Fatalf("expected schema version %d, got %d", schemaVersion, v)
	}
}

// --- Migrations ---

func TestNewSQLiteStore_AppliesPragmas(t *testing.T) {
	s := testStore(t)

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations_FreshDB(t *testing.T) {
	db := testDB(t)
	if err := RunMigrations(db, testLogger()); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("expected schema version %d, got %d", schemaVersion, version)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := testDB(t)
	logger := testLogger()

	if err := RunMigrations(db, logger); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}
	if err := RunMigrations(db, logger); err != nil {
		t.Fatalf("second migration (idempotent) failed: %v", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("expected schema version %d, got %d", schemaVersion, version)
	}
}

func TestRunMigrations_RecoversPartialUpgrade(t *testing.T) {
	db := testDB(t)
	logger := testLogger()

	// A v1 database where the v2 column was added but never recorded.
	if _, err := db.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT, applied_at DATETIME)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(migrations[0].SQL); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version (version, description) VALUES (1, 'base')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`ALTER TABLE audit_log ADD COLUMN permission TEXT DEFAULT ''`); err != nil {
		t.Fatal(err)
	}

	if err := RunMigrations(db, logger); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("expected schema version %d, got %d", schemaVersion, version)
	}
}

func TestGetSchemaVersion_NoTable(t *testing.T) {
	db := testDB(t)
	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Fatalf("expected version 0, got %d", version)
	}
}

func TestSplitSQL(t *testing.T) {
	got := splitSQL("CREATE TABLE a (x);\n\n  CREATE INDEX i ON a(x);  \n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX i ON a(x)" {
		t.Fatalf("unexpected statement %q", got[1])
	}
}
