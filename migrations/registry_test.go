package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	vdrpool "github.com/goliatone/go-vdrpool"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
			if entry.Path != "data/sql/migrations/sqlite" {
				t.Fatalf("unexpected sqlite path %q", entry.Path)
			}
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestFilesystems_RejectsTreeWithoutMigrations(t *testing.T) {
	empty := fstest.MapFS{
		"data/sql/migrations/README.md":        {Data: []byte("nothing here")},
		"data/sql/migrations/sqlite/README.md": {Data: []byte("nothing here")},
	}
	if _, err := Filesystems(empty); err == nil {
		t.Fatalf("expected tree without *.up.sql files to be rejected")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect+":"+label)
		return nil
	}, WithValidationTargets(" SQLite "), WithDialectSourceLabel("journal"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite+":journal" {
		t.Fatalf("expected sqlite registration with label, got %q", calls[0])
	}
	if reg.SourceLabel != "journal" {
		t.Fatalf("expected source label override, got %q", reg.SourceLabel)
	}
}

func TestRegister_PropagatesRegisterError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped register error, got %v", err)
	}
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected nil register function to fail")
	}
}

func TestPoolOperationsMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := vdrpool.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_pool_operations.up.sql",
		"data/sql/migrations/00001_pool_operations.down.sql",
		"data/sql/migrations/sqlite/00001_pool_operations.up.sql",
		"data/sql/migrations/sqlite/00001_pool_operations.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLitePoolOperationsMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-pool-operations?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	sqliteMigrations, err := fs.Sub(vdrpool.GetCoreMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_pool_operations.up.sql"); err != nil {
		t.Fatalf("apply up: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO pool_operations (id, kind, pool_handle, request_handle, status, code, detail, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, "op-1", "submit_request", 1, 2, "pending", 0, "", "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("insert operation: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO pool_operations (id, kind, pool_handle, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, "op-2", "close_pool", 1, "unknown", "2026-01-01T00:00:00Z"); err == nil {
		t.Fatalf("expected status check constraint to reject unknown status")
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pool_operations WHERE pool_handle = ?`, 1).Scan(&count); err != nil {
		t.Fatalf("count operations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 operation row, got %d", count)
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_pool_operations.down.sql"); err != nil {
		t.Fatalf("apply down: %v", err)
	}
	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'pool_operations'`).Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected pool_operations to be dropped, got %q %v", name, err)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
