package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reqtx/internal/bootstrap/config"
)

func TestOpenCreatesSQLiteDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	dsn := filepath.Join(dir, "app.sqlite") + "?_pragma=busy_timeout(5000)"

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 2 {
		t.Fatalf("MaxOpenConnections = %d, want 2", stats.MaxOpenConnections)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("sqlite directory not created: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	for _, driver := range []string{"oracle", "postgres"} {
		if _, err := Open(context.Background(), config.DatabaseConfig{Driver: driver, DSN: "x"}); err == nil {
			t.Fatalf("Open(%q) expected error", driver)
		}
	}
}

func TestEnsureSQLiteDirectory(t *testing.T) {
	for _, dsn := range []string{"", ":memory:", "file::memory:?cache=shared", "app.sqlite"} {
		dir, err := ensureSQLiteDirectory(dsn)
		if err != nil || dir != "" {
			t.Fatalf("ensureSQLiteDirectory(%q) = %q, %v", dsn, dir, err)
		}
	}

	base := t.TempDir()
	dir, err := ensureSQLiteDirectory("file:" + filepath.Join(base, "x", "db.sqlite") + "?mode=rwc")
	if err != nil {
		t.Fatalf("ensureSQLiteDirectory() error = %v", err)
	}
	if dir != filepath.Join(base, "x") {
		t.Fatalf("dir = %q", dir)
	}
}
