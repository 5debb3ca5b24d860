// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/templui/filesmanager/internal/db"
)

// NewSQLite returns a migrated SQLite database stored in t.TempDir().
func NewSQLite(t testing.TB) *sqlx.DB {
	t.Helper()

	conn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	database, err := db.Init("sqlite", conn)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(context.Background(), database.DB, "sqlite")
	if err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	return database
}
