// Package dbtest opens throwaway, fully migrated SQLite stores for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/db"
	"github.com/jmoiron/sqlx"
)

// Open returns a migrated SQLite database living in t.TempDir().
// The connection is closed via t.Cleanup.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	dbx, err := db.NewSQLiteConnection(dsn, db.PoolOpts{})
	if err != nil {
		t.Fatalf("dbtest: open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbx.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.Migrate(ctx, dbx); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}

	return dbx
}
