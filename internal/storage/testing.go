package storage

import (
	"path/filepath"
	"testing"
)

// NewTestDB opens a migrated database in a temporary directory that is
// removed when the test ends. It is exported for use in other package tests.
func NewTestDB(tb testing.TB) *DB {
	tb.Helper()

	db, err := Open(DefaultConfig(filepath.Join(tb.TempDir(), "test.db")))
	if err != nil {
		tb.Fatalf("failed to open test database: %v", err)
	}
	tb.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
