package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrationManager_UpDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// A second Up is a no-op.
	if err := mgr.Up(); err != nil {
		t.Fatalf("Second Up failed: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get migration version: %v", err)
	}
	if dirty {
		t.Error("Database is in dirty state after migrations")
	}
	if version != 1 {
		t.Errorf("Expected migration version 1, got %d", version)
	}

	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back migrations: %v", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'matches'`).Scan(&n); err != nil {
		t.Fatalf("Failed to inspect schema: %v", err)
	}
	if n != 0 {
		t.Error("matches table should be dropped by Down")
	}
}

func TestApplyBaseSchema(t *testing.T) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	if err := applyBaseSchema(conn); err != nil {
		t.Fatalf("applyBaseSchema failed: %v", err)
	}
	// Every statement is IF NOT EXISTS.
	if err := applyBaseSchema(conn); err != nil {
		t.Fatalf("second applyBaseSchema failed: %v", err)
	}

	for _, table := range tableOrder {
		var n int
		if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			t.Fatalf("Failed to inspect schema: %v", err)
		}
		if n != 1 {
			t.Errorf("expected table %s", table)
		}
	}
}
