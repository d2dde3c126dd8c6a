package shared

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "wrapped.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return n == 1
}

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		if migrations[0].Version != 0 || migrations[0].Name != "create_sessions" {
			t.Errorf("unexpected first migration %d %q", migrations[0].Version, migrations[0].Name)
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("fresh database has no version", func(t *testing.T) {
		db := newTestDB(t)
		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		v, err := getCurrentVersion(db)
		if err != nil {
			t.Fatalf("failed to get version: %v", err)
		}
		if v != noVersion {
			t.Errorf("expected %d, got %d", noVersion, v)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := newTestDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if !tableExists(t, db, "sessions") || !tableExists(t, db, "sessions_sequence") {
			t.Fatal("expected sessions tables after migrations")
		}

		var name string
		if err := db.QueryRow("SELECT name FROM schema_migrations WHERE version = 0").Scan(&name); err != nil {
			t.Fatalf("expected version 0 to be recorded: %v", err)
		}
		if name != "create_sessions" {
			t.Errorf("expected recorded name create_sessions, got %q", name)
		}

		var seq int
		if err := db.QueryRow("SELECT value FROM sessions_sequence WHERE id = 1").Scan(&seq); err != nil {
			t.Errorf("sessions_sequence should be seeded: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if tableExists(t, db, "sessions") {
			t.Error("sessions table should be dropped after rollback")
		}
		if v, _ := getCurrentVersion(db); v != noVersion {
			t.Errorf("expected no version after rolling back the only migration, got %d", v)
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := newTestDB(t)

		for i := 0; i < 2; i++ {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("run %d failed: %v", i+1, err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	t.Run("migrates and applies pool limits", func(t *testing.T) {
		db, err := OpenDatabase(DatabaseConfig{
			Path:         filepath.Join(t.TempDir(), "wrapped.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if !tableExists(t, db, "sessions") {
			t.Error("expected sessions table")
		}
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected max open connections 1, got %d", got)
		}

		var mode string
		if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("failed to read journal mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("expected wal journal mode, got %q", mode)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := OpenDatabase(DatabaseConfig{}); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestRemoveComments(t *testing.T) {
	in := "-- header\nCREATE TABLE t (id INTEGER) -- trailing\n\n"
	if got := removeComments(in); got != "CREATE TABLE t (id INTEGER)" {
		t.Errorf("unexpected result %q", got)
	}
}
