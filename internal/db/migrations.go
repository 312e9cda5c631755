package db

import (
	"database/sql"
	"fmt"
	"time"
)

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT
			);

			CREATE TABLE IF NOT EXISTS projects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				repo_root TEXT UNIQUE NOT NULL,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE IF NOT EXISTS source_roots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL,
				path TEXT NOT NULL,
				FOREIGN KEY (project_id) REFERENCES projects(id)
			);
		`,
	},
	{
		Version: 2,
		Name:    "add_files_symbols_parameters",
		SQL: `
			-- Indexed script files
			CREATE TABLE IF NOT EXISTS files (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL,
				path TEXT NOT NULL,
				lang TEXT NOT NULL DEFAULT '',
				encoding TEXT NOT NULL DEFAULT '',
				sha256 TEXT NOT NULL DEFAULT '',
				size_bytes INTEGER NOT NULL DEFAULT 0,
				mtime_unix INTEGER NOT NULL DEFAULT 0,
				indexed_at TEXT NOT NULL DEFAULT (datetime('now')),
				FOREIGN KEY (project_id) REFERENCES projects(id),
				UNIQUE (project_id, path)
			);
			CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);

			-- Outline members
			CREATE TABLE IF NOT EXISTS symbols (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_id INTEGER NOT NULL,
				ordinal INTEGER NOT NULL,
				name TEXT NOT NULL,
				kind INTEGER NOT NULL,
				type TEXT NOT NULL DEFAULT '',
				value TEXT NOT NULL DEFAULT '',
				signature TEXT NOT NULL DEFAULT '',
				line INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_symbols_name_kind ON symbols(name, kind);
			CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);

			-- Function parameters in declaration order
			CREATE TABLE IF NOT EXISTS parameters (
				symbol_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				type TEXT NOT NULL,
				name TEXT NOT NULL,
				default_value TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (symbol_id, position),
				FOREIGN KEY (symbol_id) REFERENCES symbols(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 3,
		Name:    "add_index_runs",
		SQL: `
			CREATE TABLE IF NOT EXISTS index_runs (
				id TEXT PRIMARY KEY,
				project_id INTEGER NOT NULL,
				mode TEXT NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL DEFAULT '',
				files_indexed INTEGER NOT NULL DEFAULT 0,
				files_skipped INTEGER NOT NULL DEFAULT 0,
				files_removed INTEGER NOT NULL DEFAULT 0,
				files_failed INTEGER NOT NULL DEFAULT 0,
				symbols INTEGER NOT NULL DEFAULT 0,
				bytes_read INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (project_id) REFERENCES projects(id)
			);
			CREATE INDEX IF NOT EXISTS idx_index_runs_project ON index_runs(project_id, started_at);
		`,
	},
}

// Migrate runs all pending versioned migrations inside transactions.
// It creates the schema_migrations table if it does not exist, detects
// databases that were created before versioned migrations were introduced,
// and backfills version 1 for them.
func Migrate(d *sql.DB) error {
	// Ensure the schema_migrations table exists.
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name    TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	// Backfill: if the old "meta" table exists but no migration record,
	// record version 1 so we don't re-run it.
	if err := backfillV1(d); err != nil {
		return fmt.Errorf("backfill v1: %w", err)
	}

	// Determine current version.
	var current int
	row := d.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	// Apply pending migrations.
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(d, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func applyMigration(d *sql.DB, m migration) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}

// backfillV1 checks if the database already has the v1 tables (meta, projects,
// source_roots) but no migration record. If so it records version 1 without
// re-running the DDL.
func backfillV1(d *sql.DB) error {
	var count int
	err := d.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = 1`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already recorded
	}

	// Check if "meta" table exists (proxy for the v1 schema already being present).
	var name string
	err = d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil // fresh DB, nothing to backfill
	}
	if err != nil {
		return err
	}

	// v1 tables exist but the migration record is missing.
	_, err = d.Exec(
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		1, "initial_schema", time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// CurrentVersion returns the highest applied migration version (0 if none).
func CurrentVersion(d *sql.DB) (int, error) {
	var v int
	err := d.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	return v, err
}

// LatestVersion returns the latest migration version defined in code.
func LatestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
