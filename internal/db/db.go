package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFileName = "index.db"

// DatabasePath returns the path to the database file in the state directory.
func DatabasePath(stateDir string) string {
	return filepath.Join(stateDir, dbFileName)
}

// Open opens the index database with WAL journaling and foreign keys on.
// It does not run migrations.
func Open(dbPath string) (*sql.DB, error) {
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; readers share the pool.
	d.SetMaxOpenConns(4)
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return d, nil
}

// Initialize creates the database file if needed and brings the schema up
// to date.
func Initialize(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	d, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := Migrate(d); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
