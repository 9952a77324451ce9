// Package db provides the SQLite-backed build history for goatforge.
package db

import (
	"database/sql"
	"path/filepath"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/paths"
	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection holding build history
type Database struct {
	db   *sql.DB
	path string
}

// Config holds the database configuration
type Config struct {
	// Path is the SQLite database file
	Path string
}

// DefaultConfig returns a default database configuration
func DefaultConfig() Config {
	return Config{
		Path: "~/.goatforge/history.db",
	}
}

// New opens (creating if necessary) the build history database
func New(cfg Config) (*Database, error) {
	path := paths.Expand(cfg.Path)

	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, apperrors.ErrDatabaseConnection.WithMessagef("creating directory for %s", path).WithCause(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.ErrDatabaseConnection.WithMessagef("opening %s", path).WithCause(err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, apperrors.ErrDatabaseConnection.WithMessagef("enabling foreign keys on %s", path).WithCause(err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, apperrors.ErrDatabaseConnection.WithMessagef("enabling WAL mode on %s", path).WithCause(err)
	}

	database := &Database{db: db, path: path}
	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.ErrDatabaseConnection.WithMessagef("initializing schema in %s", path).WithCause(err)
	}

	return database, nil
}

// DB returns the underlying sql.DB
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the database file path
func (d *Database) Path() string {
	return d.path
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_jobs (
		id TEXT PRIMARY KEY,
		kernel_version TEXT NOT NULL,
		status TEXT NOT NULL,
		current_stage TEXT,
		progress_percent INTEGER NOT NULL DEFAULT 0,
		workspace_path TEXT,
		artifact_path TEXT,
		artifact_checksum TEXT,
		artifact_size INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		error_stage TEXT,
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_build_jobs_status ON build_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_build_jobs_kernel_version ON build_jobs(kernel_version);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return err
	}
	return nil
}
