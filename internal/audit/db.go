package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dialectSQLite   = "sqlite3"
	dialectPostgres = "pgx"
)

// DB wraps the audit-log database connection. The backend is selected by
// DSN: empty uses SQLite at ~/.changegate/changegate.db, a postgres:// DSN
// uses Postgres, anything else is treated as a SQLite file path.
type DB struct {
	conn    *sql.DB
	dialect string
	dsn     string
}

// DefaultPath returns ~/.changegate/changegate.db, creating the directory
// if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".changegate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "changegate.db"), nil
}

// Open opens the audit database selected by dsn.
func Open(dsn string) (*DB, error) {
	dialect := dialectSQLite
	switch {
	case dsn == "":
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		dsn = path
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		dialect = dialectPostgres
	}

	conn, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == dialectSQLite {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dialect == dialectSQLite {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return &DB{conn: conn, dialect: dialect, dsn: dsn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// rebind rewrites ? placeholders to $1-style for Postgres.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schemaSQLiteV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    task          TEXT NOT NULL,
    task_type     TEXT NOT NULL,
    repo_path     TEXT,
    status        TEXT NOT NULL DEFAULT 'running',
    decision      TEXT,
    quality_score REAL,
    risk_score    REAL,
    created_at    TEXT NOT NULL,
    completed_at  TEXT
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    event_data  TEXT,
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_log(run_id, id);

CREATE TABLE IF NOT EXISTS check_runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    check_name    TEXT NOT NULL,
    passed        BOOLEAN NOT NULL,
    error_count   INTEGER NOT NULL DEFAULT 0,
    warning_count INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER,
    timestamp     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_run ON check_runs(run_id);
`

const schemaPostgresV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT to_char(now() AT TIME ZONE 'utc', 'YYYY-MM-DD HH24:MI:SS')
);

CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    task          TEXT NOT NULL,
    task_type     TEXT NOT NULL,
    repo_path     TEXT,
    status        TEXT NOT NULL DEFAULT 'running',
    decision      TEXT,
    quality_score DOUBLE PRECISION,
    risk_score    DOUBLE PRECISION,
    created_at    TEXT NOT NULL,
    completed_at  TEXT
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    event_data  TEXT,
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_log(run_id, id);

CREATE TABLE IF NOT EXISTS check_runs (
    id            BIGSERIAL PRIMARY KEY,
    run_id        TEXT NOT NULL,
    check_name    TEXT NOT NULL,
    passed        BOOLEAN NOT NULL,
    error_count   INTEGER NOT NULL DEFAULT 0,
    warning_count INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER,
    timestamp     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_run ON check_runs(run_id);
`

func (d *DB) schema() string {
	if d.dialect == dialectPostgres {
		return schemaPostgresV1
	}
	return schemaSQLiteV1
}

// Migrate applies the database schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow(d.rebind("SELECT COUNT(*) FROM schema_version WHERE version = ?"), 1).Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(d.schema()); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec(d.rebind("INSERT INTO schema_version (version) VALUES (?)"), 1); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	tables := []string{"check_runs", "audit_log", "runs", "schema_version"}
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}
