// Package catalog provides SQLite-backed persistence for notebooks,
// their blocks, and the workspace files that back them.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blocks (
	id           TEXT PRIMARY KEY,
	notebook_id  TEXT NOT NULL REFERENCES notebooks(id) ON DELETE CASCADE,
	type         TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	position     INTEGER NOT NULL,
	edit_mode    INTEGER NOT NULL DEFAULT 0,
	last_output  TEXT NOT NULL DEFAULT '',
	is_executing INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_blocks_notebook ON blocks(notebook_id, position);

CREATE TABLE IF NOT EXISTS files (
	notebook_id TEXT NOT NULL REFERENCES notebooks(id) ON DELETE CASCADE,
	path        TEXT NOT NULL,
	type        TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	UNIQUE(notebook_id, path)
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
