package store

import (
	"context"
	"database/sql"
	"fmt"
)

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS chunks (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk_id      TEXT NOT NULL UNIQUE,
    path          TEXT NOT NULL,
    language      TEXT NOT NULL DEFAULT '',
    start_line    INTEGER NOT NULL,
    end_line      INTEGER NOT NULL,
    content       TEXT NOT NULL,
    strategy      TEXT NOT NULL,
    node_type     TEXT NOT NULL DEFAULT '',
    symbol        TEXT NOT NULL DEFAULT '',
    content_hash  TEXT NOT NULL,
    file_mtime_ms INTEGER NOT NULL DEFAULT 0,
    file_size     INTEGER NOT NULL DEFAULT 0,
    embedding     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path, start_line);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the base tables. The vec0 virtual table is created lazily on
// the first write because its column width depends on the embedding model.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// vecTableExists reports whether the lazily created vec0 table is present.
func vecTableExists(ctx context.Context, tx *sql.Tx) (bool, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'vec_chunks'").Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ensureVecTable creates (or recreates, when the dimensionality changed) the
// sqlite-vec virtual table. Returns an error when the extension is missing;
// callers treat that as best-effort and fall back to an unindexed scan.
func ensureVecTable(db *sql.DB, dim int) error {
	var current string
	err := db.QueryRow("SELECT value FROM meta WHERE key = 'embedding_dim'").Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if current != "" && current != fmt.Sprint(dim) {
		if _, err := db.Exec("DROP TABLE IF EXISTS vec_chunks"); err != nil {
			return err
		}
	}
	_, err = db.Exec(fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(chunk_id INTEGER PRIMARY KEY, embedding float[%d])", dim))
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT INTO meta (key, value) VALUES ('embedding_dim', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fmt.Sprint(dim),
	)
	return err
}
