// Package storage provides the SQLite-backed substrate shared by the
// memory and secrets stores: schema bootstrap, transaction helpers, and the
// sqlite-vec-powered vector index.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/engramhq/engram/pkg/engerrors"
)

func init() {
	sqlite_vec.Auto()
}

// DB wraps the shared SQLite connection. All store operations are
// synchronous with respect to one writer; WAL mode is enabled so readers
// never block on a writer.
type DB struct {
	conn      *sql.DB
	VectorDim int
}

// Open opens (creating if absent) the SQLite database at path, enables WAL
// mode, and bootstraps the schema. vectorDim is fixed for the lifetime of
// the database: it is never read back from existing data, so opening the
// same file with a different dim is the caller's error to avoid.
func Open(ctx context.Context, path string, vectorDim int) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "storage.open", err)
	}
	conn.SetMaxOpenConns(1) // single-writer discipline; WAL still allows concurrent readers

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, engerrors.Wrap(engerrors.StorageError, "storage.open", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, engerrors.Wrap(engerrors.StorageError, "storage.open", err)
	}

	db := &DB{conn: conn, VectorDim: vectorDim}
	if err := db.bootstrap(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying *sql.DB for packages that need to prepare
// their own statements (pkg/memory, pkg/secrets).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Partial failures (e.g. a vector insert after a
// successful main-table insert) roll back the whole operation.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "storage.with_tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return engerrors.Wrap(engerrors.StorageError, "storage.with_tx", err)
	}
	return nil
}

func (db *DB) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			source TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			is_verified INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_source ON memories(source)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS memories_vec USING vec0(
			memory_id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		)`, db.VectorDim),
		`CREATE TABLE IF NOT EXISTS sync_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			memory_id TEXT NOT NULL,
			encrypted_data TEXT,
			checksum TEXT,
			timestamp INTEGER NOT NULL,
			sequence_num INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_events_sequence ON sync_events(sequence_num)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			id TEXT PRIMARY KEY,
			key_name TEXT NOT NULL UNIQUE,
			encrypted_value TEXT NOT NULL,
			iv TEXT NOT NULL,
			description TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS local_secret_sync_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			secret_id TEXT NOT NULL,
			encrypted_data TEXT,
			iv TEXT,
			checksum TEXT,
			blind_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			sequence_num INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_secret_sync_events_sequence ON local_secret_sync_events(sequence_num)`,
		`CREATE INDEX IF NOT EXISTS idx_secret_sync_events_blind_id ON local_secret_sync_events(blind_id)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS local_vault_key (
			id TEXT PRIMARY KEY DEFAULT 'default',
			vault_key BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT,
			public_key TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_sync_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			path TEXT NOT NULL,
			detail TEXT,
			timestamp INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return engerrors.Wrap(engerrors.StorageError, "storage.bootstrap", err)
		}
	}
	return nil
}
