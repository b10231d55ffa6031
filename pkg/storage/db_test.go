package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	db, err := Open(context.Background(), path, 384)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	wantTables := []string{
		"memories", "sync_events", "secrets",
		"local_secret_sync_events", "sync_state",
		"local_vault_key", "devices", "indexing_events",
	}

	for _, table := range wantTables {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	wantErr := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO secrets(id, key_name, encrypted_value, iv, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			"id-1", "TEST_KEY", "ciphertext", "iv", 1, 1,
		); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTx() error = %v, want %v", err, wantErr)
	}

	var count int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM secrets").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected the insert to roll back, found %d rows", count)
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO secrets(id, key_name, encrypted_value, iv, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			"id-1", "TEST_KEY", "ciphertext", "iv", 1, 1,
		)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	var count int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM secrets").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected the insert to commit, found %d rows", count)
	}
}
