package storage

import (
	"context"
	"database/sql"

	"github.com/engramhq/engram/pkg/engerrors"
)

// localVaultKeyID is the single row this table ever holds.
const localVaultKeyID = "default"

// LoadVaultKey returns the device's cached vault key, or nil if none has
// been written yet (first run, or a device awaiting authorization).
func (db *DB) LoadVaultKey(ctx context.Context) ([]byte, error) {
	var key []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT vault_key FROM local_vault_key WHERE id = ?`, localVaultKeyID,
	).Scan(&key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "storage.load_vault_key", err)
	}
	return key, nil
}

// SaveVaultKey writes or overwrites the device's cached vault key, used
// once after envelope unwrap (first authorization) and again on rotation.
func (db *DB) SaveVaultKey(ctx context.Context, key []byte, now int64) error {
	if len(key) != 32 {
		return engerrors.New(engerrors.FormatError, "storage.save_vault_key")
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO local_vault_key (id, vault_key, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET vault_key = excluded.vault_key, updated_at = excluded.updated_at
	`, localVaultKeyID, key, now, now)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "storage.save_vault_key", err)
	}
	return nil
}
