// Package secrets implements the Secrets Store: CRUD over encrypted
// key/value pairs keyed by a unique, case-sensitive name, with an optional
// Sync Engine mirroring mutations to other devices.
package secrets

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
	enginelog "github.com/engramhq/engram/pkg/log"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

// Store owns the secrets table and its sync journal within the shared
// database. blindKey is the HMAC key used for the blind index (BK); it
// must be at least 32 bytes.
type Store struct {
	db       *storage.DB
	crypto   *crypto.Service // bound to the vault key (VK)
	blindKey []byte
	syncer   Syncer
}

// New constructs a Store. syncer may be nil.
func New(db *storage.DB, cryptoSvc *crypto.Service, blindKey []byte, syncer Syncer) *Store {
	return &Store{db: db, crypto: cryptoSvc, blindKey: blindKey, syncer: syncer}
}

// SetSyncer attaches or replaces the Store's Syncer after construction. It
// exists for callers whose Syncer implementation itself needs a reference to
// this Store (the Sync Engine pulls from the same journal it pushes to), a
// cycle New's signature cannot express.
func (s *Store) SetSyncer(syncer Syncer) {
	s.syncer = syncer
}

// Set upserts a secret by key name. If a secret with this key already
// exists, its ciphertext, iv, and updated_at are replaced; description is
// replaced only when the caller supplies a non-nil value, otherwise the
// existing description is kept. The remote push (when a syncer is
// configured) happens after the local write commits and before the local
// journal entry is recorded; a push failure is logged and does not roll
// back the local change.
func (s *Store) Set(ctx context.Context, key, value string, description *string) (types.Secret, error) {
	if key == "" {
		return types.Secret{}, engerrors.New(engerrors.FormatError, "secrets.set")
	}

	env, err := s.crypto.Encrypt(value)
	if err != nil {
		return types.Secret{}, err
	}

	now := time.Now().UnixMilli()
	existing, err := s.getRow(ctx, key)
	if err != nil {
		return types.Secret{}, err
	}

	sec := types.Secret{
		KeyName:     key,
		Ciphertext:  env.Ciphertext,
		IV:          env.IV,
		Description: description,
		UpdatedAt:   now,
	}

	if existing != nil {
		sec.ID = existing.ID
		sec.CreatedAt = existing.CreatedAt
		if description == nil {
			sec.Description = existing.Description
		}
		if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`UPDATE secrets SET encrypted_value=?, iv=?, description=?, updated_at=? WHERE id=?`,
				sec.Ciphertext, sec.IV, nullableDesc(sec.Description), sec.UpdatedAt, sec.ID,
			)
			if err != nil {
				return engerrors.Wrap(engerrors.StorageError, "secrets.set", err)
			}
			return nil
		}); err != nil {
			return types.Secret{}, err
		}
	} else {
		sec.ID = uuid.Must(uuid.NewV7()).String()
		sec.CreatedAt = now
		if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO secrets(id, key_name, encrypted_value, iv, description, created_at, updated_at)
				 VALUES (?,?,?,?,?,?,?)`,
				sec.ID, sec.KeyName, sec.Ciphertext, sec.IV, nullableDesc(sec.Description), sec.CreatedAt, sec.UpdatedAt,
			)
			if err != nil {
				return engerrors.Wrap(engerrors.StorageError, "secrets.set", err)
			}
			return nil
		}); err != nil {
			return types.Secret{}, err
		}
	}

	if s.syncer != nil {
		if err := s.syncer.PushSecret(ctx, sec.ID, key, value); err != nil {
			enginelog.WithComponent("secrets").Warn().Err(err).Str("key", key).
				Msg("remote push failed, local write retained")
		}
	}

	if err := s.appendJournalEvent(ctx, types.SyncEventAdd, sec.ID, key, &value); err != nil {
		return types.Secret{}, err
	}

	return sec, nil
}

// Get decrypts and returns a secret's value. It returns (nil, nil) when no
// secret with this key exists.
func (s *Store) Get(ctx context.Context, key string) (*string, error) {
	row, err := s.getRow(ctx, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	value, err := s.crypto.Decrypt(crypto.Envelope{Ciphertext: row.Ciphertext, IV: row.IV})
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// List returns every secret's metadata (no ciphertext, no iv), sorted
// alphabetically by key name.
func (s *Store) List(ctx context.Context) ([]types.SecretListItem, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, key_name, description, created_at, updated_at FROM secrets ORDER BY key_name ASC`)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "secrets.list", err)
	}
	defer rows.Close()

	var out []types.SecretListItem
	for rows.Next() {
		var item types.SecretListItem
		var desc sql.NullString
		if err := rows.Scan(&item.ID, &item.KeyName, &desc, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "secrets.list", err)
		}
		if desc.Valid {
			item.Description = &desc.String
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Delete removes a secret by key name. It is idempotent: deleting an
// absent key returns false with no journal entry or remote call.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	existing, err := s.getRow(ctx, key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, existing.ID)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "secrets.delete", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if s.syncer != nil {
		if err := s.syncer.DeleteSecret(ctx, existing.ID, key); err != nil {
			enginelog.WithComponent("secrets").Warn().Err(err).Str("key", key).
				Msg("remote delete failed, local delete retained")
		}
	}

	if err := s.appendJournalEvent(ctx, types.SyncEventDelete, existing.ID, key, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the total number of secrets in the store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets`).Scan(&n)
	if err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "secrets.count", err)
	}
	return n, nil
}

func (s *Store) getRow(ctx context.Context, key string) (*types.Secret, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, key_name, encrypted_value, iv, description, created_at, updated_at
		 FROM secrets WHERE key_name = ?`, key)

	var sec types.Secret
	var desc sql.NullString
	err := row.Scan(&sec.ID, &sec.KeyName, &sec.Ciphertext, &sec.IV, &desc, &sec.CreatedAt, &sec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "secrets.get_row", err)
	}
	if desc.Valid {
		sec.Description = &desc.String
	}
	return &sec, nil
}

func nullableDesc(desc *string) any {
	if desc == nil || *desc == "" {
		return nil
	}
	return *desc
}

func marshalPayload(key, value string) (string, []byte, error) {
	p := payload{Key: key, Value: value}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, engerrors.Wrap(engerrors.StorageError, "secrets.marshal_payload", err)
	}
	return string(raw), raw, nil
}

func unmarshalPayload(raw string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payload{}, engerrors.Wrap(engerrors.FormatError, "secrets.unmarshal_payload", err)
	}
	return p, nil
}
