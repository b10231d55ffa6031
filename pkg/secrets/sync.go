package secrets

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/types"
)

// appendJournalEvent records one local_secret_sync_events row. value is nil
// for DELETE events. The event payload seals {key, value} together (not
// value alone) because blind_id cannot be reversed to recover key_name.
func (s *Store) appendJournalEvent(ctx context.Context, typ types.SyncEventType, secretID, key string, value *string) error {
	blindID, err := crypto.BlindIndex(s.blindKey, key)
	if err != nil {
		return err
	}

	var encryptedData, iv, checksum *string
	if value != nil {
		plaintext, raw, err := marshalPayload(key, *value)
		if err != nil {
			return err
		}
		env, err := s.crypto.Encrypt(plaintext)
		if err != nil {
			return err
		}
		encryptedData = &env.Ciphertext
		iv = &env.IV
		sum := crypto.SHA256Hex(raw)
		checksum = &sum
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		seq, err := nextSecretSequenceNum(ctx, tx)
		if err != nil {
			return err
		}
		id := uuid.Must(uuid.NewV7()).String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO local_secret_sync_events(id, event_type, secret_id, encrypted_data, iv, checksum, blind_id, timestamp, sequence_num)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			id, string(typ), secretID, encryptedData, iv, checksum, blindID, nowMillis(), seq,
		)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "secrets.append_journal_event", err)
		}
		return nil
	})
}

func nextSecretSequenceNum(ctx context.Context, tx *sql.Tx) (int64, error) {
	var max sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(sequence_num) FROM local_secret_sync_events`).Scan(&max); err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "secrets.next_sequence_num", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

// LatestSequenceNum returns the highest sequence_num written to the secrets
// journal so far, or 0 if it is empty.
func (s *Store) LatestSequenceNum(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT MAX(sequence_num) FROM local_secret_sync_events`).Scan(&max)
	if err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "secrets.latest_sequence_num", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// GetSyncEventsSince returns up to limit secrets-journal entries with
// sequence_num strictly greater than seq, in ascending order.
func (s *Store) GetSyncEventsSince(ctx context.Context, seq int64, limit int) ([]types.SecretSyncEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, event_type, secret_id, encrypted_data, iv, checksum, blind_id, timestamp, sequence_num
		 FROM local_secret_sync_events WHERE sequence_num > ? ORDER BY sequence_num ASC LIMIT ?`,
		seq, limit,
	)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "secrets.get_sync_events_since", err)
	}
	defer rows.Close()

	var out []types.SecretSyncEvent
	for rows.Next() {
		var (
			ev                      types.SecretSyncEvent
			typ                     string
			encryptedData, iv, sum  sql.NullString
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.SecretID, &encryptedData, &iv, &sum, &ev.BlindID, &ev.Timestamp, &ev.SequenceNum); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "secrets.get_sync_events_since", err)
		}
		ev.Type = types.SyncEventType(typ)
		if encryptedData.Valid {
			ev.EncryptedData = &encryptedData.String
		}
		if iv.Valid {
			ev.IV = &iv.String
		}
		if sum.Valid {
			ev.Checksum = &sum.String
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ApplyEncryptedSecretSyncEvent applies a remote journal entry received via
// pull. ADD events are self-describing (the payload carries key_name), so
// they apply directly; DELETE events carry only a blind_id, so the matching
// local row is found by recomputing the blind index of every local key
// until one matches.
func (s *Store) ApplyEncryptedSecretSyncEvent(ctx context.Context, event types.SecretSyncEvent) error {
	switch event.Type {
	case types.SyncEventDelete:
		key, err := s.findKeyByBlindID(ctx, event.BlindID)
		if err != nil {
			return err
		}
		if key == "" {
			return nil // already absent locally; nothing to do
		}
		_, err = s.deleteNoJournal(ctx, key)
		return err

	case types.SyncEventAdd, types.SyncEventUpdate:
		if event.EncryptedData == nil || event.IV == nil || event.Checksum == nil {
			return engerrors.New(engerrors.FormatError, "secrets.apply_encrypted_sync_event")
		}
		env := crypto.Envelope{Ciphertext: *event.EncryptedData, IV: *event.IV}
		plaintext, err := s.crypto.Decrypt(env)
		if err != nil {
			return err
		}
		if crypto.SHA256Hex([]byte(plaintext)) != *event.Checksum {
			return engerrors.New(engerrors.ChecksumMismatch, "secrets.apply_encrypted_sync_event")
		}
		p, err := unmarshalPayload(plaintext)
		if err != nil {
			return err
		}
		return s.upsertNoJournal(ctx, event.SecretID, p.Key, p.Value)

	default:
		return engerrors.New(engerrors.FormatError, "secrets.apply_encrypted_sync_event")
	}
}

func (s *Store) findKeyByBlindID(ctx context.Context, blindID string) (string, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT key_name FROM secrets`)
	if err != nil {
		return "", engerrors.Wrap(engerrors.StorageError, "secrets.find_key_by_blind_id", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return "", engerrors.Wrap(engerrors.StorageError, "secrets.find_key_by_blind_id", err)
		}
		candidate, err := crypto.BlindIndex(s.blindKey, key)
		if err != nil {
			return "", err
		}
		if candidate == blindID {
			return key, nil
		}
	}
	return "", rows.Err()
}

// deleteNoJournal removes a secret by key without appending a journal
// entry, used when applying a DELETE received from a peer.
func (s *Store) deleteNoJournal(ctx context.Context, key string) (bool, error) {
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
			return engerrors.Wrap(engerrors.StorageError, "secrets.delete_no_journal", err)
		}
		return nil
	})
	return err == nil, err
}

// upsertNoJournal writes a secret's ciphertext verbatim from a remote
// payload, without re-encrypting (the value already arrived decrypted
// under this device's own vault key) or appending a journal entry.
func (s *Store) upsertNoJournal(ctx context.Context, id, key, value string) error {
	env, err := s.crypto.Encrypt(value)
	if err != nil {
		return err
	}
	now := nowMillis()

	existing, err := s.getRow(ctx, key)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if existing == nil {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO secrets(id, key_name, encrypted_value, iv, description, created_at, updated_at)
				 VALUES (?,?,?,?,?,?,?)`,
				id, key, env.Ciphertext, env.IV, nil, now, now,
			)
			if err != nil {
				return engerrors.Wrap(engerrors.StorageError, "secrets.upsert_no_journal", err)
			}
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE secrets SET encrypted_value=?, iv=?, updated_at=? WHERE id=?`,
			env.Ciphertext, env.IV, now, existing.ID,
		)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "secrets.upsert_no_journal", err)
		}
		return nil
	})
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
