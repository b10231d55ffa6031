package memory

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

// appendSyncEvent seals content (when non-nil) under the store's vault-key
// service and appends one journal row at the next sequence number, within
// the caller's transaction. content is nil for DELETE events.
func (s *Store) appendSyncEvent(ctx context.Context, tx *sql.Tx, typ types.SyncEventType, memoryID string, content *string) error {
	var encryptedData, checksum *string

	if content != nil {
		if s.crypto == nil {
			return engerrors.New(engerrors.ConfigError, "memory.append_sync_event")
		}
		env, err := s.crypto.Encrypt(*content)
		if err != nil {
			return err
		}
		marshaled := env.Marshal()
		encryptedData = &marshaled

		sum := crypto.SHA256Hex([]byte(*content))
		checksum = &sum
	}

	seq, err := nextSequenceNum(ctx, tx)
	if err != nil {
		return err
	}

	id := uuid.Must(uuid.NewV7()).String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_events(id, event_type, memory_id, encrypted_data, checksum, timestamp, sequence_num)
		 VALUES (?,?,?,?,?,?,?)`,
		id, string(typ), memoryID, encryptedData, checksum, nowMillis(), seq,
	)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "memory.append_sync_event", err)
	}
	return nil
}

func nextSequenceNum(ctx context.Context, tx *sql.Tx) (int64, error) {
	var max sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(sequence_num) FROM sync_events`).Scan(&max); err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "memory.next_sequence_num", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

// LatestSequenceNum returns the highest sequence_num written so far, or 0 if
// the journal is empty.
func (s *Store) LatestSequenceNum(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT MAX(sequence_num) FROM sync_events`).Scan(&max)
	if err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "memory.latest_sequence_num", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// GetSyncEventsSince returns up to limit journal entries with sequence_num
// strictly greater than seq, in ascending order.
func (s *Store) GetSyncEventsSince(ctx context.Context, seq int64, limit int) ([]types.SyncEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, event_type, memory_id, encrypted_data, checksum, timestamp, sequence_num
		 FROM sync_events WHERE sequence_num > ? ORDER BY sequence_num ASC LIMIT ?`,
		seq, limit,
	)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.get_sync_events_since", err)
	}
	defer rows.Close()

	var out []types.SyncEvent
	for rows.Next() {
		var (
			ev            types.SyncEvent
			typ           string
			encryptedData sql.NullString
			checksum      sql.NullString
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.MemoryID, &encryptedData, &checksum, &ev.Timestamp, &ev.SequenceNum); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "memory.get_sync_events_since", err)
		}
		ev.Type = types.SyncEventType(typ)
		if encryptedData.Valid {
			ev.EncryptedData = &encryptedData.String
		}
		if checksum.Valid {
			ev.Checksum = &checksum.String
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DecryptSyncEventContent opens and checksum-verifies an ADD/UPDATE sync
// event's payload without applying it, so a caller (the Sync Engine) can
// re-embed the plaintext before calling ApplyEncryptedSyncEvent with the
// resulting vector.
func (s *Store) DecryptSyncEventContent(event types.SyncEvent) (string, error) {
	if s.crypto == nil {
		return "", engerrors.New(engerrors.ConfigError, "memory.decrypt_sync_event_content")
	}
	if event.EncryptedData == nil || event.Checksum == nil {
		return "", engerrors.New(engerrors.FormatError, "memory.decrypt_sync_event_content")
	}
	env, err := crypto.UnmarshalEnvelope(*event.EncryptedData)
	if err != nil {
		return "", err
	}
	plaintext, err := s.crypto.Decrypt(env)
	if err != nil {
		return "", err
	}
	if crypto.SHA256Hex([]byte(plaintext)) != *event.Checksum {
		return "", engerrors.New(engerrors.ChecksumMismatch, "memory.decrypt_sync_event_content")
	}
	return plaintext, nil
}

// ApplyEncryptedSyncEvent applies a remote journal entry received from the
// sync engine. It decrypts and verifies the checksum before writing, and
// never appends a new local sync event: the journal only records locally
// originated mutations.
func (s *Store) ApplyEncryptedSyncEvent(ctx context.Context, event types.SyncEvent, vector []float32) error {
	if s.crypto == nil {
		return engerrors.New(engerrors.ConfigError, "memory.apply_encrypted_sync_event")
	}

	switch event.Type {
	case types.SyncEventDelete:
		_, err := s.deleteNoJournal(ctx, event.MemoryID)
		return err

	case types.SyncEventAdd, types.SyncEventUpdate:
		if event.EncryptedData == nil || event.Checksum == nil {
			return engerrors.New(engerrors.FormatError, "memory.apply_encrypted_sync_event")
		}
		env, err := crypto.UnmarshalEnvelope(*event.EncryptedData)
		if err != nil {
			return err
		}
		plaintext, err := s.crypto.Decrypt(env)
		if err != nil {
			return err
		}
		if crypto.SHA256Hex([]byte(plaintext)) != *event.Checksum {
			return engerrors.New(engerrors.ChecksumMismatch, "memory.apply_encrypted_sync_event")
		}
		allowInsert := event.Type == types.SyncEventAdd
		return s.upsertNoJournal(ctx, event.MemoryID, plaintext, vector, event.Timestamp, allowInsert)

	default:
		return engerrors.New(engerrors.FormatError, "memory.apply_encrypted_sync_event")
	}
}

// deleteNoJournal removes a memory without appending a sync event, used
// when applying a DELETE received from a peer.
func (s *Store) deleteNoJournal(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete_no_journal", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete_no_journal", err)
		}
		if n == 0 {
			return nil
		}
		removed = true
		_, err = tx.ExecContext(ctx, `DELETE FROM memories_vec WHERE memory_id = ?`, id)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete_no_journal", err)
		}
		return nil
	})
	return removed, err
}

// upsertNoJournal inserts or replaces a memory row (and its vector) with
// content and timestamp taken verbatim from a remote journal entry. Remote
// content is never re-sanitized: it was already sanitized by the device
// that authored it. An ADD with no existing row inserts; an UPDATE with no
// existing row is a no-op — it must not resurrect a memory tombstoned by a
// DELETE applied earlier from another peer, per allowInsert.
func (s *Store) upsertNoJournal(ctx context.Context, id, content string, vector []float32, ts int64, allowInsert bool) error {
	var blob []byte
	var err error
	if vector != nil {
		blob, err = storage.SerializeVector(vector, s.db.VectorDim)
		if err != nil {
			return err
		}
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		if existing == nil {
			if !allowInsert {
				return nil
			}
			mem := types.Memory{
				ID:        id,
				Content:   content,
				Tags:      []string{},
				Source:    "sync",
				CreatedAt: ts,
				UpdatedAt: ts,
			}
			if err := insertMemoryRow(ctx, tx, mem); err != nil {
				return err
			}
			if blob != nil {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO memories_vec(memory_id, embedding) VALUES (?, ?)`, id, blob,
				); err != nil {
					return engerrors.Wrap(engerrors.StorageError, "memory.upsert_no_journal", err)
				}
			}
			return nil
		}

		existing.Content = content
		existing.UpdatedAt = ts
		if err := updateMemoryRow(ctx, tx, *existing); err != nil {
			return err
		}
		if blob != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE memories_vec SET embedding = ? WHERE memory_id = ?`, blob, id,
			); err != nil {
				return engerrors.Wrap(engerrors.StorageError, "memory.upsert_no_journal", err)
			}
		}
		return nil
	})
}
