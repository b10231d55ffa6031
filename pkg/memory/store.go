// Package memory implements the Memory Store: CRUD, vector and hybrid
// search, and the sync-event journal, with DLP sanitization and envelope
// encryption wired in on every mutation.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/dlp"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

const redactedTag = "dlp-redacted"

// Store is the Memory Store: it owns the memories table, the vector index,
// and the sync-event journal within one SQLite database.
type Store struct {
	db        *storage.DB
	sanitizer *dlp.Sanitizer
	crypto    *crypto.Service // binds the vault key; seals sync-event payloads
}

// New constructs a Store over an already-open database.
func New(db *storage.DB, sanitizer *dlp.Sanitizer, cryptoSvc *crypto.Service) *Store {
	return &Store{db: db, sanitizer: sanitizer, crypto: cryptoSvc}
}

// Create sanitizes content, embeds it under the given vector, and inserts
// the main row and vector row in one transaction, then appends an ADD sync
// event carrying an envelope of the sanitized content.
func (s *Store) Create(ctx context.Context, in CreateInput, vector []float32) (types.Memory, error) {
	if in.Content == "" {
		return types.Memory{}, engerrors.New(engerrors.FormatError, "memory.create")
	}

	blob, err := storage.SerializeVector(vector, s.db.VectorDim)
	if err != nil {
		return types.Memory{}, err
	}

	result := s.sanitizer.Sanitize(in.Content)
	tags := dedupeTags(in.Tags)
	if len(result.Detected) > 0 {
		tags = addTagOnce(tags, redactedTag)
	}

	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UnixMilli()

	mem := types.Memory{
		ID:         id,
		Content:    result.Sanitized,
		Vector:     vector,
		Tags:       tags,
		Source:     in.Source,
		Confidence: in.Confidence,
		IsVerified: false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertMemoryRow(ctx, tx, mem); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memories_vec(memory_id, embedding) VALUES (?, ?)`, id, blob,
		); err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.create", err)
		}
		return s.appendSyncEvent(ctx, tx, types.SyncEventAdd, id, &mem.Content)
	})
	if err != nil {
		return types.Memory{}, err
	}
	return mem, nil
}

// Get reads a memory by id. It returns (nil, nil) when no row matches.
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, content, tags, source, confidence, is_verified, created_at, updated_at
		 FROM memories WHERE id = ?`, id)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.get", err)
	}
	return mem, nil
}

// GetByID is an alias of Get.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Memory, error) {
	return s.Get(ctx, id)
}

// GetBySource returns the most recently updated memory whose source field
// exactly matches, or (nil, nil) if none does. The Indexing Service uses
// this to detect whether a file has already been ingested.
func (s *Store) GetBySource(ctx context.Context, source string) (*types.Memory, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, content, tags, source, confidence, is_verified, created_at, updated_at
		 FROM memories WHERE source = ? ORDER BY updated_at DESC LIMIT 1`, source)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.get_by_source", err)
	}
	return mem, nil
}

// Update re-sanitizes any new content, preserves the dlp-redacted tag if the
// record already carried it and the (possibly new) content still triggers
// DLP, and writes the main row and vector row (if a new vector is given) in
// one transaction, appending one UPDATE sync event.
func (s *Store) Update(ctx context.Context, id string, patch UpdatePatch, newVector []float32) (*types.Memory, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	updated := *existing
	hadRedactedTag := containsTag(existing.Tags, redactedTag)

	if patch.Content != nil {
		result := s.sanitizer.Sanitize(*patch.Content)
		updated.Content = result.Sanitized

		if patch.Tags != nil {
			updated.Tags = dedupeTags(patch.Tags)
		}
		if len(result.Detected) > 0 || (hadRedactedTag && containsTag(updated.Tags, redactedTag)) {
			updated.Tags = addTagOnce(updated.Tags, redactedTag)
		} else if hadRedactedTag && patch.Tags == nil {
			updated.Tags = addTagOnce(updated.Tags, redactedTag)
		}
	} else if patch.Tags != nil {
		updated.Tags = dedupeTags(patch.Tags)
		if hadRedactedTag {
			updated.Tags = addTagOnce(updated.Tags, redactedTag)
		}
	}

	if patch.Source != nil {
		updated.Source = *patch.Source
	}
	if patch.Confidence != nil {
		updated.Confidence = *patch.Confidence
	}
	if patch.IsVerified != nil {
		updated.IsVerified = *patch.IsVerified
	}
	updated.UpdatedAt = time.Now().UnixMilli()

	var blob []byte
	if newVector != nil {
		blob, err = storage.SerializeVector(newVector, s.db.VectorDim)
		if err != nil {
			return nil, err
		}
		updated.Vector = newVector
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := updateMemoryRow(ctx, tx, updated); err != nil {
			return err
		}
		if blob != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE memories_vec SET embedding = ? WHERE memory_id = ?`, blob, id,
			); err != nil {
				return engerrors.Wrap(engerrors.StorageError, "memory.update", err)
			}
		}
		return s.appendSyncEvent(ctx, tx, types.SyncEventUpdate, id, &updated.Content)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the main row and vector row inside one transaction. A
// DELETE sync event is appended only when a row was actually removed;
// re-deleting an absent id returns false with no event.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete", err)
		}
		if n == 0 {
			return nil
		}
		removed = true

		if _, err := tx.ExecContext(ctx, `DELETE FROM memories_vec WHERE memory_id = ?`, id); err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete", err)
		}
		return s.appendSyncEvent(ctx, tx, types.SyncEventDelete, id, nil)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// List returns a reverse-chronological page of memories, optionally
// filtered to an exact source.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, content, tags, source, confidence, is_verified, created_at, updated_at
			  FROM memories`
	args := []any{}
	if opts.Source != "" {
		query += ` WHERE source = ?`
		args = append(args, opts.Source)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.list", err)
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "memory.list", err)
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}

// Count returns the total number of memories in the store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	if err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "memory.count", err)
	}
	return n, nil
}

// DeleteOlderThan removes every memory whose created_at is before ts and
// returns the number removed. It does not append sync events: bulk
// expiry is a local housekeeping operation, not a user mutation.
func (s *Store) DeleteOlderThan(ctx context.Context, ts int64) (int64, error) {
	var n int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ids, err := queryIDsOlderThan(ctx, tx, ts)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM memories_vec WHERE memory_id = ?`, id); err != nil {
				return engerrors.Wrap(engerrors.StorageError, "memory.delete_older_than", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE created_at < ?`, ts)
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete_older_than", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return engerrors.Wrap(engerrors.StorageError, "memory.delete_older_than", err)
		}
		return nil
	})
	return n, err
}

func queryIDsOlderThan(ctx context.Context, tx *sql.Tx, ts int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM memories WHERE created_at < ?`, ts)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.delete_older_than", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "memory.delete_older_than", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertMemoryRow(ctx context.Context, tx *sql.Tx, mem types.Memory) error {
	tagsJSON, err := json.Marshal(mem.Tags)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "memory.insert", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories(id, content, tags, source, confidence, is_verified, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		mem.ID, mem.Content, string(tagsJSON), nullable(mem.Source), mem.Confidence,
		boolToInt(mem.IsVerified), mem.CreatedAt, mem.UpdatedAt,
	)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "memory.insert", err)
	}
	return nil
}

func updateMemoryRow(ctx context.Context, tx *sql.Tx, mem types.Memory) error {
	tagsJSON, err := json.Marshal(mem.Tags)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "memory.update", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET content=?, tags=?, source=?, confidence=?, is_verified=?, updated_at=?
		 WHERE id=?`,
		mem.Content, string(tagsJSON), nullable(mem.Source), mem.Confidence,
		boolToInt(mem.IsVerified), mem.UpdatedAt, mem.ID,
	)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "memory.update", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var (
		mem        types.Memory
		tagsJSON   string
		source     sql.NullString
		isVerified int
	)
	if err := row.Scan(&mem.ID, &mem.Content, &tagsJSON, &source, &mem.Confidence,
		&isVerified, &mem.CreatedAt, &mem.UpdatedAt); err != nil {
		return nil, err
	}
	mem.Source = source.String
	mem.IsVerified = isVerified != 0
	if err := json.Unmarshal([]byte(tagsJSON), &mem.Tags); err != nil {
		return nil, err
	}
	return &mem, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func addTagOnce(tags []string, tag string) []string {
	if containsTag(tags, tag) {
		return tags
	}
	return append(tags, tag)
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
