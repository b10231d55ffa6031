package sync

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
)

// parseCursorSeq interprets a push-cursor value as a sequence number,
// defaulting to 0 (meaning "push everything") when absent or malformed.
func parseCursorSeq(value string) int64 {
	seq, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func formatCursorSeq(seq int64) string {
	return strconv.FormatInt(seq, 10)
}

// getCursor reads the persisted pull cursor for key ("memory_cursor" or
// "secrets_cursor"), returning "" if none has been recorded yet.
func getCursor(ctx context.Context, db *storage.DB, key string) (string, error) {
	var value string
	err := db.Conn().QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", engerrors.Wrap(engerrors.StorageError, "sync.get_cursor", err)
	}
	return value, nil
}

// setCursor persists the pull cursor for key, overwriting any prior value.
func setCursor(ctx context.Context, db *storage.DB, key, value string) error {
	_, err := db.Conn().ExecContext(ctx,
		`INSERT INTO sync_state(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "sync.set_cursor", err)
	}
	return nil
}
