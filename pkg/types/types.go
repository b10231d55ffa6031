package types

import "time"

// Memory is a single stored recollection: sanitized content plus its
// embedding vector and bookkeeping fields.
type Memory struct {
	ID         string    // time-sortable UUID v7
	Content    string    // UTF-8, always passed through the DLP sanitizer before storage
	Vector     []float32 // fixed-dim, L2-normalized
	Tags       []string  // ordered, no duplicates; "dlp-redacted" auto-added when the sanitizer fires
	Source     string    // optional origin path, or "sync"; empty means locally authored
	Confidence float64   // [0,1]
	IsVerified bool
	CreatedAt  int64 // ms epoch
	UpdatedAt  int64 // ms epoch
}

// SyncEventType enumerates the mutation kinds carried by a journal entry.
type SyncEventType string

const (
	SyncEventAdd    SyncEventType = "ADD"
	SyncEventUpdate SyncEventType = "UPDATE"
	SyncEventDelete SyncEventType = "DELETE"
)

// SyncEvent is one entry in the memory journal. EncryptedData and Checksum
// are nil for DELETE events.
type SyncEvent struct {
	ID            string // UUID v7
	Type          SyncEventType
	MemoryID      string
	EncryptedData *string // envelope of sanitized content, base64 ciphertext + "." + base64 tag
	Checksum      *string // SHA-256 hex of plaintext sanitized content
	Timestamp     int64
	SequenceNum   int64 // monotonic per store, starts at 1
}

// Secret is an encrypted key/value pair identified by a unique, case-sensitive
// key name.
type Secret struct {
	ID          string
	KeyName     string
	Ciphertext  string
	IV          string
	Description *string
	CreatedAt   int64
	UpdatedAt   int64
}

// SecretSyncEvent is the journal entry shape for the secrets stream. It
// carries its own IV and a blind index of the key name in addition to the
// fields shared with SyncEvent.
type SecretSyncEvent struct {
	ID            string
	Type          SyncEventType
	SecretID      string
	EncryptedData *string
	IV            *string
	Checksum      *string
	BlindID       string // hex HMAC-SHA256(blind-index key, key_name)
	Timestamp     int64
	SequenceNum   int64
}

// LocalVaultKey is the single-row table holding the vault key decrypted by
// the active device.
type LocalVaultKey struct {
	ID        string // always "default"
	VaultKey  []byte // 32 bytes, held only in memory once loaded
	CreatedAt int64
	UpdatedAt int64
}

// SyncState holds the per-stream pull cursor.
type SyncState struct {
	Key   string // e.g. "memory_cursor", "secrets_cursor"
	Value string
}

// Device is a remote entity authorized to receive the wrapped vault key.
type Device struct {
	ID         string
	Name       *string
	PublicKey  string // RSA SPKI PEM
	CreatedAt  int64
	LastSyncAt *int64
}

// RecoveryShare is one Shamir share of a recovery kit.
type RecoveryShare struct {
	Index int
	Data  string // base64
}

// RecoveryKit is never persisted: generated on demand, shown to the user,
// then discarded.
type RecoveryKit struct {
	UserID    string
	Total     int
	Threshold int
	Shares    []RecoveryShare
}

// SearchHit pairs a memory with its distance from the query vector.
type SearchHit struct {
	Memory   Memory
	Distance float32
}

// SecretListItem is the projection returned by the secrets store's list
// operation (no ciphertext, no IV).
type SecretListItem struct {
	ID          string
	KeyName     string
	Description *string
	CreatedAt   int64
	UpdatedAt   int64
}

// IndexingEventType enumerates the states a single file's ingest passes
// through.
type IndexingEventType string

const (
	IndexingEventStart    IndexingEventType = "start"
	IndexingEventParsed   IndexingEventType = "parsed"
	IndexingEventEmbedded IndexingEventType = "embedded"
	IndexingEventStored   IndexingEventType = "stored"
	IndexingEventSkipped  IndexingEventType = "skipped"
	IndexingEventError    IndexingEventType = "error"
)

// IndexingEvent reports ingest progress for one file; Detail carries
// parser-type, memory-id, or error-message payloads depending on Type.
type IndexingEvent struct {
	Type      IndexingEventType
	Path      string
	Detail    string
	Timestamp time.Time
}

// WatchEventType distinguishes a newly discovered file from a modified one.
type WatchEventType string

const (
	WatchEventAdd    WatchEventType = "add"
	WatchEventChange WatchEventType = "change"
)

// WatchEvent is delivered by the Session Watcher to the Indexing Service.
type WatchEvent struct {
	Path string
	Type WatchEventType
}
