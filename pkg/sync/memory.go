package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

const (
	memoryPushCursorKey = "memory_push_cursor"
	memoryPullCursorKey = "memory_pull_cursor"
	pullPageSize        = 100

	defaultInlineBlobMaxBytes = 256 * 1024
	defaultBlobURLTTL         = 5 * time.Minute
)

// MemoryStore is the narrow surface of memory.Store the Sync Engine needs.
type MemoryStore interface {
	LatestSequenceNum(ctx context.Context) (int64, error)
	GetSyncEventsSince(ctx context.Context, seq int64, limit int) ([]types.SyncEvent, error)
	ApplyEncryptedSyncEvent(ctx context.Context, event types.SyncEvent, vector []float32) error
	DecryptSyncEventContent(event types.SyncEvent) (string, error)
}

// Embedder produces an embedding vector for a piece of plaintext. It is
// used to re-embed content pulled from a remote peer, whose sync payload
// never carries a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// pushMemoryEventRequest is the wire shape of one POST to /api/sync/push.
type pushMemoryEventRequest struct {
	EventType     string `json:"eventType"`
	MemoryID      string `json:"memoryId"`
	EncryptedData string `json:"encryptedData,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
}

type pushMemoryEventResponse struct {
	BlobID string `json:"blobId"`
}

// remotePulledEvent mirrors one entry of the pull response's events array.
// Payloads at or under the server's inline threshold arrive directly in
// EncryptedData; larger ones arrive as a BlobID referencing an entry in the
// response's Blobs array instead.
type remotePulledEvent struct {
	ID            string `json:"id"`
	EventType     string `json:"eventType"`
	MemoryID      string `json:"memoryId"`
	EncryptedData string `json:"encryptedData"`
	BlobID        string `json:"blobId,omitempty"`
	Checksum      string `json:"checksum"`
	Timestamp     int64  `json:"timestamp"`
	SequenceNum   int64  `json:"sequenceNum"`
}

// remoteBlobRef is one entry of a pull response's blobs array: either the
// blob data inline (small payloads) or a signed URL to fetch it from
// (payloads over the requested inline threshold).
type remoteBlobRef struct {
	ID   string `json:"id"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

type pullMemoryResponse struct {
	Events  []remotePulledEvent `json:"events"`
	Blobs   []remoteBlobRef     `json:"blobs"`
	Cursor  string              `json:"cursor"`
	HasMore bool                `json:"hasMore"`
}

// MemoryEngine pushes locally originated memory sync events to the remote
// server and pulls remote events into the local store.
type MemoryEngine struct {
	conn      connection
	transport *httpTransport
	db        *storage.DB
	store     MemoryStore
	embedder  Embedder // optional; nil disables vector re-embedding on pull

	inlineBlobMaxBytes int64
	blobURLTTL         time.Duration
}

// NewMemoryEngine constructs a MemoryEngine in the Disconnected state.
func NewMemoryEngine(baseURL, token string, db *storage.DB, store MemoryStore, embedder Embedder) *MemoryEngine {
	return &MemoryEngine{
		transport:          newHTTPTransport(baseURL, token),
		db:                 db,
		store:              store,
		embedder:           embedder,
		inlineBlobMaxBytes: defaultInlineBlobMaxBytes,
		blobURLTTL:         defaultBlobURLTTL,
	}
}

// SetBlobLimits configures the inline-blob threshold hint sent with pull
// requests and the timeout given to fetching a signed blob URL. Both have
// workable defaults; callers wire configured values in after construction
// so NewMemoryEngine's signature stays stable for existing callers.
func (e *MemoryEngine) SetBlobLimits(inlineMaxBytes int64, ttl time.Duration) {
	if inlineMaxBytes > 0 {
		e.inlineBlobMaxBytes = inlineMaxBytes
	}
	if ttl > 0 {
		e.blobURLTTL = ttl
	}
}

// Connect transitions the engine to Connected, permitting push/pull calls.
func (e *MemoryEngine) Connect() { e.conn.connect() }

// Disconnect transitions the engine back to Disconnected.
func (e *MemoryEngine) Disconnect() { e.conn.disconnect() }

// IsConnected reports the current connection state.
func (e *MemoryEngine) IsConnected() bool { return e.conn.isConnected() }

// Push sends every local memory journal entry newer than the last pushed
// cursor to the remote server, advancing the cursor on success.
func (e *MemoryEngine) Push(ctx context.Context) (int, error) {
	if err := e.conn.requireConnected("sync.memory.push"); err != nil {
		return 0, err
	}

	cursor, err := getCursor(ctx, e.db, memoryPushCursorKey)
	if err != nil {
		return 0, err
	}
	since := parseCursorSeq(cursor)

	pushed := 0
	for {
		events, err := e.store.GetSyncEventsSince(ctx, since, pullPageSize)
		if err != nil {
			return pushed, err
		}
		if len(events) == 0 {
			break
		}

		for _, ev := range events {
			req := pushMemoryEventRequest{EventType: string(ev.Type), MemoryID: ev.MemoryID}
			if ev.EncryptedData != nil {
				req.EncryptedData = *ev.EncryptedData
			}
			if ev.Checksum != nil {
				req.Checksum = *ev.Checksum
			}

			var resp pushMemoryEventResponse
			if err := e.transport.do(ctx, "POST", "/api/sync/push", req, &resp); err != nil {
				return pushed, err
			}

			since = ev.SequenceNum
			pushed++
		}

		if err := setCursor(ctx, e.db, memoryPushCursorKey, formatCursorSeq(since)); err != nil {
			return pushed, err
		}
	}
	return pushed, nil
}

// Pull fetches one page of remote events since the last pull cursor,
// applies each to the local store, and advances the cursor.
func (e *MemoryEngine) Pull(ctx context.Context) (applied int, hasMore bool, err error) {
	if err := e.conn.requireConnected("sync.memory.pull"); err != nil {
		return 0, false, err
	}

	cursor, err := getCursor(ctx, e.db, memoryPullCursorKey)
	if err != nil {
		return 0, false, err
	}

	var resp pullMemoryResponse
	path := fmt.Sprintf("/api/sync/pull?inlineMaxBytes=%d", e.inlineBlobMaxBytes)
	if cursor != "" {
		path += "&cursor=" + cursor
	}
	if err := e.transport.do(ctx, "GET", path, nil, &resp); err != nil {
		return 0, false, err
	}

	blobData, err := e.resolveBlobs(ctx, resp.Blobs)
	if err != nil {
		return 0, false, err
	}

	for _, remote := range resp.Events {
		event := types.SyncEvent{
			ID:          remote.ID,
			Type:        types.SyncEventType(remote.EventType),
			MemoryID:    remote.MemoryID,
			Timestamp:   remote.Timestamp,
			SequenceNum: remote.SequenceNum,
		}
		data := remote.EncryptedData
		if data == "" && remote.BlobID != "" {
			resolved, ok := blobData[remote.BlobID]
			if !ok {
				return applied, resp.HasMore, engerrors.New(engerrors.NetworkError, "sync.memory.pull.missing_blob")
			}
			data = resolved
		}
		if data != "" {
			event.EncryptedData = &data
		}
		if remote.Checksum != "" {
			event.Checksum = &remote.Checksum
		}

		var vector []float32
		if e.embedder != nil && event.Type != types.SyncEventDelete {
			plaintext, err := e.store.DecryptSyncEventContent(event)
			if err != nil {
				return applied, resp.HasMore, err
			}
			vector, err = e.embedder.Embed(ctx, plaintext)
			if err != nil {
				return applied, resp.HasMore, engerrors.Wrap(engerrors.NetworkError, "sync.memory.pull", err)
			}
		}

		if err := e.store.ApplyEncryptedSyncEvent(ctx, event, vector); err != nil {
			return applied, resp.HasMore, err
		}
		applied++
	}

	if resp.Cursor != "" {
		if err := setCursor(ctx, e.db, memoryPullCursorKey, resp.Cursor); err != nil {
			return applied, resp.HasMore, err
		}
	}
	return applied, resp.HasMore, nil
}

// resolveBlobs fetches the data for every blob reference in a pull
// response: inline data is used as-is, and a reference carrying only a
// signed URL is fetched over HTTP, bounded by the configured blob TTL.
func (e *MemoryEngine) resolveBlobs(ctx context.Context, refs []remoteBlobRef) (map[string]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	data := make(map[string]string, len(refs))
	for _, ref := range refs {
		if ref.Data != "" {
			data[ref.ID] = ref.Data
			continue
		}
		if ref.URL == "" {
			continue
		}
		fetched, err := e.transport.fetchBlob(ctx, ref.URL, e.blobURLTTL)
		if err != nil {
			return nil, err
		}
		data[ref.ID] = fetched
	}
	return data, nil
}

// PullAll loops Pull until the remote reports no further pages.
func (e *MemoryEngine) PullAll(ctx context.Context) (int, error) {
	total := 0
	for {
		applied, hasMore, err := e.Pull(ctx)
		total += applied
		if err != nil {
			return total, err
		}
		if !hasMore {
			return total, nil
		}
	}
}
