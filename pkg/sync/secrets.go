package sync

import (
	"context"

	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

const (
	secretsPushCursorKey = "secrets_push_cursor"
	secretsPullCursorKey = "secrets_pull_cursor"
)

// SecretsStore is the narrow surface of secrets.Store the Sync Engine
// needs to pull remote events into the local vault.
type SecretsStore interface {
	LatestSequenceNum(ctx context.Context) (int64, error)
	GetSyncEventsSince(ctx context.Context, seq int64, limit int) ([]types.SecretSyncEvent, error)
	ApplyEncryptedSecretSyncEvent(ctx context.Context, event types.SecretSyncEvent) error
}

type pushSecretEventRequest struct {
	SecretID      string `json:"secretId"`
	EventType     string `json:"eventType"`
	EncryptedData string `json:"encryptedData,omitempty"`
	IV            string `json:"iv,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
	BlindID       string `json:"blindId"`
}

// remotePulledSecretEvent mirrors one entry of pull_secrets' response.
type remotePulledSecretEvent struct {
	ID            string `json:"id"`
	SecretID      string `json:"secretId"`
	EventType     string `json:"eventType"`
	EncryptedData string `json:"encryptedData"`
	IV            string `json:"iv"`
	Checksum      string `json:"checksum"`
	BlindID       string `json:"blindId"`
	Timestamp     int64  `json:"timestamp"`
	SequenceNum   int64  `json:"sequenceNum"`
}

type pullSecretsResponse struct {
	Events  []remotePulledSecretEvent `json:"events"`
	Cursor  string                    `json:"cursor"`
	HasMore bool                      `json:"hasMore"`
}

// SecretsEngine pushes individual secret mutations as they happen (it
// implements secrets.Syncer) and pulls remote secret events on demand.
type SecretsEngine struct {
	conn      connection
	transport *httpTransport
	db        *storage.DB
	store     SecretsStore
	blindKey  []byte
}

// NewSecretsEngine constructs a SecretsEngine in the Disconnected state.
// blindKey must be the same key the Secrets Store was constructed with, so
// blind ids pushed and pulled agree across devices.
func NewSecretsEngine(baseURL, token string, db *storage.DB, store SecretsStore, blindKey []byte) *SecretsEngine {
	return &SecretsEngine{
		transport: newHTTPTransport(baseURL, token),
		db:        db,
		store:     store,
		blindKey:  blindKey,
	}
}

func (e *SecretsEngine) Connect()          { e.conn.connect() }
func (e *SecretsEngine) Disconnect()       { e.conn.disconnect() }
func (e *SecretsEngine) IsConnected() bool { return e.conn.isConnected() }

// PushSecret satisfies secrets.Syncer: it is called synchronously by
// secrets.Store.Set immediately after the local write commits. The encrypted
// payload and blind id are supplied by the caller's own journal append, so
// this pushes the latest local journal entry for secretID rather than
// re-encrypting value itself.
func (e *SecretsEngine) PushSecret(ctx context.Context, id, keyName, value string) error {
	if err := e.conn.requireConnected("sync.secrets.push"); err != nil {
		return err
	}

	cursor, err := getCursor(ctx, e.db, secretsPushCursorKey)
	if err != nil {
		return err
	}
	since := parseCursorSeq(cursor)

	events, err := e.store.GetSyncEventsSince(ctx, since, 1)
	if err != nil {
		return err
	}
	return e.pushEvents(ctx, events)
}

// DeleteSecret satisfies secrets.Syncer for DELETE mutations; it pushes any
// outstanding journal entries the same way PushSecret does.
func (e *SecretsEngine) DeleteSecret(ctx context.Context, id, keyName string) error {
	if err := e.conn.requireConnected("sync.secrets.delete"); err != nil {
		return err
	}

	cursor, err := getCursor(ctx, e.db, secretsPushCursorKey)
	if err != nil {
		return err
	}
	since := parseCursorSeq(cursor)

	events, err := e.store.GetSyncEventsSince(ctx, since, 1)
	if err != nil {
		return err
	}
	return e.pushEvents(ctx, events)
}

func (e *SecretsEngine) pushEvents(ctx context.Context, events []types.SecretSyncEvent) error {
	for _, ev := range events {
		req := pushSecretEventRequest{
			SecretID:  ev.SecretID,
			EventType: string(ev.Type),
			BlindID:   ev.BlindID,
		}
		if ev.EncryptedData != nil {
			req.EncryptedData = *ev.EncryptedData
		}
		if ev.IV != nil {
			req.IV = *ev.IV
		}
		if ev.Checksum != nil {
			req.Checksum = *ev.Checksum
		}

		if err := e.transport.do(ctx, "POST", "/api/secrets/sync/push", req, nil); err != nil {
			return err
		}
		if err := setCursor(ctx, e.db, secretsPushCursorKey, formatCursorSeq(ev.SequenceNum)); err != nil {
			return err
		}
	}
	return nil
}

// PullSecrets fetches one page of remote secret events and applies each to
// the local vault, decrypting and checksum-verifying as it goes.
func (e *SecretsEngine) PullSecrets(ctx context.Context) (applied int, hasMore bool, err error) {
	if err := e.conn.requireConnected("sync.secrets.pull"); err != nil {
		return 0, false, err
	}

	cursor, err := getCursor(ctx, e.db, secretsPullCursorKey)
	if err != nil {
		return 0, false, err
	}

	var resp pullSecretsResponse
	path := "/api/secrets/sync/pull"
	if cursor != "" {
		path += "?cursor=" + cursor
	}
	if err := e.transport.do(ctx, "GET", path, nil, &resp); err != nil {
		return 0, false, err
	}

	for _, remote := range resp.Events {
		event := types.SecretSyncEvent{
			ID:          remote.ID,
			Type:        types.SyncEventType(remote.EventType),
			SecretID:    remote.SecretID,
			BlindID:     remote.BlindID,
			Timestamp:   remote.Timestamp,
			SequenceNum: remote.SequenceNum,
		}
		if remote.EncryptedData != "" {
			event.EncryptedData = &remote.EncryptedData
		}
		if remote.IV != "" {
			event.IV = &remote.IV
		}
		if remote.Checksum != "" {
			event.Checksum = &remote.Checksum
		}

		if err := e.store.ApplyEncryptedSecretSyncEvent(ctx, event); err != nil {
			return applied, resp.HasMore, err
		}
		applied++
	}

	if resp.Cursor != "" {
		if err := setCursor(ctx, e.db, secretsPullCursorKey, resp.Cursor); err != nil {
			return applied, resp.HasMore, err
		}
	}
	return applied, resp.HasMore, nil
}

// PullAllSecrets loops PullSecrets until the remote reports no further pages.
func (e *SecretsEngine) PullAllSecrets(ctx context.Context) (int, error) {
	total := 0
	for {
		applied, hasMore, err := e.PullSecrets(ctx)
		total += applied
		if err != nil {
			return total, err
		}
		if !hasMore {
			return total, nil
		}
	}
}
