package secrets

import "context"

// Syncer is the narrow contract the Secrets Sync Engine satisfies. It is
// injected optionally: a Store with a nil Syncer behaves identically except
// that mutations are never mirrored remotely. Breaking the direct
// dependency this way avoids a secrets↔sync import cycle, since the sync
// engine itself depends on the secrets store to read back plaintext values.
type Syncer interface {
	PushSecret(ctx context.Context, id, keyName, value string) error
	DeleteSecret(ctx context.Context, id, keyName string) error
}

// payload is the plaintext sealed inside a secret's sync-event envelope. It
// carries the key name alongside the value because the blind index is a
// one-way HMAC: a receiving device cannot recover key_name from blind_id
// alone, so the event payload must be self-describing.
type payload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
