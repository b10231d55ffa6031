package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/engramhq/engram/pkg/engerrors"
)

// minBlindIndexKeyLen enforces the spec's "≥32B" requirement on the
// blind-index HMAC key.
const minBlindIndexKeyLen = 32

// BlindIndex computes a privacy-preserving lookup id for a secret or memory
// name: HMAC-SHA256(key, name), hex-encoded. Equal names under the same key
// always produce equal ids; the id does not expose the plaintext name.
func BlindIndex(key []byte, name string) (string, error) {
	if len(key) < minBlindIndexKeyLen {
		return "", engerrors.New(engerrors.ConfigError, "crypto.blind_index")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(name))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
