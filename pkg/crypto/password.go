package crypto

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/engramhq/engram/pkg/engerrors"
	"golang.org/x/crypto/pbkdf2"
)

// saltSize is the length of a freshly generated KDF salt.
const saltSize = 16

// DeriveKeyFromPassword derives a 32-byte key from a user password and salt
// using PBKDF2-HMAC-SHA256 with the given iteration count. Used as a
// fallback unlock path when a KeyVault-backed master key is unavailable.
func DeriveKeyFromPassword(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New)
}

// GenerateSalt returns a fresh random salt for DeriveKeyFromPassword.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "crypto.generate_salt", err)
	}
	return salt, nil
}
