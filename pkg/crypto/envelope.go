package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/engramhq/engram/pkg/engerrors"
)

// padBlockSize is the multiple of bytes every plaintext is padded to before
// encryption, so that short secrets do not leak their length through
// ciphertext size.
const padBlockSize = 4096

// tagSize is the GCM authentication tag length in bytes.
const tagSize = 16

// ivSize is the GCM nonce length in bytes.
const ivSize = 12

// Envelope is the wire shape of an encrypted value: base64(ciphertext) +
// "." + base64(tag), plus the IV transmitted alongside it.
type Envelope struct {
	Ciphertext string // base64(gcm_ciphertext) + "." + base64(gcm_tag)
	IV         string // base64, 12 bytes
}

// Encrypt pads plaintext to a multiple of padBlockSize, then seals it with
// AES-256-GCM under a fresh random IV. The padded plaintext is a 4-byte
// big-endian length header followed by the original bytes followed by
// random pad bytes.
func Encrypt(key []byte, plaintext string) (Envelope, error) {
	if len(key) != 32 {
		return Envelope{}, engerrors.New(engerrors.ConfigError, "crypto.encrypt")
	}

	padded, err := pad([]byte(plaintext))
	if err != nil {
		return Envelope{}, engerrors.Wrap(engerrors.StorageError, "crypto.encrypt", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, engerrors.Wrap(engerrors.StorageError, "crypto.encrypt", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Envelope{}, engerrors.Wrap(engerrors.StorageError, "crypto.encrypt", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, engerrors.Wrap(engerrors.StorageError, "crypto.encrypt", err)
	}

	sealed := gcm.Seal(nil, iv, padded, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext) + "." + base64.StdEncoding.EncodeToString(tag),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt reverses Encrypt. It fails with AuthError if the GCM tag does not
// verify, or FormatError if the envelope has no "."-delimited tag. All
// decrypt failures are fatal for that call: the caller must not fall back
// to an alternate key or a cached plaintext.
func Decrypt(key []byte, env Envelope) (string, error) {
	if len(key) != 32 {
		return "", engerrors.New(engerrors.ConfigError, "crypto.decrypt")
	}

	parts := strings.SplitN(env.Ciphertext, ".", 2)
	if len(parts) != 2 {
		return "", engerrors.New(engerrors.FormatError, "crypto.decrypt")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", engerrors.Wrap(engerrors.FormatError, "crypto.decrypt", err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", engerrors.Wrap(engerrors.FormatError, "crypto.decrypt", err)
	}
	if len(tag) != tagSize {
		return "", engerrors.New(engerrors.FormatError, "crypto.decrypt")
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != ivSize {
		return "", engerrors.New(engerrors.FormatError, "crypto.decrypt")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", engerrors.Wrap(engerrors.StorageError, "crypto.decrypt", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", engerrors.Wrap(engerrors.StorageError, "crypto.decrypt", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	padded, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", engerrors.New(engerrors.AuthError, "crypto.decrypt")
	}

	plaintext, err := unpad(padded)
	if err != nil {
		return "", engerrors.Wrap(engerrors.FormatError, "crypto.decrypt", err)
	}
	return string(plaintext), nil
}

func pad(plaintext []byte) ([]byte, error) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(plaintext)))

	body := append(header, plaintext...)
	padLen := (padBlockSize - len(body)%padBlockSize) % padBlockSize

	padding := make([]byte, padLen)
	if padLen > 0 {
		if _, err := rand.Read(padding); err != nil {
			return nil, err
		}
	}
	return append(body, padding...), nil
}

func unpad(padded []byte) ([]byte, error) {
	if len(padded) < 4 {
		return nil, engerrors.New(engerrors.FormatError, "crypto.unpad")
	}
	origLen := binary.BigEndian.Uint32(padded[:4])
	end := 4 + int(origLen)
	if end > len(padded) {
		return nil, engerrors.New(engerrors.FormatError, "crypto.unpad")
	}
	return padded[4:end], nil
}

// Marshal combines IV and ciphertext into one string, for callers such as
// the memory sync journal that have only a single text column to store an
// envelope in.
func (e Envelope) Marshal() string {
	return e.IV + ":" + e.Ciphertext
}

// UnmarshalEnvelope reverses Marshal.
func UnmarshalEnvelope(s string) (Envelope, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Envelope{}, engerrors.New(engerrors.FormatError, "crypto.unmarshal_envelope")
	}
	return Envelope{IV: parts[0], Ciphertext: parts[1]}, nil
}

// SHA256Hex returns the hex-encoded SHA-256 digest of data, used as the
// journal's content checksum.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns 32 cryptographically random bytes, suitable as a
// master key or vault key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "crypto.generate_key", err)
	}
	return key, nil
}
