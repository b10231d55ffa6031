package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"github.com/engramhq/engram/pkg/engerrors"
)

// KeyVault is the opaque OS keychain collaborator: Engram consumes it only
// through this contract and never assumes a specific backend.
type KeyVault interface {
	GetMasterKey() ([]byte, error)
	SetMasterKey(key []byte) error
}

// Service holds an exclusive reference to the active master key for its
// lifetime. A second Service constructed over the vault key is a distinct
// instance; Service never shares mutable key state across instances.
type Service struct {
	masterKey []byte
}

// NewService binds a Service to a 32-byte master key.
func NewService(masterKey []byte) (*Service, error) {
	if len(masterKey) != 32 {
		return nil, engerrors.New(engerrors.ConfigError, "crypto.new_service")
	}
	return &Service{masterKey: masterKey}, nil
}

// Encrypt seals plaintext under this service's master key.
func (s *Service) Encrypt(plaintext string) (Envelope, error) {
	return Encrypt(s.masterKey, plaintext)
}

// Decrypt opens an envelope sealed under this service's master key.
func (s *Service) Decrypt(env Envelope) (string, error) {
	return Decrypt(s.masterKey, env)
}

// WrapVaultKeyForDevice encrypts the 32-byte vault key under a device's
// RSA-4096 public key (OAEP, SHA-256), for the device-authorization flow.
func WrapVaultKeyForDevice(vaultKey []byte, devicePublicKeyPEM string) ([]byte, error) {
	pub, err := parseRSAPublicKey(devicePublicKeyPEM)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.FormatError, "crypto.wrap_vault_key", err)
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, vaultKey, nil)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.AuthError, "crypto.wrap_vault_key", err)
	}
	return wrapped, nil
}

// UnwrapVaultKey decrypts a wrapped vault key with the device's RSA-4096
// private key.
func UnwrapVaultKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	vaultKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, engerrors.New(engerrors.AuthError, "crypto.unwrap_vault_key")
	}
	return vaultKey, nil
}

// GenerateDeviceKeyPair creates a new RSA-4096 key pair for a device.
func GenerateDeviceKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "crypto.generate_device_key_pair", err)
	}
	return priv, nil
}

// PublicKeyToPEM encodes an RSA public key as a PEM SPKI block.
func PublicKeyToPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", engerrors.Wrap(engerrors.FormatError, "crypto.public_key_to_pem", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

func parseRSAPublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, engerrors.New(engerrors.FormatError, "crypto.parse_rsa_public_key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, engerrors.New(engerrors.FormatError, "crypto.parse_rsa_public_key")
	}
	return rsaPub, nil
}
