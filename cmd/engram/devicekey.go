package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
)

// deviceKeyEnvelope is the on-disk shape of the device's RSA private key,
// sealed under the master key: spec.md assigns MK to exactly this artifact
// ("device private key envelope").
type deviceKeyEnvelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
}

// loadOrCreateDeviceKeyPair loads this device's RSA-4096 authorization
// keypair from disk, decrypting its envelope under masterSvc, or generates
// and persists a fresh one on first run. The returned PEM is this device's
// public key, the one presented to AuthorizeDevice by another device.
func loadOrCreateDeviceKeyPair(masterSvc *crypto.Service, path string) (*rsa.PrivateKey, string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var env deviceKeyEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
			return nil, "", engerrors.Wrap(engerrors.FormatError, "devicekey.load", jsonErr)
		}
		pemText, decErr := masterSvc.Decrypt(crypto.Envelope{Ciphertext: env.Ciphertext, IV: env.IV})
		if decErr != nil {
			return nil, "", decErr
		}
		priv, pubPEM, parseErr := decodeDeviceKeyPair(pemText)
		if parseErr != nil {
			return nil, "", parseErr
		}
		return priv, pubPEM, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", engerrors.Wrap(engerrors.StorageError, "devicekey.load", err)
	}

	priv, err := crypto.GenerateDeviceKeyPair()
	if err != nil {
		return nil, "", err
	}
	pemText, pubPEM, err := encodeDeviceKeyPair(priv)
	if err != nil {
		return nil, "", err
	}

	sealed, err := masterSvc.Encrypt(pemText)
	if err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(deviceKeyEnvelope{Ciphertext: sealed.Ciphertext, IV: sealed.IV})
	if err != nil {
		return nil, "", engerrors.Wrap(engerrors.FormatError, "devicekey.save", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, "", engerrors.Wrap(engerrors.StorageError, "devicekey.save", err)
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return nil, "", engerrors.Wrap(engerrors.StorageError, "devicekey.save", err)
	}
	return priv, pubPEM, nil
}

func encodeDeviceKeyPair(priv *rsa.PrivateKey) (privPEM string, pubPEM string, err error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", engerrors.Wrap(engerrors.FormatError, "devicekey.encode", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	pubPEM, err = crypto.PublicKeyToPEM(&priv.PublicKey)
	if err != nil {
		return "", "", err
	}
	return string(pem.EncodeToMemory(block)), pubPEM, nil
}

func decodeDeviceKeyPair(privPEM string) (*rsa.PrivateKey, string, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return nil, "", engerrors.New(engerrors.FormatError, "devicekey.decode")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, "", engerrors.Wrap(engerrors.FormatError, "devicekey.decode", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, "", engerrors.New(engerrors.FormatError, "devicekey.decode")
	}
	pubPEM, err := crypto.PublicKeyToPEM(&priv.PublicKey)
	if err != nil {
		return nil, "", err
	}
	return priv, pubPEM, nil
}
