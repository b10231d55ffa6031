package main

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/log"
	"github.com/engramhq/engram/pkg/storage"
)

// loadOrCreateMasterKey fetches the device's master key from vault, or
// generates and persists a fresh one on first run.
func loadOrCreateMasterKey(vault crypto.KeyVault) ([]byte, error) {
	key, err := vault.GetMasterKey()
	if err == nil {
		return key, nil
	}
	if kind, ok := engerrors.KindOf(err); !ok || kind != engerrors.NotInitialized {
		return nil, err
	}

	log.WithComponent("vault").Info().Msg("no master key found, generating one")
	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := vault.SetMasterKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// loadOrCreateVaultKey fetches this device's cached vault key from the
// database, or generates a fresh one when this is the first device (no
// row yet and no other authorized device to authorize against).
func loadOrCreateVaultKey(ctx context.Context, db *storage.DB) ([]byte, error) {
	key, err := db.LoadVaultKey(ctx)
	if err != nil {
		return nil, err
	}
	if key != nil {
		return key, nil
	}

	log.WithComponent("vault").Info().Msg("no vault key found, generating one for a new vault")
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "vault.generate_key", err)
	}
	if err := db.SaveVaultKey(ctx, key, time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	return key, nil
}
