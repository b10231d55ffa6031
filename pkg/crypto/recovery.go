package crypto

import (
	"encoding/base64"

	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/types"
	"github.com/hashicorp/vault/shamir"
	"github.com/tyler-smith/go-bip39"
)

// recoveryPhraseEntropyBits yields a 24-word BIP39 mnemonic (256 bits of
// entropy encodes to exactly a 32-byte key, matching the vault key size).
const recoveryPhraseEntropyBits = 256

// GenerateRecoveryPhrase returns a fresh 24-word BIP39 mnemonic together
// with the 32-byte key it encodes.
func GenerateRecoveryPhrase() (phrase string, key []byte, err error) {
	entropy, err := bip39.NewEntropy(recoveryPhraseEntropyBits)
	if err != nil {
		return "", nil, engerrors.Wrap(engerrors.StorageError, "crypto.generate_recovery_phrase", err)
	}
	phrase, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, engerrors.Wrap(engerrors.StorageError, "crypto.generate_recovery_phrase", err)
	}
	return phrase, entropy, nil
}

// PhraseToKey deterministically recovers the 32-byte key encoded by a
// 24-word BIP39 mnemonic. It rejects invalid mnemonics.
func PhraseToKey(phrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return nil, engerrors.New(engerrors.RecoveryError, "crypto.phrase_to_key")
	}
	key, err := bip39.EntropyFromMnemonic(phrase)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.RecoveryError, "crypto.phrase_to_key", err)
	}
	if len(key) != 32 {
		return nil, engerrors.New(engerrors.RecoveryError, "crypto.phrase_to_key")
	}
	return key, nil
}

// KeyToPhrase is the inverse of PhraseToKey for a 32-byte key.
func KeyToPhrase(key []byte) (string, error) {
	if len(key) != 32 {
		return "", engerrors.New(engerrors.FormatError, "crypto.key_to_phrase")
	}
	phrase, err := bip39.NewMnemonic(key)
	if err != nil {
		return "", engerrors.Wrap(engerrors.FormatError, "crypto.key_to_phrase", err)
	}
	return phrase, nil
}

// GenerateRecoveryKit Shamir-splits the vault key into `total` shares, any
// `threshold` of which combine to recover it. The kit is never persisted by
// this package: the caller displays it once and discards it.
func GenerateRecoveryKit(vaultKey []byte, userID string, total, threshold int) (types.RecoveryKit, error) {
	if len(vaultKey) != 32 {
		return types.RecoveryKit{}, engerrors.New(engerrors.ConfigError, "crypto.generate_recovery_kit")
	}
	if total < 2 || threshold < 2 || threshold > total {
		return types.RecoveryKit{}, engerrors.New(engerrors.ConfigError, "crypto.generate_recovery_kit")
	}

	parts, err := shamir.Split(vaultKey, total, threshold)
	if err != nil {
		return types.RecoveryKit{}, engerrors.Wrap(engerrors.RecoveryError, "crypto.generate_recovery_kit", err)
	}

	shares := make([]types.RecoveryShare, len(parts))
	for i, part := range parts {
		shares[i] = types.RecoveryShare{
			Index: i,
			Data:  base64.StdEncoding.EncodeToString(part),
		}
	}

	return types.RecoveryKit{
		UserID:    userID,
		Total:     total,
		Threshold: threshold,
		Shares:    shares,
	}, nil
}

// RecoverFromKit combines threshold-or-more shares back into the original
// vault key. A malformed or undecipherable share fails with RecoveryError.
func RecoverFromKit(shares []types.RecoveryShare) ([]byte, error) {
	if len(shares) < 2 {
		return nil, engerrors.New(engerrors.RecoveryError, "crypto.recover_from_kit")
	}

	parts := make([][]byte, len(shares))
	for i, share := range shares {
		part, err := base64.StdEncoding.DecodeString(share.Data)
		if err != nil {
			return nil, engerrors.Wrap(engerrors.RecoveryError, "crypto.recover_from_kit", err)
		}
		parts[i] = part
	}

	key, err := shamir.Combine(parts)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.RecoveryError, "crypto.recover_from_kit", err)
	}
	if len(key) != 32 {
		return nil, engerrors.New(engerrors.RecoveryError, "crypto.recover_from_kit")
	}
	return key, nil
}
