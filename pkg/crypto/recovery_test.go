package crypto

import (
	"testing"

	"github.com/engramhq/engram/pkg/types"
)

func TestPhraseKeyRoundTrip(t *testing.T) {
	phrase, key, err := GenerateRecoveryPhrase()
	if err != nil {
		t.Fatalf("GenerateRecoveryPhrase() error = %v", err)
	}

	recovered, err := PhraseToKey(phrase)
	if err != nil {
		t.Fatalf("PhraseToKey() error = %v", err)
	}
	if string(recovered) != string(key) {
		t.Error("PhraseToKey(GenerateRecoveryPhrase()) did not reproduce the original key")
	}

	roundTripPhrase, err := KeyToPhrase(key)
	if err != nil {
		t.Fatalf("KeyToPhrase() error = %v", err)
	}
	if roundTripPhrase != phrase {
		t.Error("KeyToPhrase(key) did not reproduce the original phrase")
	}
}

func TestPhraseToKeyInvalidMnemonic(t *testing.T) {
	if _, err := PhraseToKey("not a valid mnemonic phrase at all"); err == nil {
		t.Error("expected an error for an invalid mnemonic")
	}
}

func TestRecoveryKitThresholdRecovery(t *testing.T) {
	vaultKey := mustKey(t)

	kit, err := GenerateRecoveryKit(vaultKey, "user-1", 5, 3)
	if err != nil {
		t.Fatalf("GenerateRecoveryKit() error = %v", err)
	}
	if len(kit.Shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(kit.Shares))
	}

	recovered, err := RecoverFromKit(kit.Shares[:3])
	if err != nil {
		t.Fatalf("RecoverFromKit() error = %v", err)
	}
	if string(recovered) != string(vaultKey) {
		t.Error("RecoverFromKit did not reproduce the original vault key")
	}

	// A different subset of 3 shares must also recover the same key.
	recoveredOther, err := RecoverFromKit([]types.RecoveryShare{kit.Shares[1], kit.Shares[2], kit.Shares[4]})
	if err != nil {
		t.Fatalf("RecoverFromKit() error = %v", err)
	}
	if string(recoveredOther) != string(vaultKey) {
		t.Error("RecoverFromKit with a different share subset did not reproduce the original key")
	}
}

func TestRecoveryKitInsufficientShares(t *testing.T) {
	vaultKey := mustKey(t)

	kit, err := GenerateRecoveryKit(vaultKey, "user-1", 5, 3)
	if err != nil {
		t.Fatalf("GenerateRecoveryKit() error = %v", err)
	}

	if _, err := RecoverFromKit(kit.Shares[:1]); err == nil {
		t.Error("expected an error recovering from a single share below threshold")
	}
}

func TestGenerateRecoveryKitInvalidParams(t *testing.T) {
	vaultKey := mustKey(t)

	tests := []struct {
		name      string
		total     int
		threshold int
	}{
		{"total below 2", 1, 1},
		{"threshold below 2", 3, 1},
		{"threshold above total", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateRecoveryKit(vaultKey, "user-1", tt.total, tt.threshold); err == nil {
				t.Error("expected an error for invalid total/threshold")
			}
		})
	}
}
