package crypto

import (
	"strings"
	"testing"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := mustKey(t)

	tests := []string{
		"short",
		"Rust uses ownership and borrowing for memory safety",
		strings.Repeat("x", 10000), // forces multiple pad blocks
		"",
	}

	for _, plaintext := range tests {
		env, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plaintext, err)
		}

		got, err := Decrypt(key, env)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptIVFreshness(t *testing.T) {
	key := mustKey(t)

	a, err := Encrypt(key, "same plaintext")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	b, err := Encrypt(key, "same plaintext")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if a.IV == b.IV {
		t.Error("expected distinct IVs across successive encrypt calls")
	}
	if a.Ciphertext == b.Ciphertext {
		t.Error("expected distinct ciphertexts across successive encrypt calls")
	}
}

func TestDecryptAuthFailure(t *testing.T) {
	key := mustKey(t)
	env, err := Encrypt(key, "tamper me")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	otherKey := mustKey(t)
	if _, err := Decrypt(otherKey, env); err == nil {
		t.Error("expected an error decrypting with the wrong key")
	}
}

func TestDecryptFormatError(t *testing.T) {
	key := mustKey(t)
	env := Envelope{Ciphertext: "no-delimiter-here", IV: "AAAAAAAAAAAAAAAA"}

	if _, err := Decrypt(key, env); err == nil {
		t.Error("expected a format error for a missing tag delimiter")
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("SHA256Hex() = %s, want %s", got, want)
	}
}

func TestGenerateKeyLength(t *testing.T) {
	key := mustKey(t)
	if len(key) != 32 {
		t.Errorf("GenerateKey() length = %d, want 32", len(key))
	}
}
