package crypto

import "testing"

func TestDeriveKeyFromPasswordDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}

	a := DeriveKeyFromPassword("correct horse battery staple", salt, 1000)
	b := DeriveKeyFromPassword("correct horse battery staple", salt, 1000)
	if string(a) != string(b) {
		t.Error("expected DeriveKeyFromPassword to be deterministic for the same inputs")
	}
	if len(a) != 32 {
		t.Errorf("derived key length = %d, want 32", len(a))
	}
}

func TestDeriveKeyFromPasswordDistinctSalts(t *testing.T) {
	saltA, _ := GenerateSalt()
	saltB, _ := GenerateSalt()

	a := DeriveKeyFromPassword("same password", saltA, 1000)
	b := DeriveKeyFromPassword("same password", saltB, 1000)
	if string(a) == string(b) {
		t.Error("expected distinct derived keys for distinct salts")
	}
}
