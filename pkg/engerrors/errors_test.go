package engerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := New(ChecksumMismatch, "memory.apply_sync_event")

	if !errors.Is(err, ChecksumMismatch) {
		t.Error("expected errors.Is to match ChecksumMismatch")
	}
	if errors.Is(err, AuthError) {
		t.Error("did not expect errors.Is to match AuthError")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(StorageError, "op", nil) != nil {
		t.Error("Wrap with a nil cause should return nil")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StorageError, "memory.create", cause)

	if !errors.Is(err, StorageError) {
		t.Error("expected errors.Is to match StorageError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the wrapped cause to be reachable via errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("context: %w", New(RecoveryError, "recover_from_kit"))

	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("expected KindOf to find an *Error")
	}
	if kind != RecoveryError {
		t.Errorf("expected RecoveryError, got %s", kind)
	}

	_, ok = KindOf(errors.New("plain error"))
	if ok {
		t.Error("expected KindOf to report false for a non-*Error")
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(NotInitialized, "secrets.get")
	want := "secrets.get: not_initialized"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
