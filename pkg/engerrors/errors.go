// Package engerrors defines the stable error taxonomy shared across
// Engram's stores, crypto service, and sync engines. Every fallible
// operation below the MCP facade returns an *Error (or wraps one via
// errors.Is/As); the facade converts any such error to a single-line
// isError response and never propagates a stack trace to the assistant.
package engerrors

import (
	"errors"
	"fmt"
)

// Kind names a class of failure. Kinds are compared with errors.Is against
// the package-level sentinel of the same name.
type Kind string

const (
	// NotInitialized means the master or vault key is absent when an
	// operation required it.
	NotInitialized Kind = "not_initialized"

	// AuthError means AES-GCM tag verification or RSA-OAEP unwrap failed.
	AuthError Kind = "auth_error"

	// FormatError means a malformed envelope, frontmatter block, or
	// recovery share.
	FormatError Kind = "format_error"

	// ChecksumMismatch means a sync event's content did not match its
	// declared checksum.
	ChecksumMismatch Kind = "checksum_mismatch"

	// VectorDimMismatch means a vector's length did not match the
	// store's configured dimension.
	VectorDimMismatch Kind = "vector_dim_mismatch"

	// StorageError means a database constraint violation or I/O failure.
	StorageError Kind = "storage_error"

	// NetworkError means a non-2xx response (or transport failure) from
	// a remote sync server.
	NetworkError Kind = "network_error"

	// ConfigError means a required configuration value (blind-index key,
	// vault key, sync URL) was missing.
	ConfigError Kind = "config_error"

	// RecoveryError means recovery shares were insufficient or invalid.
	RecoveryError Kind = "recovery_error"
)

// sentinels lets callers write errors.Is(err, engerrors.NotInitialized) by
// wrapping the Kind itself as an error.
func (k Kind) Error() string { return string(k) }

// Error is the concrete error type returned by fallible operations. Op
// names the operation that failed (e.g. "memory.create"); Err is the
// underlying cause, which may itself be an *Error or a plain error from a
// library call.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, so errors.Is(err,
// engerrors.ChecksumMismatch) works without unwrapping manually.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap constructs an *Error around an existing error. Wrap(kind, op, nil)
// returns nil, matching the fmt.Errorf idiom of a no-op wrap.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
