// Package secrets implements the Secrets Store.
//
// A secret is an encrypted value addressed by a unique, case-sensitive key
// name. Set upserts by key name, preserving an existing description when
// the caller passes nil rather than an empty string. Every mutation that
// commits locally is optionally mirrored through an injected Syncer: the
// remote push runs first (logged and swallowed on failure, never rolling
// back the local write), then the local journal row is recorded
// unconditionally so that other devices can still discover the change on
// their next pull even if this device was offline when it happened.
//
// The journal's blind_id column lets a remote server index events by key
// name without ever seeing the name itself (HMAC-SHA256 under the blind-
// index key). Because that HMAC cannot be reversed, an ADD or UPDATE
// event's encrypted payload carries the key name alongside the value so a
// receiving device can reconstruct the row; a DELETE event carries only the
// blind_id, so applying one requires recomputing the blind index of every
// locally known key until one matches.
package secrets
