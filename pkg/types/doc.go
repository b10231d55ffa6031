/*
Package types defines the core data structures used throughout Engram.

This package contains the domain model shared by the memory store, secrets
store, indexing service, sync engines, and MCP facade: memories, sync journal
entries for both streams, secrets, devices, recovery kits, and the event
shapes used by the indexing pipeline and the session watcher.

# Design

Types here are plain structs with no behavior. Validation and lifecycle
rules live in the packages that own each entity (pkg/memory, pkg/secrets,
pkg/sync) per the ownership model: the store owns memories, secrets, and
journals; the crypto package owns key material; the indexing service
borrows a reference to the memory store.

Timestamps are millisecond epoch int64, matching the journal's ordering
requirements (strictly increasing sequence_num within a stream) rather than
time.Time, so that serialized sync events round-trip exactly.
*/
package types
