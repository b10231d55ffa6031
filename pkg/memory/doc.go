// Package memory implements the Memory Store.
//
// A Store owns three things inside one SQLite database: the memories table
// (sanitized content, tags, and bookkeeping fields), the memories_vec vector
// index used for KNN search, and the sync_events journal that every local
// mutation appends to in the same transaction as the mutation itself.
//
// Content passed to Create or Update is always run through a dlp.Sanitizer
// first; the sanitized text, never the original, is what gets stored,
// embedded, and journaled. Journal entries seal the sanitized content under
// the store's crypto.Service (bound to the vault key) before it leaves the
// process: ApplyEncryptedSyncEvent is the only path that writes content
// received from a peer, and it verifies a SHA-256 checksum before trusting
// the decrypted payload.
//
// Search and HybridSearch apply the same project-path visibility rule:
// memories sourced from a shared plugin or skill (recorded under a
// .claude/plugins/ path) are visible from every project; everything else is
// scoped to the project it was indexed under.
package memory
