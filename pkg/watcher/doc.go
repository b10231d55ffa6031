// Package watcher detects new and modified session files under a dynamic
// set of root directories and hands them to the Indexing Service.
//
// A Watcher never blocks its fsnotify event loop on ingest work: discovered
// paths are pushed onto a bounded queue and drained by a small worker pool,
// so a slow parse or embed call cannot stall delivery of subsequent
// filesystem events. A full queue drops the event and logs a warning rather
// than applying backpressure to fsnotify.
//
// Any path segment whose basename begins with a dot is skipped during both
// the initial recursive scan and live event handling, except for the root
// paths passed to AddPath themselves — a caller is expected to add paths
// like ".claude" or ".codex" directly.
package watcher
