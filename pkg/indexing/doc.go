// Package indexing turns files from known AI assistant tools into
// memories.
//
// A Service holds an ordered list of Parsers; IngestFile tries each in turn
// until one's CanParse matches, then calls its Parse. A Parse that returns
// (nil, nil) means the file was recognized but isn't worth storing (for
// example a frontmatter block missing the required description field) and
// stops the chain for that file — no other parser gets a turn.
//
// Session parsers (Claude Code, OpenCode, Cursor, Codex) extract a
// best-effort list of user/assistant messages and a basic, non-LLM summary.
// When a Summarizer is configured and messages were extracted, the last 20
// messages (each truncated to 2000 characters) are handed to it instead;
// its output replaces the basic summary and raises the resulting memory's
// confidence from 0.7 to 0.9. A summarizer failure is logged and the basic
// summary is used, never surfaced as an ingest failure.
//
// Every step of the pipeline publishes a types.IndexingEvent through the
// configured events.Broker and best-effort persists it to the
// indexing_events table; a persistence failure never interrupts ingest.
// IngestFile itself never returns an error for a single bad file: read,
// parse, embed, and store failures are all reported as "error" events with
// (false, nil).
package indexing
