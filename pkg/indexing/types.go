package indexing

import "context"

// Message is a single chat turn extracted from a session file, truncated
// and passed to an optional LLM summarizer.
type Message struct {
	Role    string
	Content string
}

// ParsedContent is what a Parser extracts from one file: enough to build a
// basic summary without an LLM, plus the raw messages (if any) an optional
// summarizer can work from.
type ParsedContent struct {
	Summary  string            // basic, non-LLM summary text
	Messages []Message         // nil for definition files (skills/agents/commands)
	Metadata map[string]string // always carries "type"; sessions carry nothing else, definitions carry "scope", "project_path", "name"
}

// Parser recognizes and extracts one known file format. CanParse must be
// cheap (path inspection only); Parse may read and interpret the file's
// bytes. A Parse that returns (nil, nil) means "recognized but not worth
// indexing" and stops the parser chain for that file, matching the
// first-match-wins contract Service.IngestFile implements.
type Parser interface {
	CanParse(path string) bool
	Parse(path string, data []byte) (*ParsedContent, error)
}

// Summarizer optionally condenses a session's messages into a single
// summary string. A nil Summarizer makes Service fall back to each
// parser's basic Summary unconditionally.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

// Embedder turns a summary string into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
