package indexing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// OpenCodeParser recognizes OpenCode's session history files.
type OpenCodeParser struct{}

func (OpenCodeParser) CanParse(path string) bool {
	return filepath.Ext(path) == ".json" && strings.Contains(path, ".opencode/history")
}

func (OpenCodeParser) Parse(path string, data []byte) (*ParsedContent, error) {
	return parseGenericSessionJSON(data, "opencode-session", "OpenCode")
}

// CursorParser recognizes Cursor's session storage, which may be either a
// single JSON document or a line-delimited JSONL transcript.
type CursorParser struct{}

func (CursorParser) CanParse(path string) bool {
	if !strings.Contains(strings.ToLower(path), "cursor") {
		return false
	}
	ext := filepath.Ext(path)
	return ext == ".json" || ext == ".jsonl"
}

func (CursorParser) Parse(path string, data []byte) (*ParsedContent, error) {
	if filepath.Ext(path) == ".jsonl" {
		return parseGenericSessionJSONL(data, "cursor-session", "Cursor")
	}
	return parseGenericSessionJSON(data, "cursor-session", "Cursor")
}

// CodexParser recognizes Codex's session files.
type CodexParser struct{}

func (CodexParser) CanParse(path string) bool {
	return filepath.Ext(path) == ".json" && strings.Contains(path, ".codex")
}

func (CodexParser) Parse(path string, data []byte) (*ParsedContent, error) {
	return parseGenericSessionJSON(data, "codex-session", "Codex")
}

// genericMessage matches the {role, content} shape common to every tool's
// "messages" or "conversation" array, tolerating content encoded as either
// a bare string or a nested array of typed blocks (like Claude Code's).
type genericMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type genericSessionDoc struct {
	Messages     []genericMessage `json:"messages"`
	Conversation []genericMessage `json:"conversation"`
}

func parseGenericSessionJSON(data []byte, typeLabel, displayName string) (*ParsedContent, error) {
	var doc genericSessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil // not a recognizable document; skip rather than error
	}

	raw := doc.Messages
	if len(raw) == 0 {
		raw = doc.Conversation
	}
	messages := convertGenericMessages(raw)
	if len(messages) == 0 {
		return nil, nil
	}

	return &ParsedContent{
		Summary:  fmt.Sprintf("%s session: %d messages", displayName, len(messages)),
		Messages: messages,
		Metadata: map[string]string{"type": typeLabel},
	}, nil
}

func parseGenericSessionJSONL(data []byte, typeLabel, displayName string) (*ParsedContent, error) {
	var messages []Message
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var m genericMessage
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		text := extractMessageText(m.Content)
		if m.Role == "" || text == "" {
			continue
		}
		messages = append(messages, Message{Role: m.Role, Content: text})
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &ParsedContent{
		Summary:  fmt.Sprintf("%s session: %d messages", displayName, len(messages)),
		Messages: messages,
		Metadata: map[string]string{"type": typeLabel},
	}, nil
}

func convertGenericMessages(raw []genericMessage) []Message {
	var out []Message
	for _, m := range raw {
		text := extractMessageText(m.Content)
		if m.Role == "" || text == "" {
			continue
		}
		out = append(out, Message{Role: m.Role, Content: text})
	}
	return out
}
