package indexing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// ClaudeCodeParser recognizes Claude Code's line-delimited session
// transcripts.
type ClaudeCodeParser struct{}

func (ClaudeCodeParser) CanParse(path string) bool {
	if filepath.Ext(path) != ".jsonl" {
		return false
	}
	return strings.Contains(path, ".claude/projects") || strings.Contains(path, "claude-code")
}

type claudeCodeLine struct {
	Type      string `json:"type"`
	CWD       string `json:"cwd"`
	GitBranch string `json:"gitBranch"`
	Message   *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

var claudeCodeRelevantTypes = map[string]bool{
	"user":                  true,
	"assistant":             true,
	"summary":               true,
	"progress":              true,
	"file-history-snapshot": true,
}

func (ClaudeCodeParser) Parse(path string, data []byte) (*ParsedContent, error) {
	var (
		messages    []Message
		projectName string
		gitBranch   string
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry claudeCodeLine
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // tolerate malformed lines; the transcript is append-only and may be mid-write
		}
		if !claudeCodeRelevantTypes[entry.Type] {
			continue
		}
		if projectName == "" && entry.CWD != "" {
			projectName = filepath.Base(entry.CWD)
		}
		if gitBranch == "" && entry.GitBranch != "" {
			gitBranch = entry.GitBranch
		}
		if entry.Message == nil {
			continue
		}
		if entry.Message.Role != "user" && entry.Message.Role != "assistant" {
			continue
		}
		text := extractMessageText(entry.Message.Content)
		if text == "" {
			continue
		}
		messages = append(messages, Message{Role: entry.Message.Role, Content: text})
	}

	if len(messages) == 0 {
		return nil, nil
	}
	if projectName == "" {
		projectName = filepath.Base(filepath.Dir(path))
	}

	firstUser := firstMessageByRole(messages, "user")
	lastAssistant := lastMessageByRole(messages, "assistant")

	summary := fmt.Sprintf(
		"Claude Code session: %d messages in project %s (branch %s). First: %q Last: %q",
		len(messages), projectName, branchOrUnknown(gitBranch),
		truncate(firstUser, 200), truncate(lastAssistant, 100),
	)

	return &ParsedContent{
		Summary:  summary,
		Messages: messages,
		Metadata: map[string]string{"type": "claude-code-session"},
	}, nil
}

func branchOrUnknown(branch string) string {
	if branch == "" {
		return "unknown"
	}
	return branch
}

func firstMessageByRole(messages []Message, role string) string {
	for _, m := range messages {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}

func lastMessageByRole(messages []Message, role string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return messages[i].Content
		}
	}
	return ""
}

// extractMessageText pulls plain text out of a message's content field,
// which Claude Code encodes either as a bare string or as an array of typed
// content blocks (only "text" blocks are kept).
func extractMessageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}
