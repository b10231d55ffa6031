package indexing

import (
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontmatterParser recognizes skill, agent, and command definitions: a
// Markdown file with a YAML frontmatter block under a known .claude
// subdirectory, or the equivalent path inside a plugin.
type FrontmatterParser struct{}

var frontmatterPathRe = regexp.MustCompile(`(^|/)\.claude/(?:plugins/[^/]+/)?(skills|agents|commands)/`)

var projectPathRe = regexp.MustCompile(`^(.*)/\.claude/(skills|agents|commands)/`)

var frontmatterBlockRe = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)

func (FrontmatterParser) CanParse(path string) bool {
	if filepath.Ext(path) != ".md" {
		return false
	}
	return frontmatterPathRe.MatchString(path)
}

func (FrontmatterParser) Parse(path string, data []byte) (*ParsedContent, error) {
	match := frontmatterBlockRe.FindSubmatch(data)
	if match == nil {
		return nil, nil
	}

	var fm map[string]any
	if err := yaml.Unmarshal(match[1], &fm); err != nil {
		return nil, nil
	}

	description, _ := fm["description"].(string)
	if description == "" {
		return nil, nil // description is required; silently skip otherwise
	}

	defKind := definitionKind(path)

	name, _ := fm["name"].(string)
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	metadata := map[string]string{
		"type": defKind,
		"name": name,
	}

	if strings.Contains(path, "/.claude/plugins/") {
		metadata["scope"] = "global"
	} else {
		metadata["scope"] = "project"
		if pm := projectPathRe.FindStringSubmatch(path); pm != nil {
			metadata["project_path"] = pm[1]
		}
	}

	return &ParsedContent{
		Summary:  description,
		Messages: nil,
		Metadata: metadata,
	}, nil
}

func definitionKind(path string) string {
	switch {
	case strings.Contains(path, "/skills/"):
		return "skill"
	case strings.Contains(path, "/agents/"):
		return "agent"
	case strings.Contains(path, "/commands/"):
		return "command"
	default:
		return "definition"
	}
}
