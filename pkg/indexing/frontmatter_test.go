package indexing

import "testing"

func TestFrontmatterParserCanParse(t *testing.T) {
	p := FrontmatterParser{}
	if !p.CanParse("/home/user/project/.claude/skills/review/SKILL.md") {
		t.Error("expected a .claude/skills/*.md path to match")
	}
	if !p.CanParse("/home/user/project/.claude/plugins/acme/agents/reviewer/AGENT.md") {
		t.Error("expected a plugin agents path to match")
	}
	if p.CanParse("/home/user/project/.claude/skills/review/README.txt") {
		t.Error("a non-markdown file should not match")
	}
}

func TestFrontmatterParserProjectScope(t *testing.T) {
	p := FrontmatterParser{}
	data := []byte("---\ndescription: Reviews pull requests\nname: review\n---\n\nbody text\n")

	parsed, err := p.Parse("/home/user/project/.claude/skills/review/SKILL.md", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a non-nil result")
	}
	if parsed.Summary != "Reviews pull requests" {
		t.Errorf("unexpected summary: %q", parsed.Summary)
	}
	if parsed.Metadata["type"] != "skill" {
		t.Errorf("unexpected type: %q", parsed.Metadata["type"])
	}
	if parsed.Metadata["scope"] != "project" {
		t.Errorf("unexpected scope: %q", parsed.Metadata["scope"])
	}
	if parsed.Metadata["project_path"] != "/home/user/project" {
		t.Errorf("unexpected project_path: %q", parsed.Metadata["project_path"])
	}
	if parsed.Metadata["name"] != "review" {
		t.Errorf("unexpected name: %q", parsed.Metadata["name"])
	}
}

func TestFrontmatterParserGlobalScope(t *testing.T) {
	p := FrontmatterParser{}
	data := []byte("---\ndescription: Runs the release checklist\n---\n")

	parsed, err := p.Parse("/home/user/.claude/plugins/acme/commands/release/COMMAND.md", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Metadata["scope"] != "global" {
		t.Errorf("unexpected scope: %q", parsed.Metadata["scope"])
	}
	if parsed.Metadata["type"] != "command" {
		t.Errorf("unexpected type: %q", parsed.Metadata["type"])
	}
	if parsed.Metadata["name"] != "COMMAND" {
		t.Errorf("unexpected derived name: %q", parsed.Metadata["name"])
	}
}

func TestFrontmatterParserRequiresDescription(t *testing.T) {
	p := FrontmatterParser{}
	data := []byte("---\nname: review\n---\n")

	parsed, err := p.Parse("/home/user/project/.claude/skills/review/SKILL.md", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed != nil {
		t.Error("expected nil when description is missing")
	}
}

func TestFrontmatterParserNoFrontmatterBlock(t *testing.T) {
	p := FrontmatterParser{}
	parsed, err := p.Parse("/home/user/project/.claude/skills/review/SKILL.md", []byte("just a markdown body"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed != nil {
		t.Error("expected nil when there is no frontmatter block")
	}
}

func TestFrontmatterParserRecognizesBoolLiterals(t *testing.T) {
	p := FrontmatterParser{}
	data := []byte("---\ndescription: Test skill\nenabled: true\n---\n")

	parsed, err := p.Parse("/home/user/project/.claude/skills/test/SKILL.md", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a non-nil result")
	}
}
