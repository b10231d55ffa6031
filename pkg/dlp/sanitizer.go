// Package dlp implements Engram's secret-redaction pass: every memory's
// content is sanitized before it ever reaches disk.
package dlp

import "regexp"

// Label names the kind of secret a pattern detects. Label is embedded
// literally into the replacement text, so values are upper-snake-case.
type Label string

const (
	LabelOpenAIKey        Label = "OPENAI_KEY"
	LabelOpenAIProjectKey Label = "OPENAI_PROJECT_KEY"
	LabelAnthropicKey     Label = "ANTHROPIC_KEY"
	LabelGitHubToken      Label = "GITHUB_TOKEN"
	LabelGitHubFinePAT    Label = "GITHUB_FINE_GRAINED_PAT"
	LabelStripeKey        Label = "STRIPE_KEY"
	LabelAWSAccessKey     Label = "AWS_ACCESS_KEY"
	LabelSlackToken       Label = "SLACK_TOKEN"
	LabelGoogleAPIKey     Label = "GOOGLE_API_KEY"
	LabelDatabaseURL      Label = "DATABASE_URL"
	LabelPrivateKey       Label = "PRIVATE_KEY"
	LabelBearerToken      Label = "BEARER_TOKEN"
)

// pattern pairs a compiled regex with the label substituted for any match.
// Order is significant: patterns run in slice order and the result of an
// earlier pattern feeds into the next, so a value that could match two
// patterns is labeled by whichever runs first.
type pattern struct {
	re    *regexp.Regexp
	label Label
}

// Result is the output of Sanitize: the rewritten text plus the set of
// labels that fired, in the order they were first seen.
type Result struct {
	Sanitized string
	Detected  []Label
}

// Sanitizer owns an ordered list of secret-detection patterns and rewrites
// every match to the literal `{{SECRET:<LABEL>}}`.
type Sanitizer struct {
	patterns []pattern
}

// New builds a Sanitizer with the default pattern set.
func New() *Sanitizer {
	return &Sanitizer{patterns: defaultPatterns()}
}

// AddPattern appends a custom pattern to the end of the ordered list,
// preserving the existing pattern order.
func (s *Sanitizer) AddPattern(label Label, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, pattern{re: re, label: label})
	return nil
}

// Sanitize replaces every match of every pattern with `{{SECRET:<LABEL>}}`.
// Empty input returns an empty result with no detections. Sanitizing an
// already-sanitized string is idempotent: no pattern matches the
// replacement tokens themselves, so the second pass returns the same text
// and an empty detected set.
func (s *Sanitizer) Sanitize(text string) Result {
	if text == "" {
		return Result{Sanitized: "", Detected: nil}
	}

	seen := make(map[Label]bool)
	var detected []Label

	out := text
	for _, p := range s.patterns {
		if !p.re.MatchString(out) {
			continue
		}
		if !seen[p.label] {
			seen[p.label] = true
			detected = append(detected, p.label)
		}
		out = p.re.ReplaceAllString(out, "{{SECRET:"+string(p.label)+"}}")
	}

	return Result{Sanitized: out, Detected: detected}
}

func defaultPatterns() []pattern {
	specs := []struct {
		label Label
		expr  string
	}{
		{LabelAnthropicKey, `sk-ant-[A-Za-z0-9_-]{20,}`},
		{LabelOpenAIProjectKey, `sk-proj-[A-Za-z0-9_-]{20,}`},
		{LabelOpenAIKey, `sk-[A-Za-z0-9]{48}`},
		{LabelGitHubFinePAT, `github_pat_[A-Za-z0-9_]{20,}`},
		{LabelGitHubToken, `ghp_[A-Za-z0-9]{36}`},
		{LabelStripeKey, `(?:sk|rk)_live_[A-Za-z0-9]{24,}`},
		{LabelAWSAccessKey, `\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`},
		{LabelSlackToken, `xox[baprs]-[A-Za-z0-9-]{10,}`},
		{LabelGoogleAPIKey, `AIza[A-Za-z0-9_-]{35}`},
		{LabelDatabaseURL, `\b[a-zA-Z][a-zA-Z0-9+.-]*://[^\s:]+:[^\s@]+@[^\s/]+`},
		{LabelPrivateKey, `-----BEGIN[A-Z ]*PRIVATE KEY-----[\s\S]*?-----END[A-Z ]*PRIVATE KEY-----`},
		{LabelBearerToken, `[Bb]earer\s+[A-Za-z0-9._-]{20,}`},
	}

	patterns := make([]pattern, len(specs))
	for i, s := range specs {
		patterns[i] = pattern{re: regexp.MustCompile(s.expr), label: s.label}
	}
	return patterns
}
