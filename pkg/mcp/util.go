package mcp

import (
	"fmt"
	"strings"
	"time"
)

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// firstChars returns the first n runes of s with no ellipsis appended,
// for callers (like the recovery-kit renderer) that add their own suffix.
func firstChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return fmt.Sprintf(" [%s]", strings.Join(tags, ", "))
}

func dateOnly(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
