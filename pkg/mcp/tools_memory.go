package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/engramhq/engram/pkg/dlp"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/memory"
)

var sanitizer = dlp.New()

const sessionIndexTag = "session-index"

func (s *Server) requireEmbedder() error {
	if s.embedder == nil {
		return engerrors.New(engerrors.NotInitialized, "mcp.embedder")
	}
	return nil
}

func (s *Server) saveMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireEmbedder(); err != nil {
		return nil, err
	}
	content := request.GetString("content", "")
	if content == "" {
		return nil, engerrors.New(engerrors.FormatError, "mcp.save_memory")
	}

	sanitized := sanitizer.Sanitize(content).Sanitized
	vector, err := s.embedder.Embed(ctx, sanitized)
	if err != nil {
		return nil, err
	}

	var tags []string
	if raw := request.GetString("tags", ""); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}

	mem, err := s.memories.Create(ctx, memory.CreateInput{
		Content: sanitized,
		Tags:    tags,
		Source:  request.GetString("source", ""),
	}, vector)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Remembered: %q (ID: %s)", truncate(mem.Content, 100), mem.ID)), nil
}

func (s *Server) readMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireEmbedder(); err != nil {
		return nil, err
	}
	query := request.GetString("query", "")
	limit := int(request.GetFloat("limit", 5))

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.memories.Search(ctx, vector, limit, memory.SearchOptions{})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No relevant memories found."), nil
	}

	var lines []string
	for i, hit := range hits {
		verified := ""
		if hit.Memory.IsVerified {
			verified = " (verified)"
		}
		lines = append(lines, fmt.Sprintf("%d. %s%s%s (similarity: %.3f)",
			i+1, hit.Memory.Content, formatTags(hit.Memory.Tags), verified, 1-hit.Distance))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) deleteMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	deleted, err := s.memories.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return mcp.NewToolResultText(fmt.Sprintf("Memory %s not found.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory %s has been deleted.", id)), nil
}

func (s *Server) listMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 10))
	mems, err := s.memories.List(ctx, memory.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(mems) == 0 {
		return mcp.NewToolResultText("No memories found."), nil
	}

	var lines []string
	for i, mem := range mems {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s%s",
			i+1, dateOnly(mem.CreatedAt), truncate(mem.Content, 80), formatTags(mem.Tags)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) memoryStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.memories.Count(ctx)
	if err != nil {
		return nil, err
	}
	status := EmbeddingNotLoaded
	if s.embedder != nil {
		status = s.embedder.Status()
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory count: %d\nEmbedding model: %s", count, status)), nil
}

func (s *Server) findSimilarSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireEmbedder(); err != nil {
		return nil, err
	}
	intent := request.GetString("intent", "")
	limit := int(request.GetFloat("limit", 3))

	vector, err := s.embedder.Embed(ctx, intent)
	if err != nil {
		return nil, err
	}
	hits, err := s.memories.Search(ctx, vector, limit*2, memory.SearchOptions{})
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, hit := range hits {
		if !hasTag(hit.Memory.Tags, sessionIndexTag) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\nSimilarity: %.2f\nPath: %s",
			hit.Memory.Content, 1-hit.Distance, hit.Memory.Source))
		if len(lines) >= limit {
			break
		}
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("No relevant memories found."), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n\n")), nil
}
