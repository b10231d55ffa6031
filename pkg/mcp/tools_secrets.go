package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// errVaultNotInitialized is surfaced verbatim by the wrapTool adapter as
// "Secret failed: vault not initialized" when no vault key is configured.
var errVaultNotInitialized = errors.New("vault not initialized")

func (s *Server) requireSecrets() error {
	if s.secrets == nil {
		return errVaultNotInitialized
	}
	return nil
}

func (s *Server) getSecret(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireSecrets(); err != nil {
		return nil, err
	}
	key := request.GetString("key", "")
	value, err := s.secrets.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Secret %q not found.", key)), nil
	}
	return mcp.NewToolResultText(*value), nil
}

func (s *Server) setSecret(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireSecrets(); err != nil {
		return nil, err
	}
	key := request.GetString("key", "")
	value := request.GetString("value", "")

	var description *string
	if raw := request.GetString("description", ""); raw != "" {
		description = &raw
	}

	if _, err := s.secrets.Set(ctx, key, value, description); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Secret %q has been set.", key)), nil
}
