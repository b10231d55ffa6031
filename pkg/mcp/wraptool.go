package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// wrapTool adapts a handler so a returned error or a recovered panic both
// become an isError result carrying "<Category> failed: <message>" rather
// than propagating to the transport.
func wrapTool(category string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", category, r))
				err = nil
			}
		}()

		result, err = handler(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", category, err.Error())), nil
		}
		return result, nil
	}
}
