// Package mcp exposes Engram's stores through the Model Context Protocol:
// twelve tools backed by mark3labs/mcp-go, each a thin handler translating
// tool arguments into one store/sync/crypto call.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/secrets"
	"github.com/engramhq/engram/pkg/types"
)

// EmbeddingStatus reports the readiness of the embedding model backing
// mcp_save_memory / mcp_read_memory / mcp_find_similar_sessions.
type EmbeddingStatus int

const (
	EmbeddingNotLoaded EmbeddingStatus = iota
	EmbeddingLoading
	EmbeddingReady
)

func (s EmbeddingStatus) String() string {
	switch s {
	case EmbeddingReady:
		return "Ready"
	case EmbeddingLoading:
		return "Loading..."
	default:
		return "Not loaded"
	}
}

// Embedder is the narrow embedding surface the facade needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Status() EmbeddingStatus
}

// DeviceRegistry is the narrow surface of sync.DeviceRegistry the facade
// needs for device-authorization tools.
type DeviceRegistry interface {
	AuthorizeDevice(ctx context.Context, deviceID string, name *string, devicePublicKeyPEM string) (*types.Device, error)
	RevokeDevice(ctx context.Context, deviceID string) error
	ListDevices(ctx context.Context) ([]types.Device, error)
}

// VaultKeyProvider supplies the raw vault key for recovery-kit generation.
// It is a function rather than a stored byte slice so the facade never
// caches key material beyond a single call.
type VaultKeyProvider func() ([]byte, error)

// Server wires Engram's stores to an MCP server instance.
type Server struct {
	mcpServer *server.MCPServer

	memories *memory.Store
	secrets  *secrets.Store
	devices  DeviceRegistry
	embedder Embedder
	vaultKey VaultKeyProvider
}

// New constructs a Server and registers all twelve tools. devices and
// vaultKey may be nil/unset; the corresponding tools then fail with
// "vault not initialized" rather than panicking.
func New(memories *memory.Store, secretsStore *secrets.Store, devices DeviceRegistry, embedder Embedder, vaultKey VaultKeyProvider) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("engram", "1.0.0"),
		memories:  memories,
		secrets:   secretsStore,
		devices:   devices,
		embedder:  embedder,
		vaultKey:  vaultKey,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.addTool("memory", "mcp_save_memory",
		"Store a new memory, sanitizing any detected secrets first.",
		[]mcp.ToolOption{
			mcp.WithString("content", mcp.Required(), mcp.Description("The content to remember")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags")),
			mcp.WithString("source", mcp.Description("Origin of this memory")),
		},
		s.saveMemory,
	)
	s.addTool("memory", "mcp_read_memory",
		"Search stored memories by semantic similarity to a query.",
		[]mcp.ToolOption{
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum results (default 5)")),
		},
		s.readMemory,
	)
	s.addTool("memory", "mcp_delete_memory",
		"Delete a memory by id.",
		[]mcp.ToolOption{
			mcp.WithString("id", mcp.Required(), mcp.Description("The memory id")),
		},
		s.deleteMemory,
	)
	s.addTool("memory", "mcp_list_memories",
		"List stored memories, most recent first.",
		[]mcp.ToolOption{
			mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		},
		s.listMemories,
	)
	s.addTool("memory", "mcp_memory_status",
		"Report the memory count and embedding model readiness.",
		nil,
		s.memoryStatus,
	)
	s.addTool("memory", "mcp_find_similar_sessions",
		"Find prior sessions related to a stated intent.",
		[]mcp.ToolOption{
			mcp.WithString("intent", mcp.Required(), mcp.Description("What you are about to do")),
			mcp.WithNumber("limit", mcp.Description("Maximum results (default 3)")),
		},
		s.findSimilarSessions,
	)

	s.addTool("secret", "mcp_get_secret",
		"Retrieve a stored secret's plaintext value.",
		[]mcp.ToolOption{
			mcp.WithString("key", mcp.Required(), mcp.Description("The secret's key name")),
		},
		s.getSecret,
	)
	s.addTool("secret", "mcp_set_secret",
		"Store or update a secret's value.",
		[]mcp.ToolOption{
			mcp.WithString("key", mcp.Required(), mcp.Description("The secret's key name")),
			mcp.WithString("value", mcp.Required(), mcp.Description("The secret's value")),
			mcp.WithString("description", mcp.Description("Optional description")),
		},
		s.setSecret,
	)

	s.addTool("device", "mcp_authorize_device",
		"Authorize a new device to receive the vault key.",
		[]mcp.ToolOption{
			mcp.WithString("device_id", mcp.Required(), mcp.Description("The device id")),
			mcp.WithString("public_key", mcp.Required(), mcp.Description("The device's RSA public key, PEM-encoded")),
			mcp.WithString("name", mcp.Description("Optional device name")),
		},
		s.authorizeDevice,
	)
	s.addTool("device", "mcp_revoke_device",
		"Revoke a previously authorized device.",
		[]mcp.ToolOption{
			mcp.WithString("device_id", mcp.Required(), mcp.Description("The device id")),
		},
		s.revokeDevice,
	)
	s.addTool("device", "mcp_list_devices",
		"List all authorized devices.",
		nil,
		s.listDevices,
	)
	s.addTool("device", "mcp_create_recovery_kit",
		"Split the vault key into recovery shares.",
		[]mcp.ToolOption{
			mcp.WithNumber("shares", mcp.Description("Total shares (default 5)")),
			mcp.WithNumber("threshold", mcp.Description("Shares required to recover (default 3)")),
		},
		s.createRecoveryKit,
	)
}

func (s *Server) addTool(category, name, description string, opts []mcp.ToolOption, handler server.ToolHandlerFunc) {
	toolOpts := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	tool := mcp.NewTool(name, toolOpts...)
	s.mcpServer.AddTool(tool, wrapTool(category, handler))
}

// ServeStdio runs the MCP server over stdio until the transport closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
