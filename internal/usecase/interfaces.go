package usecase

import (
	"context"

	"github.com/i2y/papermcp/internal/domain"
	// Import mcp types needed for the adapter interface
	"github.com/mark3labs/mcp-go/mcp"
	// Import server type for the handler function
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// ToolRegistry defines the contract for storing tool definitions and
// validating invocation arguments against their declared schemas.
// Implementations could range from in-memory stores to persistent databases.
type ToolRegistry interface {
	// Register adds a tool definition. It fails on a duplicate name, a
	// missing handler, or an uncompilable input schema.
	Register(def domain.ToolDefinition) error

	// List retrieves the current catalog in registration order.
	List(ctx context.Context) (domain.Catalog, error)

	// Find retrieves a specific tool definition by its unique name.
	Find(ctx context.Context, name string) (*domain.ToolDefinition, error)

	// ValidateArguments checks args against the named tool's input schema.
	ValidateArguments(name string, args map[string]interface{}) error
}

// MCPServerAdapter defines the interface required by the PublishToolsUseCase
// to interact with the underlying MCP server (like mcp-go).
// This avoids direct dependency on a specific server implementation in the use case.
type MCPServerAdapter interface {
	// AddTool registers a tool and its handler with the server.
	// Use the specific type from the mcp-go/server package.
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}
