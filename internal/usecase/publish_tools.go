package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/papermcp/internal/domain"
	"github.com/i2y/papermcp/pkg/shared/toolwire"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// PublishToolsUseCase registers tool definitions with the registry and
// exposes each one on the MCP server. The handler installed for a tool routes
// every call through InvokeToolUseCase, so transport and business logic stay
// separated: the MCP server only ever sees wire envelopes.
type PublishToolsUseCase struct {
	registry ToolRegistry
	server   MCPServerAdapter
	invoker  *InvokeToolUseCase
	logger   *slog.Logger
}

// NewPublishToolsUseCase creates a new PublishToolsUseCase.
func NewPublishToolsUseCase(
	registry ToolRegistry,
	server MCPServerAdapter,
	invoker *InvokeToolUseCase,
	logger *slog.Logger,
) *PublishToolsUseCase {
	return &PublishToolsUseCase{
		registry: registry,
		server:   server,
		invoker:  invoker,
		logger:   logger.With("usecase", "PublishTools"),
	}
}

// Execute registers each definition and binds it to the MCP server.
// Registration order is preserved, so the published catalog lists tools in
// the order they are given here. Fails on the first bad definition.
func (uc *PublishToolsUseCase) Execute(ctx context.Context, defs []domain.ToolDefinition) error {
	uc.logger.InfoContext(ctx, "Publishing tools", slog.Int("tool_count", len(defs)))

	for _, def := range defs {
		if err := uc.registry.Register(def); err != nil {
			uc.logger.ErrorContext(ctx, "Failed to register tool", slog.String("tool_name", def.Name), slog.Any("error", err))
			return fmt.Errorf("failed to register tool %q: %w", def.Name, err)
		}
		uc.server.AddTool(toMCPTool(def.Tool), uc.handlerFor(def.Name))
		uc.logger.DebugContext(ctx, "Published tool", slog.String("tool_name", def.Name))
	}

	uc.logger.InfoContext(ctx, "Successfully published tools", slog.Int("tool_count", len(defs)))
	return nil
}

// handlerFor builds the mcp-go handler for a registered tool. Invocation
// outcomes, including failures, travel back as a toolwire envelope in text
// content; the error return is reserved for protocol-level problems.
func (uc *PublishToolsUseCase) handlerFor(name string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := uc.invoker.Execute(ctx, name, req.GetArguments())
		if err != nil {
			res := mcp.NewToolResultText(toolwire.FromError(err).Encode())
			res.IsError = true
			return res, nil
		}
		return mcp.NewToolResultText(toolwire.Success(result).Encode()), nil
	}
}

// toMCPTool converts a domain tool into the mcp-go wire representation.
func toMCPTool(t domain.Tool) mcp.Tool {
	props := make(map[string]interface{}, len(t.InputSchema.Properties))
	for name, prop := range t.InputSchema.Properties {
		props[name] = schemaPropertyMap(prop)
	}
	return mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   t.InputSchema.Required,
		},
	}
}

func schemaPropertyMap(p domain.JSONSchemaProps) map[string]interface{} {
	m := map[string]interface{}{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.Default != nil {
		m["default"] = p.Default
	}
	if p.Format != "" {
		m["format"] = p.Format
	}
	if p.Minimum != nil {
		m["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		m["maximum"] = *p.Maximum
	}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	if p.Items != nil {
		m["items"] = schemaPropertyMap(*p.Items)
	}
	if len(p.Properties) > 0 {
		nested := make(map[string]interface{}, len(p.Properties))
		for name, sub := range p.Properties {
			nested[name] = schemaPropertyMap(sub)
		}
		m["properties"] = nested
	}
	if len(p.Required) > 0 {
		m["required"] = p.Required
	}
	return m
}
