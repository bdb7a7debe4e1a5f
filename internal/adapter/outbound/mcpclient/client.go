// Package mcpclient connects the agent to a papermcp server over stdio or
// SSE and maps transport failures onto the domain error taxonomy.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	mcpGoClient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/papermcp/internal/domain"
)

const (
	transportStdio = "stdio"
	transportSSE   = "sse"
)

// Client wraps an mcp-go client session. Calls are bounded by a per-call
// timeout; an expired bound surfaces as a timeout error and the client stays
// usable for further calls or a fresh Connect.
type Client struct {
	mcp       *mcpGoClient.Client
	transport string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewStdio spawns the server command and prepares a stdio session with it.
// The process is started immediately; the MCP handshake happens in Connect.
func NewStdio(command string, env []string, args []string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	c, err := mcpGoClient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, domain.ConnectionError(err, "failed to start MCP server process %q", command)
	}
	return newClient(c, transportStdio, timeout, logger), nil
}

// NewSSE prepares an SSE session against baseURL (e.g.
// "http://localhost:8080/sse"). Nothing is dialed until Connect.
func NewSSE(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	c, err := mcpGoClient.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, domain.ConnectionError(err, "failed to create SSE client for %s", baseURL)
	}
	return newClient(c, transportSSE, timeout, logger), nil
}

func newClient(c *mcpGoClient.Client, transport string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		mcp:       c,
		transport: transport,
		timeout:   timeout,
		logger:    logger.With("component", "mcp_client", "transport", transport),
	}
}

// Connect opens the transport where needed and performs the MCP initialize
// handshake. An unreachable server is a connection error; the caller may
// retry with a fresh Connect.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	// The stdio transport is live as soon as the process is spawned; SSE
	// needs an explicit stream open.
	if c.transport == transportSSE {
		if err := c.mcp.Start(ctx); err != nil {
			return domain.ConnectionError(err, "failed to open SSE stream")
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "papermcp-agent",
		Version: "0.1.0",
	}

	res, err := c.mcp.Initialize(ctx, initReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.TimeoutError("MCP initialize timed out after %s", c.timeout)
		}
		return domain.ConnectionError(err, "MCP initialize failed")
	}

	c.logger.InfoContext(ctx, "Connected to MCP server",
		slog.String("server_name", res.ServerInfo.Name),
		slog.String("server_version", res.ServerInfo.Version))
	return nil
}

// Discover fetches the server's tool catalog.
func (c *Client) Discover(ctx context.Context) (domain.Catalog, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.TimeoutError("tools/list timed out after %s", c.timeout)
		}
		return nil, domain.ConnectionError(err, "tools/list failed")
	}

	catalog := make(domain.Catalog, 0, len(res.Tools))
	for _, t := range res.Tools {
		catalog = append(catalog, toDomainTool(t))
	}
	c.logger.DebugContext(ctx, "Discovered tools", slog.Int("count", len(catalog)))
	return catalog, nil
}

// Call invokes a tool and returns the text content of the result, which for
// a papermcp server is a toolwire envelope. A failed invocation is data the
// model should see, not an error; only transport-level problems return one.
func (c *Client) Call(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	c.logger.InfoContext(ctx, "Calling tool", slog.String("tool_name", name))
	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.TimeoutError("tool call %q timed out after %s", name, c.timeout)
		}
		return "", domain.ConnectionError(err, "tool call %q failed", name)
	}
	return textFromResult(res), nil
}

// Close tears down the session. For stdio this also terminates the child
// server process.
func (c *Client) Close() error {
	return c.mcp.Close()
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// toDomainTool converts the wire tool into the domain descriptor. The input
// schema travels as JSON either way, so a round trip is the simplest exact
// mapping.
func toDomainTool(t mcp.Tool) domain.Tool {
	tool := domain.Tool{
		Name:        t.Name,
		Description: t.Description,
	}
	if data, err := json.Marshal(t.InputSchema); err == nil {
		_ = json.Unmarshal(data, &tool.InputSchema)
	}
	return tool
}

func textFromResult(res *mcp.CallToolResult) string {
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
