package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i2y/papermcp/internal/domain"
	"github.com/i2y/papermcp/pkg/shared/toolwire"
)

// ToolClient is the runner's view of an MCP session.
type ToolClient interface {
	Discover(ctx context.Context) (domain.Catalog, error)
	Call(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// Config holds runner tuning.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// SystemPrompt overrides the default prompt built from the catalog.
	SystemPrompt string

	// MaxToolTurns caps LLM round trips per user prompt to prevent
	// infinite tool loops. Defaults to 10.
	MaxToolTurns int

	// MaxRetries and RetryBackoff shape the LLM retry policy. Backoff
	// doubles per attempt. Defaults: 3 retries starting at 1s.
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner drives the conversation loop: user prompt in, LLM reply out, with
// tool calls resolved against the MCP server in between. A Runner holds one
// session's history and is not safe for concurrent use.
type Runner struct {
	provider LLMProvider
	tools    ToolClient
	cfg      Config
	logger   *slog.Logger

	catalog      domain.Catalog
	systemPrompt string
	messages     []Message
	usage        TokenUsage
}

// NewRunner creates a runner over a connected tool client.
func NewRunner(provider LLMProvider, tools ToolClient, cfg Config, logger *slog.Logger) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool client is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if cfg.MaxToolTurns <= 0 {
		cfg.MaxToolTurns = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}

	return &Runner{
		provider: provider,
		tools:    tools,
		cfg:      cfg,
		logger:   logger.With("component", "agent_runner", "provider", provider.Provider()),
	}, nil
}

// Start discovers the server's tool catalog and primes the system prompt.
func (r *Runner) Start(ctx context.Context) error {
	catalog, err := r.tools.Discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover tools: %w", err)
	}
	r.catalog = catalog

	r.systemPrompt = r.cfg.SystemPrompt
	if r.systemPrompt == "" {
		r.systemPrompt = BuildSystemPrompt(catalog)
	}

	r.logger.InfoContext(ctx, "Agent ready", slog.Any("tools", catalog.Names()))
	return nil
}

// Catalog returns the tool catalog discovered by Start.
func (r *Runner) Catalog() domain.Catalog {
	return r.catalog
}

// Usage returns cumulative token usage for the session.
func (r *Runner) Usage() TokenUsage {
	return r.usage
}

// Send runs one conversational turn: the prompt joins the history, the LLM
// is called, and any tool calls it makes are resolved against the server
// until it produces a plain reply.
func (r *Runner) Send(ctx context.Context, prompt string) (string, error) {
	r.messages = append(r.messages, Message{Role: "user", Content: prompt})

	for turn := 0; turn < r.cfg.MaxToolTurns; turn++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		response, err := r.callWithRetry(ctx)
		if err != nil {
			return "", err
		}
		r.usage.Add(response.Usage)

		// No tool calls - the turn is complete
		if len(response.ToolCalls) == 0 {
			r.messages = append(r.messages, Message{Role: "assistant", Content: response.Content})
			return response.Content, nil
		}

		r.messages = append(r.messages, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, tc := range response.ToolCalls {
			output, err := r.invokeTool(ctx, tc)
			if err != nil {
				return "", err
			}
			r.messages = append(r.messages, Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	return "", fmt.Errorf("maximum tool turns (%d) exceeded", r.cfg.MaxToolTurns)
}

// invokeTool calls one tool on the server. A timed-out call comes back as a
// failure envelope so the model can react and the session stays usable; a
// lost connection is terminal and surfaces as an error.
func (r *Runner) invokeTool(ctx context.Context, tc ToolCall) (string, error) {
	r.logger.DebugContext(ctx, "Invoking tool", slog.String("tool_name", tc.Name))

	output, err := r.tools.Call(ctx, tc.Name, tc.Parameters)
	if err == nil {
		return output, nil
	}
	if domain.KindOf(err) == domain.KindTimeout {
		r.logger.WarnContext(ctx, "Tool call timed out", slog.String("tool_name", tc.Name))
		return toolwire.FromError(err).Encode(), nil
	}
	return "", err
}

// callWithRetry calls the LLM with exponential backoff on transient errors.
func (r *Runner) callWithRetry(ctx context.Context) (*LLMResponse, error) {
	request := LLMRequest{
		Model:        r.cfg.Model,
		Messages:     r.messages,
		Tools:        r.catalog,
		Temperature:  r.cfg.Temperature,
		MaxTokens:    r.cfg.MaxTokens,
		SystemPrompt: r.systemPrompt,
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		response, err := r.provider.Call(ctx, request)
		if err == nil {
			return response, nil
		}
		lastErr = err

		// Don't retry on permanent errors
		if !IsRetryableError(err) {
			return nil, err
		}

		// Last attempt - don't wait
		if attempt == r.cfg.MaxRetries-1 {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		delay := r.cfg.RetryBackoff * (1 << attempt)
		r.logger.InfoContext(ctx, "Retrying LLM call after error",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.cfg.MaxRetries, lastErr)
}
