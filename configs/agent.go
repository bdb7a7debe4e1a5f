package configs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/i2y/papermcp/internal/domain"
)

// AgentConfig holds configuration for the conversational agent CLI. Fields
// are loaded from environment variables with the prefix "PAPERMCP_AGENT_".
// Provider API keys are read separately by the provider factory
// (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY).
type AgentConfig struct {
	// Provider selects the LLM backend: anthropic, openai, or gemini.
	Provider string `envconfig:"PROVIDER" default:"anthropic"`

	// Model overrides the provider's default model.
	Model string `envconfig:"MODEL"`

	// Transport selects how the agent reaches the server: "sse" dials
	// ServerURL, "stdio" spawns ServerCommand with ServerArgs.
	Transport     string   `envconfig:"TRANSPORT" default:"sse"`
	ServerURL     string   `envconfig:"SERVER_URL" default:"http://localhost:8080/sse"`
	ServerCommand string   `envconfig:"SERVER_COMMAND" default:"papermcp"`
	ServerArgs    []string `envconfig:"SERVER_ARGS" default:"-transport,stdio"`

	// RequestTimeout bounds each MCP call; a timed-out tool call is
	// reported to the model, and the session continues.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`

	MaxToolTurns int     `envconfig:"MAX_TOOL_TURNS" default:"10"`
	MaxRetries   int     `envconfig:"MAX_RETRIES" default:"3"`
	MaxTokens    int     `envconfig:"MAX_TOKENS" default:"4096"`
	Temperature  float64 `envconfig:"TEMPERATURE" default:"0"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *AgentConfig) ParsedLogLevel() slog.Level {
	return parseLogLevel(c.LogLevel)
}

// ResolvedModel returns the configured model, or the provider's default.
func (c *AgentConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "openai":
		return "gpt-4o"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return "claude-3-5-sonnet-20241022"
	}
}

// Validate checks field combinations that envconfig cannot express.
func (c *AgentConfig) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini":
	default:
		return domain.ConfigError("unsupported provider %q (want anthropic, openai, or gemini)", c.Provider)
	}
	switch c.Transport {
	case "sse", "stdio":
	default:
		return domain.ConfigError("unsupported transport %q (want sse or stdio)", c.Transport)
	}
	if c.Transport == "sse" && c.ServerURL == "" {
		return domain.ConfigError("server URL cannot be empty for the sse transport")
	}
	if c.Transport == "stdio" && c.ServerCommand == "" {
		return domain.ConfigError("server command cannot be empty for the stdio transport")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return domain.ConfigError("temperature must be between 0 and 1, got %v", c.Temperature)
	}
	return nil
}

// LoadAgent loads and validates the agent configuration from the environment.
func LoadAgent() (*AgentConfig, error) {
	var cfg AgentConfig
	if err := envconfig.Process("papermcp_agent", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
