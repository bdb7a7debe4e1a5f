package agent

import (
	"context"
	"encoding/json"
	"os"

	"github.com/i2y/papermcp/internal/domain"
)

// LLMProvider is an interface for LLM API providers.
type LLMProvider interface {
	// Call makes an LLM API call.
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name.
	Provider() string
}

// LLMRequest contains the request parameters for an LLM call. Tools is the
// MCP tool catalog; each provider converts it to its own wire format.
type LLMRequest struct {
	Model        string
	Messages     []Message
	Tools        domain.Catalog
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// LLMResponse contains the response from an LLM.
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// NewProvider creates an LLM provider by name. The API key is read from the
// provider's conventional environment variable; a missing key is a
// configuration error.
func NewProvider(ctx context.Context, provider string) (LLMProvider, error) {
	switch provider {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, domain.ConfigError("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropicProvider(key), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, domain.ConfigError("OPENAI_API_KEY is not set")
		}
		return NewOpenAIProvider(key), nil
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, domain.ConfigError("GEMINI_API_KEY is not set")
		}
		return NewGeminiProvider(ctx, key)
	default:
		return nil, domain.ConfigError("unsupported provider %q (want anthropic, openai, or gemini)", provider)
	}
}

// schemaMap renders a tool input schema as the generic map shape the provider
// SDKs accept. The schema is plain data either way, so a JSON round trip is
// the exact conversion.
func schemaMap(schema domain.JSONSchemaProps) map[string]interface{} {
	out := map[string]interface{}{}
	if data, err := json.Marshal(schema); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

// schemaProperties renders just the properties block of an input schema.
func schemaProperties(schema domain.JSONSchemaProps) map[string]interface{} {
	out := map[string]interface{}{}
	if data, err := json.Marshal(schema.Properties); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}
