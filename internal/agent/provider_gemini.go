package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/i2y/papermcp/internal/domain"
)

// GeminiProvider implements LLMProvider for Google Gemini.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Provider returns the provider name.
func (p *GeminiProvider) Provider() string {
	return "gemini"
}

// Call makes an API call to Google Gemini.
func (p *GeminiProvider) Call(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	config := &genai.GenerateContentConfig{}

	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.Temperature > 0 {
		temp := float32(request.Temperature)
		config.Temperature = &temp
	}
	if len(request.Tools) > 0 {
		config.Tools = geminiTools(request.Tools)
	}

	// Convert messages to Gemini content. Gemini has no system role in the
	// history; the system prompt travels as SystemInstruction above.
	history := make([]*genai.Content, 0, len(request.Messages))
	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			continue
		case "user":
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case "assistant":
			parts := []*genai.Part{}
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Name,
						Args: tc.Parameters,
					},
				})
			}
			history = append(history, &genai.Content{Role: "model", Parts: parts})
		case "tool":
			history = append(history, &genai.Content{
				Role: "tool",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name: msg.Name,
						Response: map[string]any{
							"response": msg.Content,
						},
					},
				}},
			})
		}
	}

	response, err := p.client.Models.GenerateContent(ctx, request.Model, history, config)
	if err != nil {
		return nil, err
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content in gemini response")
	}

	// Extract content and tool calls. Gemini does not assign call IDs, so
	// they are synthesized here for correlation in the conversation history.
	content := ""
	toolCalls := []ToolCall{}

	for _, part := range response.Candidates[0].Content.Parts {
		switch {
		case part.Text != "":
			content += part.Text
		case part.FunctionCall != nil:
			toolCalls = append(toolCalls, ToolCall{
				ID:         uuid.NewString(),
				Name:       part.FunctionCall.Name,
				Parameters: part.FunctionCall.Args,
			})
		}
	}

	usage := &TokenUsage{}
	if response.UsageMetadata != nil {
		usage.InputTokens = int(response.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(response.UsageMetadata.CandidatesTokenCount)
	}

	return &LLMResponse{
		Content:   content,
		ToolCalls: toolCalls,
		Usage:     usage,
	}, nil
}

// geminiTools converts the tool catalog into Gemini function declarations.
func geminiTools(catalog domain.Catalog) []*genai.Tool {
	tools := make([]*genai.Tool, 0, len(catalog))
	for _, t := range catalog {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  geminiSchema(t.InputSchema),
		}
		tools = append(tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{decl},
		})
	}
	return tools
}

// geminiSchema converts a JSON schema into the genai schema type.
func geminiSchema(props domain.JSONSchemaProps) *genai.Schema {
	out := &genai.Schema{
		Type:        geminiType(props.Type),
		Description: props.Description,
		Required:    props.Required,
		Minimum:     props.Minimum,
		Maximum:     props.Maximum,
	}
	if len(props.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(props.Properties))
		for name, child := range props.Properties {
			out.Properties[name] = geminiSchema(child)
		}
	}
	if props.Items != nil {
		out.Items = geminiSchema(*props.Items)
	}
	for _, v := range props.Enum {
		if s, ok := v.(string); ok {
			out.Enum = append(out.Enum, s)
		}
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
