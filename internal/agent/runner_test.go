package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/papermcp/internal/domain"
)

// MockLLMProvider is a mock implementation of the LLMProvider interface.
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Call(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	args := m.Called(ctx, request)
	res, _ := args.Get(0).(*LLMResponse)
	return res, args.Error(1)
}

func (m *MockLLMProvider) Provider() string {
	return "mock"
}

// MockToolClient is a mock implementation of the ToolClient interface.
type MockToolClient struct {
	mock.Mock
}

func (m *MockToolClient) Discover(ctx context.Context) (domain.Catalog, error) {
	args := m.Called(ctx)
	catalog, _ := args.Get(0).(domain.Catalog)
	return catalog, args.Error(1)
}

func (m *MockToolClient) Call(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	args := m.Called(ctx, name, params)
	return args.String(0), args.Error(1)
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		{
			Name:        "fetch_arxiv_papers",
			Description: "Retrieves the latest papers from arXiv matching a given topic.",
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"topic": {Type: "string"},
				},
				Required: []string{"topic"},
			},
		},
	}
}

func newTestRunner(t *testing.T, provider LLMProvider, tools ToolClient, cfg Config) *Runner {
	t.Helper()

	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	cfg.RetryBackoff = time.Millisecond // keep retry tests fast

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	runner, err := NewRunner(provider, tools, cfg, logger)
	require.NoError(t, err)
	return runner
}

func TestNewRunner_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	_, err := NewRunner(nil, new(MockToolClient), Config{Model: "m"}, logger)
	assert.ErrorContains(t, err, "llm provider")

	_, err = NewRunner(new(MockLLMProvider), nil, Config{Model: "m"}, logger)
	assert.ErrorContains(t, err, "tool client")

	_, err = NewRunner(new(MockLLMProvider), new(MockToolClient), Config{}, logger)
	assert.ErrorContains(t, err, "model")
}

func TestRunner_Start(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	t.Run("discovers catalog and builds system prompt", func(t *testing.T) {
		tools := new(MockToolClient)
		tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

		runner := newTestRunner(t, new(MockLLMProvider), tools, Config{})
		err := runner.Start(ctx)

		assert.NoError(err)
		assert.Equal([]string{"fetch_arxiv_papers"}, runner.Catalog().Names())
		assert.Contains(runner.systemPrompt, "fetch_arxiv_papers")
		tools.AssertExpectations(t)
	})

	t.Run("discovery failure propagates", func(t *testing.T) {
		tools := new(MockToolClient)
		tools.On("Discover", mock.Anything).Return(nil, domain.ConnectionError(fmt.Errorf("dial refused"), "tools/list failed"))

		runner := newTestRunner(t, new(MockLLMProvider), tools, Config{})
		err := runner.Start(ctx)

		assert.Error(err)
		assert.Equal(domain.KindConnection, domain.KindOf(err))
	})

	t.Run("explicit system prompt wins", func(t *testing.T) {
		tools := new(MockToolClient)
		tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

		runner := newTestRunner(t, new(MockLLMProvider), tools, Config{SystemPrompt: "custom prompt"})
		require.NoError(t, runner.Start(ctx))

		assert.Equal("custom prompt", runner.systemPrompt)
	})
}

func TestRunner_Send_PlainReply(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.MatchedBy(func(req LLMRequest) bool {
		return req.Model == "test-model" &&
			len(req.Tools) == 1 &&
			req.Tools[0].Name == "fetch_arxiv_papers"
	})).Return(&LLMResponse{
		Content: "Hello there",
		Usage:   &TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil).Once()

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	reply, err := runner.Send(ctx, "Hi")

	assert.NoError(err)
	assert.Equal("Hello there", reply)
	assert.Equal(TokenUsage{InputTokens: 10, OutputTokens: 5}, runner.Usage())
	// History holds the user prompt and the assistant reply
	require.Len(t, runner.messages, 2)
	assert.Equal("user", runner.messages[0].Role)
	assert.Equal("assistant", runner.messages[1].Role)
	provider.AssertExpectations(t)
}

func TestRunner_Send_ToolLoop(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)
	tools.On("Call", mock.Anything, "fetch_arxiv_papers", map[string]interface{}{"topic": "mcp"}).
		Return(`{"ok":true,"result":[]}`, nil).Once()

	provider := new(MockLLMProvider)
	// First turn: model asks for a tool
	provider.On("Call", mock.Anything, mock.Anything).Return(&LLMResponse{
		ToolCalls: []ToolCall{{
			ID:         "call-1",
			Name:       "fetch_arxiv_papers",
			Parameters: map[string]interface{}{"topic": "mcp"},
		}},
		Usage: &TokenUsage{InputTokens: 20, OutputTokens: 8},
	}, nil).Once()
	// Second turn: model answers from the tool result
	provider.On("Call", mock.Anything, mock.MatchedBy(func(req LLMRequest) bool {
		last := req.Messages[len(req.Messages)-1]
		return last.Role == "tool" &&
			last.ToolCallID == "call-1" &&
			last.Name == "fetch_arxiv_papers" &&
			last.Content == `{"ok":true,"result":[]}`
	})).Return(&LLMResponse{
		Content: "No recent papers found.",
		Usage:   &TokenUsage{InputTokens: 30, OutputTokens: 12},
	}, nil).Once()

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	reply, err := runner.Send(ctx, "Any new MCP papers?")

	assert.NoError(err)
	assert.Equal("No recent papers found.", reply)
	assert.Equal(TokenUsage{InputTokens: 50, OutputTokens: 20}, runner.Usage())
	tools.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestRunner_Send_ToolTimeoutFedBackAsEnvelope(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)
	tools.On("Call", mock.Anything, "fetch_arxiv_papers", mock.Anything).
		Return("", domain.TimeoutError("tool call %q timed out after %s", "fetch_arxiv_papers", time.Second)).Once()

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(&LLMResponse{
		ToolCalls: []ToolCall{{ID: "call-1", Name: "fetch_arxiv_papers", Parameters: map[string]interface{}{"topic": "mcp"}}},
	}, nil).Once()
	provider.On("Call", mock.Anything, mock.MatchedBy(func(req LLMRequest) bool {
		last := req.Messages[len(req.Messages)-1]
		return last.Role == "tool" && last.Content == `{"ok":false,"error":{"kind":"timeout","message":"tool call \"fetch_arxiv_papers\" timed out after 1s"}}`
	})).Return(&LLMResponse{Content: "The search timed out, try again later."}, nil).Once()

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	reply, err := runner.Send(ctx, "Any new MCP papers?")

	// The timeout is surfaced to the model, not to the caller
	assert.NoError(err)
	assert.Equal("The search timed out, try again later.", reply)
	provider.AssertExpectations(t)
}

func TestRunner_Send_ConnectionErrorIsTerminal(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)
	tools.On("Call", mock.Anything, "fetch_arxiv_papers", mock.Anything).
		Return("", domain.ConnectionError(fmt.Errorf("broken pipe"), "tool call %q failed", "fetch_arxiv_papers")).Once()

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(&LLMResponse{
		ToolCalls: []ToolCall{{ID: "call-1", Name: "fetch_arxiv_papers", Parameters: map[string]interface{}{"topic": "mcp"}}},
	}, nil).Once()

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	_, err := runner.Send(ctx, "Any new MCP papers?")

	assert.Error(err)
	assert.Equal(domain.KindConnection, domain.KindOf(err))
}

func TestRunner_Send_RetriesTransientLLMErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("429 rate limit exceeded")).Once()
	provider.On("Call", mock.Anything, mock.Anything).Return(&LLMResponse{Content: "recovered"}, nil).Once()

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	reply, err := runner.Send(ctx, "Hi")

	assert.NoError(err)
	assert.Equal("recovered", reply)
	provider.AssertNumberOfCalls(t, "Call", 2)
}

func TestRunner_Send_PermanentLLMErrorFailsFast(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("invalid API key"))

	runner := newTestRunner(t, provider, tools, Config{})
	require.NoError(t, runner.Start(ctx))

	_, err := runner.Send(ctx, "Hi")

	assert.ErrorContains(err, "invalid API key")
	provider.AssertNumberOfCalls(t, "Call", 1)
}

func TestRunner_Send_RetriesExhausted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)

	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("503 service unavailable"))

	runner := newTestRunner(t, provider, tools, Config{MaxRetries: 3})
	require.NoError(t, runner.Start(ctx))

	_, err := runner.Send(ctx, "Hi")

	assert.ErrorContains(err, "max retries (3) exceeded")
	provider.AssertNumberOfCalls(t, "Call", 3)
}

func TestRunner_Send_MaxToolTurnsExceeded(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tools := new(MockToolClient)
	tools.On("Discover", mock.Anything).Return(testCatalog(), nil)
	tools.On("Call", mock.Anything, "fetch_arxiv_papers", mock.Anything).Return(`{"ok":true,"result":[]}`, nil)

	// The model keeps asking for tools forever
	provider := new(MockLLMProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(&LLMResponse{
		ToolCalls: []ToolCall{{ID: "call-n", Name: "fetch_arxiv_papers", Parameters: map[string]interface{}{"topic": "mcp"}}},
	}, nil)

	runner := newTestRunner(t, provider, tools, Config{MaxToolTurns: 2})
	require.NoError(t, runner.Start(ctx))

	_, err := runner.Send(ctx, "Any new MCP papers?")

	assert.ErrorContains(err, "maximum tool turns (2) exceeded")
	provider.AssertNumberOfCalls(t, "Call", 2)
}

func TestIsRetryableError(t *testing.T) {
	t.Run("identifies retryable errors", func(t *testing.T) {
		assert.True(t, IsRetryableError(fmt.Errorf("ECONNRESET")))
		assert.True(t, IsRetryableError(fmt.Errorf("ETIMEDOUT")))
		assert.True(t, IsRetryableError(fmt.Errorf("429 rate limit")))
		assert.True(t, IsRetryableError(fmt.Errorf("500 server error")))
		assert.True(t, IsRetryableError(fmt.Errorf("502 bad gateway")))
	})

	t.Run("identifies non-retryable errors", func(t *testing.T) {
		assert.False(t, IsRetryableError(fmt.Errorf("invalid API key")))
		assert.False(t, IsRetryableError(fmt.Errorf("validation failed")))
		assert.False(t, IsRetryableError(nil))
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	assert := assert.New(t)

	prompt := BuildSystemPrompt(testCatalog())

	assert.Contains(prompt, "research assistant")
	assert.Contains(prompt, "fetch_arxiv_papers: Retrieves the latest papers")
	assert.Contains(prompt, `{"ok":true,"result":...}`)
}
