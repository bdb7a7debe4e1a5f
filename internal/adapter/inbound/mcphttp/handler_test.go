package mcphttp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/papermcp/internal/adapter/inbound/mcphttp"
	"github.com/i2y/papermcp/internal/adapter/outbound/memreg"
	"github.com/i2y/papermcp/internal/domain"
	"github.com/i2y/papermcp/internal/usecase"
	"github.com/i2y/papermcp/pkg/shared/toolwire"
)

// newTestMux wires the admin routes against a real registry with one echo
// tool registered.
func newTestMux(t *testing.T) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := memreg.NewInMemoryToolRegistry(logger)
	def := domain.ToolDefinition{
		Tool: domain.Tool{
			Name:        "echo",
			Description: "Echoes its input",
			InputSchema: domain.JSONSchemaProps{
				Type:       "object",
				Properties: map[string]domain.JSONSchemaProps{"msg": {Type: "string"}},
				Required:   []string{"msg"},
			},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"echo": args["msg"]}, nil
		},
	}
	require.NoError(t, registry.Register(def))

	listUC := usecase.NewListToolsUseCase(registry, logger)
	invokeUC := usecase.NewInvokeToolUseCase(registry, time.Second, logger)
	handlers := mcphttp.NewHandlers(listUC, invokeUC, logger)

	mux := http.NewServeMux()
	handlers.RegisterAdminRoutes(mux)
	return mux
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleListTools(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/tools", nil))

	require.Equal(http.StatusOK, rec.Code)
	assert.Equal("application/json", rec.Header().Get("Content-Type"))

	var catalog domain.Catalog
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Len(catalog, 1)
	assert.Equal("echo", catalog[0].Name)
	assert.Equal([]string{"msg"}, catalog[0].InputSchema.Required)
}

func TestHandleInvokeTool(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOK     bool
		wantKind   string
	}{
		{
			name:       "Success",
			body:       `{"tool_name":"echo","arguments":{"msg":"hi"}}`,
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "Unknown tool",
			body:       `{"tool_name":"nope","arguments":{}}`,
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "Invalid arguments",
			body:       `{"tool_name":"echo","arguments":{"msg":42}}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "Missing required argument",
			body:       `{"tool_name":"echo","arguments":{}}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "Missing tool_name",
			body:       `{"arguments":{}}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "Malformed body",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t)
			req := httptest.NewRequest(http.MethodPost, "/admin/invoke", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(tt.wantStatus, rec.Code)

			env, err := toolwire.Decode(rec.Body.Bytes())
			require.NoError(err, "every invoke response body is an envelope")
			assert.Equal(tt.wantOK, env.OK)
			if tt.wantKind != "" {
				require.NotNil(env.Error)
				assert.Equal(tt.wantKind, env.Error.Kind)
			}
		})
	}
}

func TestHandleInvokeTool_SuccessPayload(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/invoke",
		strings.NewReader(`{"tool_name":"echo","arguments":{"msg":"hello"}}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	env, err := toolwire.Decode(rec.Body.Bytes())
	require.NoError(err)
	require.True(env.OK)

	result, ok := env.Result.(map[string]interface{})
	require.True(ok)
	assert.Equal("hello", result["echo"])
}
