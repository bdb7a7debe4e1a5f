// Package mcphttp provides the admin HTTP endpoints that sit next to the MCP
// SSE transport: health, catalog inspection, and direct tool invocation.
package mcphttp

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/i2y/papermcp/internal/domain"
	"github.com/i2y/papermcp/internal/usecase"
	"github.com/i2y/papermcp/pkg/shared/toolwire"
)

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	listToolsUseCase  *usecase.ListToolsUseCase
	invokeToolUseCase *usecase.InvokeToolUseCase
	logger            *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	listUC *usecase.ListToolsUseCase,
	invokeUC *usecase.InvokeToolUseCase,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		listToolsUseCase:  listUC,
		invokeToolUseCase: invokeUC,
		logger:            logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for the admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /admin/tools", h.handleListTools)
	mux.HandleFunc("POST /admin/invoke", h.handleInvokeTool)
}

// handleHealth implements GET /health
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// handleListTools implements GET /admin/tools
// It returns the ordered tool catalog as a JSON array.
func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.listToolsUseCase.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to list tools: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(catalog); err != nil {
		h.logger.Error("Failed to encode catalog", slog.Any("error", err))
	}
}

// InvokeRequest defines the expected JSON body for the /admin/invoke endpoint.
type InvokeRequest struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// handleInvokeTool implements POST /admin/invoke
// The response body is always a toolwire envelope; the HTTP status mirrors
// the error kind.
func (h *Handlers) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode invoke request body", slog.Any("error", err))
		writeEnvelope(w, http.StatusBadRequest,
			toolwire.Failure(domain.KindValidation, fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	if req.ToolName == "" {
		h.logger.Warn("Invoke request missing tool_name field")
		writeEnvelope(w, http.StatusBadRequest,
			toolwire.Failure(domain.KindValidation, "missing 'tool_name' field in request body"))
		return
	}

	h.logger.Info("Received invoke request", slog.String("tool_name", req.ToolName))
	result, err := h.invokeToolUseCase.Execute(r.Context(), req.ToolName, req.Arguments)
	if err != nil {
		h.logger.Warn("Tool invocation failed", slog.String("tool_name", req.ToolName), slog.Any("error", err))
		writeEnvelope(w, statusForKind(domain.KindOf(err)), toolwire.FromError(err))
		return
	}

	writeEnvelope(w, http.StatusOK, toolwire.Success(result))
}

func writeEnvelope(w http.ResponseWriter, status int, env toolwire.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, env.Encode())
}

// statusForKind maps taxonomy kinds onto admin HTTP status codes.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUpstream, domain.KindConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
