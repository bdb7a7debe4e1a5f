package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/papermcp/internal/domain"
)

// ListToolsUseCase handles the logic for serving the tool catalog.
type ListToolsUseCase struct {
	registry ToolRegistry
	logger   *slog.Logger
}

// NewListToolsUseCase creates a new use case for listing tools.
func NewListToolsUseCase(registry ToolRegistry, logger *slog.Logger) *ListToolsUseCase {
	return &ListToolsUseCase{
		registry: registry,
		logger:   logger.With("usecase", "ListTools"),
	}
}

// Execute retrieves the catalog of all registered tools, in registration order.
func (uc *ListToolsUseCase) Execute(ctx context.Context) (domain.Catalog, error) {
	uc.logger.DebugContext(ctx, "Executing ListTools use case")

	catalog, err := uc.registry.List(ctx)
	if err != nil {
		uc.logger.ErrorContext(ctx, "Failed to list tools from registry", slog.Any("error", err))
		return nil, fmt.Errorf("failed to retrieve tools: %w", err)
	}

	uc.logger.DebugContext(ctx, "Successfully retrieved tools", slog.Int("count", len(catalog)))
	return catalog, nil
}
