package mcp

import (
	"context"
	"fmt"

	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/pkg/tools"
)

// ToolRegistry binds the tool types to a use case and registers them
type ToolRegistry struct {
	registry *tools.Registry
	factory  *ToolTypeFactory
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(registry *tools.Registry) *ToolRegistry {
	return &ToolRegistry{
		registry: registry,
		factory:  NewToolTypeFactory(),
	}
}

// RegisterAllTools registers every tool against useCase
func (tr *ToolRegistry) RegisterAllTools(useCase UseCaseProvider) error {
	for _, toolType := range tr.factory.GetAllToolTypes() {
		tt := toolType
		err := tr.registry.RegisterTool(&tools.Tool{
			Name:        tt.GetName(),
			Description: tt.GetDescription(),
			Args:        tt.Args(),
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return tt.HandleRequest(ctx, params, useCase)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tt.GetName(), err)
		}
		logger.Debug("Registered tool %s", tt.GetName())
	}
	logger.Info("Registered %d tools", len(tr.factory.GetAllToolTypes()))
	return nil
}
