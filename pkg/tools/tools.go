package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Handler executes a tool with decoded JSON arguments
type Handler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Tool represents a tool that can be executed by the MCP server
type Tool struct {
	Name        string
	Description string
	// Args is a zero value of the argument struct. When InputSchema is nil
	// the schema is reflected from it at registration.
	Args        interface{}
	InputSchema map[string]interface{}
	Handler     Handler
}

// Registry manages the available tools
type Registry struct {
	tools map[string]*Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// RegisterTool registers a tool with the registry
func (r *Registry) RegisterTool(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return errors.New("tool must have a name")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	if tool.InputSchema == nil {
		if tool.Args != nil {
			schema, err := SchemaFor(tool.Args)
			if err != nil {
				return fmt.Errorf("tool %s: %w", tool.Name, err)
			}
			tool.InputSchema = schema
		} else {
			tool.InputSchema = emptySchema()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// GetTool gets a tool by name
func (r *Registry) GetTool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// GetAllTools gets all registered tools, sorted by name
func (r *Registry) GetAllTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	return tools
}

// ExecuteTool executes a tool with the given parameters
func (r *Registry) ExecuteTool(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	tool, ok := r.GetTool(name)
	if !ok {
		return nil, &ToolError{
			Code:    ErrToolNotFound.Code,
			Message: fmt.Sprintf("Unknown tool: %s", name),
		}
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return tool.Handler(ctx, params)
}

// ErrToolNotFound is returned when a tool is not found
var ErrToolNotFound = &ToolError{
	Code:    "tool_not_found",
	Message: "Tool not found",
}

// ToolError represents an error that occurred while executing a tool
type ToolError struct {
	Code    string
	Message string
	Data    interface{}
}

// Error returns a string representation of the error
func (e *ToolError) Error() string {
	return e.Message
}

// Is matches tool errors by code
func (e *ToolError) Is(target error) bool {
	t, ok := target.(*ToolError)
	return ok && t.Code == e.Code
}
