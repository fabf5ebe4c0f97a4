package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Name  string                 `json:"name" jsonschema:"description=Who to greet" validate:"required"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

type docArgs struct {
	Doc map[string]interface{} `json:"doc" validate:"required,min=1"`
}

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "Echo the name back",
		Args:        echoArgs{},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			var args echoArgs
			if err := DecodeArguments(params, &args); err != nil {
				return nil, err
			}
			return "hello " + args.Name, nil
		},
	}
}

func TestRegisterToolReflectsSchema(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterTool(echoTool("echo")))

	tool, ok := registry.GetTool("echo")
	require.True(t, ok)
	schema := tool.InputSchema
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, []interface{}{"name"}, schema["required"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	name, ok := props["name"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "Who to greet", name["description"])
	assert.Contains(t, props, "extra")
}

func TestRegisterToolWithoutArgs(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterTool(&Tool{
		Name:    "noop",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil },
	}))
	tool, _ := registry.GetTool("noop")
	assert.Equal(t, map[string]interface{}{}, tool.InputSchema["properties"])
}

func TestRegisterToolErrors(t *testing.T) {
	registry := NewRegistry()
	assert.Error(t, registry.RegisterTool(&Tool{Name: "x"}))
	assert.Error(t, registry.RegisterTool(&Tool{}))
	require.NoError(t, registry.RegisterTool(echoTool("dup")))
	assert.Error(t, registry.RegisterTool(echoTool("dup")))
}

func TestGetAllToolsSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, registry.RegisterTool(echoTool(name)))
	}
	var names []string
	for _, tool := range registry.GetAllTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestExecuteTool(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterTool(echoTool("echo")))

	out, err := registry.ExecuteTool(context.Background(), "echo", map[string]interface{}{"name": "db"})
	require.NoError(t, err)
	assert.Equal(t, "hello db", out)

	_, err = registry.ExecuteTool(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, "Unknown tool: missing", err.Error())
}

func TestDecodeArgumentsValidation(t *testing.T) {
	var args echoArgs
	err := DecodeArguments(map[string]interface{}{}, &args)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArguments))
	assert.Contains(t, err.Error(), "name is required")

	err = DecodeArguments(map[string]interface{}{"name": 12}, &args)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArguments))

	var doc docArgs
	err = DecodeArguments(map[string]interface{}{"doc": map[string]interface{}{}}, &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc must contain at least 1 entries")

	err = DecodeArguments(map[string]interface{}{"doc": "text"}, &doc)
	assert.True(t, errors.Is(err, ErrInvalidArguments))

	require.NoError(t, DecodeArguments(map[string]interface{}{"doc": map[string]interface{}{"a": 1.0}}, &doc))
	assert.Equal(t, map[string]interface{}{"a": 1.0}, doc.Doc)
}

func TestArgumentsErrorReason(t *testing.T) {
	var args echoArgs
	err := DecodeArguments(map[string]interface{}{}, &args)

	var argErr *ArgumentsError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "name is required", argErr.Reason)
	assert.Equal(t, "invalid arguments: name is required", err.Error())
}
