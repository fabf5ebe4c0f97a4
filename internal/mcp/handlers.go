package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	deliverymcp "github.com/FreePeak/json-db-mcp-server/internal/delivery/mcp"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/metrics"
	"github.com/FreePeak/json-db-mcp-server/internal/session"
	"github.com/FreePeak/json-db-mcp-server/pkg/core"
	"github.com/FreePeak/json-db-mcp-server/pkg/jsonrpc"
	"github.com/FreePeak/json-db-mcp-server/pkg/tools"
)

// DefaultToolTimeout bounds a tool call when no timeout is configured
const DefaultToolTimeout = 30 * time.Second

// Helper function to log request and response together
func logRequestResponse(req *jsonrpc.Request, sess *session.Session, response interface{}, err *jsonrpc.Error) {
	reqJSON, _ := json.Marshal(req)

	var respJSON []byte
	if err != nil {
		respJSON, _ = json.Marshal(err)
	} else {
		respJSON, _ = json.Marshal(response)
	}

	requestID := "null"
	if req.ID != nil {
		requestIDBytes, _ := json.Marshal(req.ID)
		requestID = string(requestIDBytes)
	}

	sessionID := "unknown"
	if sess != nil {
		sessionID = sess.ID
	}

	logger.RequestResponseLog(
		fmt.Sprintf("%s [ID:%s]", req.Method, requestID),
		sessionID,
		string(reqJSON),
		string(respJSON),
	)
}

// MethodHandler is a function that handles a method
type MethodHandler func(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error)

// Handler handles MCP requests
type Handler struct {
	toolRegistry   *tools.Registry
	methodHandlers map[string]MethodHandler
	timeout        time.Duration
	metrics        *metrics.Metrics
}

// Option configures a Handler
type Option func(*Handler)

// WithToolTimeout bounds every tool call
func WithToolTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithMetrics records tool calls
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a new Handler
func NewHandler(toolRegistry *tools.Registry, opts ...Option) *Handler {
	h := &Handler{
		toolRegistry: toolRegistry,
		timeout:      DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.methodHandlers = map[string]MethodHandler{
		"initialize":                h.Initialize,
		"ping":                      h.Ping,
		"tools/list":                h.ListTools,
		"tools/call":                h.ExecuteTool,
		"tools/execute":             h.ExecuteTool, // Alias for tools/call to support more clients
		"notifications/initialized": h.HandleInitialized,
		"notifications/cancelled":   h.HandleCancelled,
	}

	return h
}

// Handle dispatches one request and returns the response to send, or nil
// for notifications.
func (h *Handler) Handle(ctx context.Context, sess *session.Session, req *jsonrpc.Request) *jsonrpc.Response {
	handler, ok := h.GetMethodHandler(req.Method)
	if !ok {
		if req.IsNotification() {
			logger.Debug("Ignoring unknown notification: %s", req.Method)
			return nil
		}
		logger.Warn("Method not found: %s", req.Method)
		return jsonrpc.NewResponse(req, nil, jsonrpc.MethodNotFoundError(req.Method))
	}

	result, rpcErr := handler(ctx, req, sess)
	logRequestResponse(req, sess, result, rpcErr)

	if req.IsNotification() {
		return nil
	}
	if rpcErr == nil && result == nil {
		result = map[string]interface{}{}
	}
	return jsonrpc.NewResponse(req, result, rpcErr)
}

// Initialize handles the initialize request
func (h *Handler) Initialize(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	var params InitializeParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, jsonrpc.InvalidParamsError(err.Error())
	}

	if params.ClientInfo.Name != "" {
		logger.Info("Client connected: %s v%s (protocol %s)",
			params.ClientInfo.Name, params.ClientInfo.Version, params.ProtocolVersion)
	}

	if sess != nil {
		if params.Capabilities != nil {
			sess.SetCapabilities(params.Capabilities)
		}
		sess.SetInitialized(true)
	}

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: Implementation{
			Name:    core.Name(),
			Version: core.Version(),
		},
		Capabilities: ServerCapabilities{
			Tools: map[string]interface{}{},
		},
	}, nil
}

// Ping handles the ping request
func (h *Handler) Ping(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	return map[string]interface{}{}, nil
}

// ListTools handles the tools/list request
func (h *Handler) ListTools(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	allTools := h.toolRegistry.GetAllTools()

	result := ListToolsResult{Tools: make([]ToolInfo, 0, len(allTools))}
	for _, tool := range allTools {
		result.Tools = append(result.Tools, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	logger.Debug("Returning %d tools: %s", len(result.Tools), h.ListAvailableTools())
	return result, nil
}

// HandleInitialized handles the notifications/initialized notification
func (h *Handler) HandleInitialized(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	logger.Debug("Client finished initialization")
	return nil, nil
}

// HandleCancelled cancels an in-flight tool call of the same session
func (h *Handler) HandleCancelled(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	var params CancelledParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, jsonrpc.InvalidParamsError(err.Error())
	}
	if sess == nil || params.RequestID == nil {
		return nil, nil
	}
	if sess.CancelRequest(params.RequestID) {
		logger.Info("Cancelled request %v: %s", params.RequestID, params.Reason)
	}
	return nil, nil
}

// ExecuteTool handles the tools/call request. Tool failures never become
// JSON-RPC errors; they are returned as an error envelope.
func (h *Handler) ExecuteTool(ctx context.Context, req *jsonrpc.Request, sess *session.Session) (interface{}, *jsonrpc.Error) {
	var params CallToolParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, jsonrpc.InvalidParamsError(err.Error())
	}
	if params.Name == "" {
		return nil, jsonrpc.InvalidParamsError("missing tool name")
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if sess != nil && !req.IsNotification() {
		untrack := sess.TrackRequest(req.ID, cancel)
		defer untrack()
	}

	logger.Info("Executing tool: %s", params.Name)
	start := time.Now()
	result, err := h.callTool(ctx, params)
	resp := deliverymcp.FormatResponse(result, err)
	h.metrics.ObserveToolCall(h.metricsLabel(params.Name), resp.IsError, time.Since(start))

	if resp.IsError {
		logger.Warn("Tool %s failed: %s", params.Name, resp.Content[0].Text)
	}
	return resp, nil
}

// metricsLabel keeps the tool label set bounded by the registered tools
func (h *Handler) metricsLabel(name string) string {
	if _, ok := h.toolRegistry.GetTool(name); ok {
		return name
	}
	return metrics.UnknownTool
}

// callTool runs the tool and turns a panic into an error
func (h *Handler) callTool(ctx context.Context, params CallToolParams) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			logger.ErrorWithStack(fmt.Errorf("tool %s panicked: %v", params.Name, r))
		}
	}()
	return h.toolRegistry.ExecuteTool(ctx, params.Name, params.Arguments)
}

// ListAvailableTools returns a list of available tool names as a comma-separated string
func (h *Handler) ListAvailableTools() string {
	tools := h.toolRegistry.GetAllTools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, ", ")
}

// GetMethodHandler returns a method handler for the given method
func (h *Handler) GetMethodHandler(method string) (MethodHandler, bool) {
	handler, ok := h.methodHandlers[method]
	return handler, ok
}
