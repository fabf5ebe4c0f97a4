// Package transport carries JSON-RPC messages between MCP clients and the
// request handler over stdio or HTTP server-sent events.
package transport

import (
	"context"
	"encoding/json"

	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/session"
	"github.com/FreePeak/json-db-mcp-server/pkg/jsonrpc"
)

// RequestHandler answers one JSON-RPC request. It returns nil for
// notifications.
type RequestHandler interface {
	Handle(ctx context.Context, sess *session.Session, req *jsonrpc.Request) *jsonrpc.Response
}

// Transport serves MCP clients until the context is cancelled or the peer
// goes away.
type Transport interface {
	Serve(ctx context.Context) error
}

// process parses one raw message and runs it through the handler. The
// returned bytes are the encoded response, or nil when nothing must be sent.
func process(ctx context.Context, handler RequestHandler, sess *session.Session, raw []byte) []byte {
	req, rpcErr := jsonrpc.ParseRequest(raw)
	var resp *jsonrpc.Response
	if rpcErr != nil {
		logger.Error("Failed to parse JSON-RPC request: %v", rpcErr)
		resp = jsonrpc.NewResponse(req, nil, rpcErr)
	} else {
		logger.Info("Processing request: method=%s, id=%v", req.Method, req.ID)
		resp = handler.Handle(ctx, sess, req)
	}
	if resp == nil {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("Failed to marshal response: %v", err)
		data, _ = json.Marshal(jsonrpc.NewResponse(req, nil, jsonrpc.InternalError("failed to marshal response")))
	}
	return data
}
