package transport

import (
	"context"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/session"
	"github.com/FreePeak/json-db-mcp-server/pkg/jsonrpc"
)

// echoHandler answers every request with its method and records the calls.
type echoHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *echoHandler) Handle(ctx context.Context, sess *session.Session, req *jsonrpc.Request) *jsonrpc.Response {
	h.mu.Lock()
	h.calls = append(h.calls, req.Method)
	h.mu.Unlock()

	if req.IsNotification() {
		return nil
	}
	if req.Method == "fail" {
		return jsonrpc.NewResponse(req, nil, jsonrpc.MethodNotFoundError(req.Method))
	}
	return jsonrpc.NewResponse(req, map[string]interface{}{"method": req.Method, "session": sess.ID}, nil)
}

func (h *echoHandler) methods() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}
