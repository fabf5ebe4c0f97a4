package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/session"
	"github.com/FreePeak/json-db-mcp-server/pkg/jsonrpc"
)

const (
	// SSE Headers
	headerContentType               = "Content-Type"
	headerCacheControl              = "Cache-Control"
	headerConnection                = "Connection"
	headerAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
	headerAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	headerAccessControlAllowMethods = "Access-Control-Allow-Methods"

	// SSE Content type
	contentTypeEventStream = "text/event-stream"
	contentTypeJSON        = "application/json"

	// DefaultHeartbeatInterval is how often idle streams get a heartbeat event
	DefaultHeartbeatInterval = 30 * time.Second
	// DefaultCleanupInterval is how often stale sessions are reaped
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultSessionMaxAge is how long a session may stay idle
	DefaultSessionMaxAge = 30 * time.Minute

	maxBodySize = 16 * 1024 * 1024
)

// SSETransport implements the SSE transport for the MCP server
type SSETransport struct {
	sessionManager    *session.Manager
	handler           RequestHandler
	basePath          string
	addr              string
	heartbeatInterval time.Duration
	cleanupInterval   time.Duration
	sessionMaxAge     time.Duration
}

// NewSSETransport creates a new SSE transport listening on addr
func NewSSETransport(sessionManager *session.Manager, handler RequestHandler, addr, basePath string) *SSETransport {
	return &SSETransport{
		sessionManager:    sessionManager,
		handler:           handler,
		basePath:          basePath,
		addr:              addr,
		heartbeatInterval: DefaultHeartbeatInterval,
		cleanupInterval:   DefaultCleanupInterval,
		sessionMaxAge:     DefaultSessionMaxAge,
	}
}

// SetHeartbeatInterval overrides the heartbeat period
func (t *SSETransport) SetHeartbeatInterval(d time.Duration) {
	t.heartbeatInterval = d
}

// Handler returns the HTTP routes of the transport
func (t *SSETransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(t.basePath+"/sse", t.HandleSSE)
	mux.HandleFunc(t.basePath+"/message", t.HandleMessage)
	mux.Handle(t.basePath+"/metrics", promhttp.Handler())
	return mux
}

// Serve runs the HTTP server until ctx is cancelled
func (t *SSETransport) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go t.cleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("SSE transport listening on %s", t.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("sse server: %w", err)
	case <-ctx.Done():
	}

	t.sessionManager.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down sse server: %w", err)
	}
	return nil
}

func (t *SSETransport) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := t.sessionManager.CleanupSessions(t.sessionMaxAge); n > 0 {
				logger.Info("Removed %d stale sessions", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set(headerAccessControlAllowOrigin, "*")
	w.Header().Set(headerAccessControlAllowHeaders, "Content-Type")
	w.Header().Set(headerAccessControlAllowMethods, methods)
}

// HandleSSE handles SSE connection requests
func (t *SSETransport) HandleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORSHeaders(w, "GET, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Reconnect to an existing session when the client names one
	var sess *session.Session
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		existing, err := t.sessionManager.GetSession(sessionID)
		if err == nil {
			logger.Info("Reconnecting to session %s", sessionID)
			sess = existing
		} else {
			logger.Info("Session %s not found, creating new session", sessionID)
		}
	}
	if sess == nil {
		sess = t.sessionManager.CreateSession()
		logger.Info("Created new session %s", sess.ID)
	}

	w.Header().Set(headerContentType, contentTypeEventStream)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	setCORSHeaders(w, "GET, OPTIONS")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The writer must not be touched once this handler returns
	var writeMu sync.Mutex
	finished := false
	defer func() {
		writeMu.Lock()
		finished = true
		writeMu.Unlock()
	}()

	sess.Connect(r.Context(), func(event string, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if finished {
			return session.ErrNotConnected
		}
		logger.SSEEventLog(event, sess.ID, string(data))
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			logger.Error("Error writing event to client: %v", err)
			return err
		}
		flusher.Flush()
		return nil
	})
	ctx := sess.Context()

	endpoint := fmt.Sprintf("%s/message?sessionId=%s", t.basePath, sess.ID)
	if err := sess.SendEvent("endpoint", []byte(endpoint)); err != nil {
		logger.Error("Failed to send endpoint event: %v", err)
		return
	}

	go t.startHeartbeat(ctx, sess)

	<-ctx.Done()
	logger.Info("Client disconnected: %s", sess.ID)
}

// HandleMessage handles JSON-RPC message requests. The response is sent on
// the session's event stream and echoed in the HTTP body.
func (t *SSETransport) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORSHeaders(w, "POST, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	setCORSHeaders(w, "POST, OPTIONS")

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		logger.Error("Missing sessionId parameter")
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return
	}

	sess, err := t.sessionManager.GetSession(sessionID)
	if err != nil {
		logger.Error("Session not found: %s", sessionID)
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		logger.Error("Failed to read request body: %v", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	logger.RequestLog(r.Method, r.URL.String(), sessionID, string(body))

	if _, rpcErr := jsonrpc.ParseRequest(body); rpcErr != nil && rpcErr.Code == jsonrpc.ParseErrorCode {
		data, _ := json.Marshal(jsonrpc.NewResponse(nil, nil, rpcErr))
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(data)
		return
	}

	respData := process(r.Context(), t.handler, sess, body)
	if respData == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := sess.SendEvent("message", respData); err != nil {
		logger.Debug("Response for session %s not streamed: %v", sessionID, err)
	}

	logger.ResponseLog(http.StatusOK, sessionID, string(respData))
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(respData)
}

// startHeartbeat sends periodic heartbeat events to keep the connection alive
func (t *SSETransport) startHeartbeat(ctx context.Context, sess *session.Session) {
	ticker := time.NewTicker(t.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			heartbeat := map[string]string{"type": "heartbeat", "timestamp": time.Now().Format(time.RFC3339)}
			data, err := json.Marshal(heartbeat)
			if err != nil {
				logger.Error("Failed to marshal heartbeat: %v", err)
				continue
			}

			if err := sess.SendEvent("heartbeat", data); err != nil {
				logger.Error("Failed to send heartbeat: %v", err)
				if ctx.Err() == nil {
					sess.Disconnect()
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
