package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/json-db-mcp-server/internal/session"
)

type sseEvent struct {
	name string
	data string
}

// readEvents parses the event stream into a channel.
func readEvents(body io.Reader) <-chan sseEvent {
	events := make(chan sseEvent, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(body)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				events <- ev
				ev = sseEvent{}
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func newTestSSE(t *testing.T) (*httptest.Server, *session.Manager, *echoHandler) {
	t.Helper()
	manager := session.NewManager()
	handler := &echoHandler{}
	tr := NewSSETransport(manager, handler, "", "")
	srv := httptest.NewServer(tr.Handler())
	t.Cleanup(func() {
		manager.CloseAll()
		srv.Close()
	})
	return srv, manager, handler
}

func connect(t *testing.T, srv *httptest.Server) (string, <-chan sseEvent) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(resp.Body)
	ev := nextEvent(t, events)
	require.Equal(t, "endpoint", ev.name)
	require.True(t, strings.HasPrefix(ev.data, "/message?sessionId="), ev.data)
	return ev.data, events
}

func TestSSERoundTrip(t *testing.T) {
	srv, manager, _ := newTestSSE(t)
	endpoint, events := connect(t, srv)
	assert.Equal(t, 1, manager.Count())

	resp, err := http.Post(srv.URL+endpoint, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var echoed map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &echoed))
	assert.Equal(t, "tools/list", echoed["result"].(map[string]interface{})["method"])

	ev := nextEvent(t, events)
	assert.Equal(t, "message", ev.name)
	assert.JSONEq(t, string(body), ev.data)
}

func TestSSENotificationAccepted(t *testing.T) {
	srv, _, handler := newTestSSE(t)
	endpoint, _ := connect(t, srv)

	resp, err := http.Post(srv.URL+endpoint, "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"notifications/initialized"}, handler.methods())
}

func TestSSEMessageErrors(t *testing.T) {
	srv, _, _ := newTestSSE(t)
	endpoint, _ := connect(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"MissingSession", http.MethodPost, "/message", `{}`, http.StatusBadRequest},
		{"UnknownSession", http.MethodPost, "/message?sessionId=nope", `{}`, http.StatusNotFound},
		{"WrongMethod", http.MethodGet, endpoint, ``, http.StatusMethodNotAllowed},
		{"ParseError", http.MethodPost, endpoint, `{broken`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestSSEHeartbeat(t *testing.T) {
	manager := session.NewManager()
	tr := NewSSETransport(manager, &echoHandler{}, "", "")
	tr.SetHeartbeatInterval(10 * time.Millisecond)
	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()
	defer manager.CloseAll()

	_, events := connect(t, srv)
	ev := nextEvent(t, events)
	assert.Equal(t, "heartbeat", ev.name)
	assert.Contains(t, ev.data, `"type":"heartbeat"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestSSE(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
