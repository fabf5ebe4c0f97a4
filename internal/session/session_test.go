package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) callback(event string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event+":"+string(data))
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	assert.NotNil(t, manager)
	assert.Equal(t, 0, manager.Count())
}

func TestCreateSession(t *testing.T) {
	manager := NewManager()
	session := manager.CreateSession()

	assert.NotEmpty(t, session.ID)
	assert.False(t, session.IsConnected())
	assert.False(t, session.IsInitialized())
	assert.NotNil(t, session.Capabilities)
	assert.Equal(t, 1, manager.Count())
}

func TestGetSession(t *testing.T) {
	manager := NewManager()
	session := manager.CreateSession()
	before := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	got, err := manager.GetSession(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.True(t, got.LastAccessedAt.After(before))

	_, err = manager.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRemoveSessionCancelsContext(t *testing.T) {
	manager := NewManager()
	session := manager.CreateSession()
	ctx := session.Context()

	manager.RemoveSession(session.ID)
	_, err := manager.GetSession(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("session context was not cancelled")
	}
}

func TestCleanupSessions(t *testing.T) {
	manager := NewManager()
	idle := manager.CreateSession()
	connected := manager.CreateSession()
	connected.Connect(context.Background(), (&recorder{}).callback)

	idle.mu.Lock()
	idle.LastAccessedAt = time.Now().Add(-time.Hour)
	idle.mu.Unlock()
	connected.mu.Lock()
	connected.LastAccessedAt = time.Now().Add(-time.Hour)
	connected.mu.Unlock()

	removed := manager.CleanupSessions(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, err := manager.GetSession(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = manager.GetSession(connected.ID)
	assert.NoError(t, err)
}

func TestSendEvent(t *testing.T) {
	manager := NewManager()
	session := manager.CreateSession()

	err := session.SendEvent("message", []byte("{}"))
	assert.ErrorIs(t, err, ErrNotConnected)

	rec := &recorder{}
	session.Connect(context.Background(), rec.callback)
	require.NoError(t, session.SendEvent("message", []byte(`{"a":1}`)))
	assert.Equal(t, []string{`message:{"a":1}`}, rec.all())

	session.Disconnect()
	assert.ErrorIs(t, session.SendEvent("message", nil), ErrNotConnected)
}

func TestSendEventPropagatesCallbackError(t *testing.T) {
	session := NewManager().CreateSession()
	boom := errors.New("pipe closed")
	session.Connect(context.Background(), func(string, []byte) error { return boom })
	assert.ErrorIs(t, session.SendEvent("message", nil), boom)
}

func TestConnectDisconnectsWhenParentDone(t *testing.T) {
	session := NewManager().CreateSession()
	ctx, cancel := context.WithCancel(context.Background())
	session.Connect(ctx, (&recorder{}).callback)
	assert.True(t, session.IsConnected())

	cancel()
	assert.Eventually(t, func() bool { return !session.IsConnected() }, time.Second, 5*time.Millisecond)
}

func TestReconnectKeepsNewSink(t *testing.T) {
	session := NewManager().CreateSession()
	first, cancelFirst := context.WithCancel(context.Background())
	session.Connect(first, (&recorder{}).callback)

	rec := &recorder{}
	session.Connect(context.Background(), rec.callback)
	cancelFirst()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, session.IsConnected())
	require.NoError(t, session.SendEvent("message", []byte("x")))
	assert.Len(t, rec.all(), 1)
}

func TestCapabilities(t *testing.T) {
	session := NewManager().CreateSession()

	session.SetCapabilities(map[string]interface{}{"tools": true})
	v, ok := session.GetCapability("tools")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	_, ok = session.GetCapability("missing")
	assert.False(t, ok)

	session.SetInitialized(true)
	assert.True(t, session.IsInitialized())
}

func TestTrackAndCancelRequest(t *testing.T) {
	session := NewManager().CreateSession()

	ctx, cancel := context.WithCancel(context.Background())
	untrack := session.TrackRequest(7.0, cancel)
	defer untrack()

	assert.False(t, session.CancelRequest("other"))
	assert.True(t, session.CancelRequest(7))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, session.CancelRequest(7))
}

func TestRemoveSessionCancelsInflight(t *testing.T) {
	manager := NewManager()
	session := manager.CreateSession()
	ctx, cancel := context.WithCancel(context.Background())
	session.TrackRequest("req-1", cancel)

	manager.RemoveSession(session.ID)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
