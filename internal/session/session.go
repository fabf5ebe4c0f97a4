package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventCallback delivers one event to the client. The SSE transport writes
// an event frame; stdio writes a line.
type EventCallback func(event string, data []byte) error

// Session represents a client session
type Session struct {
	ID             string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Connected      bool
	Initialized    bool
	EventCallback  EventCallback
	ctx            context.Context
	cancel         context.CancelFunc
	Capabilities   map[string]interface{}
	inflight       map[string]context.CancelFunc
	mu             sync.Mutex
}

// Manager manages client sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Common session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("session not connected")
)

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates a new session
func (m *Manager) CreateSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	session := &Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		LastAccessedAt: now,
		Capabilities:   make(map[string]interface{}),
		inflight:       make(map[string]context.CancelFunc),
		ctx:            ctx,
		cancel:         cancel,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// GetSession gets a session by ID
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	session.mu.Lock()
	session.LastAccessedAt = time.Now()
	session.mu.Unlock()

	return session, nil
}

// RemoveSession removes a session by ID
func (m *Manager) RemoveSession(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		session.close()
	}
}

// Count returns the number of sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupSessions removes disconnected sessions idle for longer than maxAge
// and returns how many were removed.
func (m *Manager) CleanupSessions(maxAge time.Duration) int {
	m.mu.Lock()
	var stale []*Session
	now := time.Now()
	for id, session := range m.sessions {
		session.mu.Lock()
		lastAccess := session.LastAccessedAt
		connected := session.Connected
		session.mu.Unlock()

		if !connected && now.Sub(lastAccess) > maxAge {
			stale = append(stale, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range stale {
		session.close()
	}
	return len(stale)
}

// CloseAll removes every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
}

// Connect attaches an event sink to the session. The session disconnects
// when parent is done.
func (s *Session) Connect(parent context.Context, callback EventCallback) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx = ctx
	s.cancel = cancel
	s.EventCallback = callback
	s.Connected = true
	s.LastAccessedAt = time.Now()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.disconnectIfCurrent(ctx)
	}()
}

// SendEvent sends an event to the client
func (s *Session) SendEvent(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Connected || s.EventCallback == nil {
		return ErrNotConnected
	}
	return s.EventCallback(event, data)
}

// SetCapabilities sets the session capabilities
func (s *Session) SetCapabilities(capabilities map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range capabilities {
		s.Capabilities[k] = v
	}
}

// GetCapability gets a session capability
func (s *Session) GetCapability(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.Capabilities[key]
	return val, ok
}

// Context returns the session context
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// IsConnected reports whether an event sink is attached
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Connected
}

// Disconnect detaches the event sink
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Connected = false
	s.EventCallback = nil
}

func (s *Session) disconnectIfCurrent(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != ctx {
		return
	}
	s.Connected = false
	s.EventCallback = nil
}

func (s *Session) close() {
	s.mu.Lock()
	cancel := s.cancel
	inflight := s.inflight
	s.inflight = make(map[string]context.CancelFunc)
	s.Connected = false
	s.EventCallback = nil
	s.mu.Unlock()

	for _, c := range inflight {
		c()
	}
	if cancel != nil {
		cancel()
	}
}

// SetInitialized marks the session as initialized
func (s *Session) SetInitialized(initialized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Initialized = initialized
}

// IsInitialized returns whether the session has been initialized
func (s *Session) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Initialized
}

// requestKey normalizes a JSON-RPC id so 7 and 7.0 match
func requestKey(id interface{}) string {
	data, err := json.Marshal(id)
	if err != nil {
		return ""
	}
	return string(data)
}

// TrackRequest records the cancel function of an in-flight request. The
// returned func untracks it.
func (s *Session) TrackRequest(id interface{}, cancel context.CancelFunc) func() {
	key := requestKey(id)
	s.mu.Lock()
	if s.inflight == nil {
		s.inflight = make(map[string]context.CancelFunc)
	}
	s.inflight[key] = cancel
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}
}

// CancelRequest cancels an in-flight request and reports whether it was found
func (s *Session) CancelRequest(id interface{}) bool {
	key := requestKey(id)
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	delete(s.inflight, key)
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}
