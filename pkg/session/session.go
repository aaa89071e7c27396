// Package session keeps the registry of live interpreter instances for
// the served mode. Each session owns one interpreter; sessions are keyed
// by uuid and reaped after sitting idle.
package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/journich/altairbasic/pkg/basic"
	"github.com/journich/altairbasic/pkg/configuration"
	"github.com/journich/altairbasic/pkg/logger"
)

// ErrNotFound is returned when a session id is unknown or already reaped.
var ErrNotFound = errors.New("session not found")

// Session is one live interpreter bound to a user.
type Session struct {
	ID       string
	Username string
	Interp   *basic.Interp

	mu       sync.Mutex
	lastUsed time.Time
}

// Touch marks the session as active.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// IdleSince reports how long the session has been unused.
func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

// Manager is the session registry.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
}

// Create builds a fresh interpreter session for username. The interpreter
// reads from in and writes to out (in served mode, the websocket bridge).
func (m *Manager) Create(username string, in io.Reader, out io.Writer) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Username: username,
		Interp:   basic.FromConfiguration(in, out),
		lastUsed: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	logger.Info(logger.AreaSession, "session %s created for %q", s.ID, username)
	return s
}

// Get fetches a session by id and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove stops and drops one session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Interp.Interrupt()
		logger.Info(logger.AreaSession, "session %s removed", id)
	}
}

// SweepIdle removes every session idle longer than maxIdle and reports
// how many went.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	now := time.Now()
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.IdleSince(now) > maxIdle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		m.Remove(id)
	}
	if len(stale) > 0 {
		logger.Debug(logger.AreaSession, "swept %d idle sessions", len(stale))
	}
	return len(stale)
}

// StartSweeper runs the idle sweep on the configured interval until Stop.
func (m *Manager) StartSweeper() {
	idle := configuration.GetDuration("Server", "session_idle_timeout", 30*time.Minute)
	every := configuration.GetDuration("Server", "session_sweep_every", 5*time.Minute)
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepIdle(idle)
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop shuts the sweeper down.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
