// Package resources owns per-session interpreters and the limits placed on
// them.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/turtleterm/pkg/canvas"
	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/shared"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is one connected client with its own interpreter.
type Session struct {
	ID           string
	Username     string
	IPAddress    string
	CreatedAt    time.Time
	Interpreter  *turtle.Interpreter
	Output       chan shared.Message
	Canvas       *canvas.MessageCanvas
	lastActivity int64 // unix nanos, guarded by mu
	runs         int64

	mu        sync.Mutex
	cancelRun context.CancelFunc
	limits    ScriptLimits
}

// SessionManager tracks sessions by id.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxPerIP    int
	idleTimeout time.Duration
	bufferSize  int
	limits      ScriptLimits
}

// NewSessionManager reads limits from the [Security], [Network] and
// [Interpreter] sections.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxPerIP:    configuration.GetInt("Security", "max_sessions_per_ip", 5),
		idleTimeout: configuration.GetDuration("Security", "session_idle_timeout", 30*time.Minute),
		bufferSize:  configuration.GetInt("Network", "max_channel_buffer", 10000),
		limits:      DefaultScriptLimits(),
	}
}

// RegisterSession returns the session for sessionID, creating it if needed.
func (m *SessionManager) RegisterSession(sessionID, username, ipAddress string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		s.touch()
		logger.SessionDebug("session %s resumed (user %s, ip %s)", sessionID, username, ipAddress)
		return s, nil
	}

	perIP := 0
	for _, s := range m.sessions {
		if s.IPAddress == ipAddress {
			perIP++
		}
	}
	if m.maxPerIP > 0 && perIP >= m.maxPerIP {
		logger.SessionWarn("session limit reached for %s (%d)", ipAddress, perIP)
		return nil, fmt.Errorf("%w: %d sessions from %s", ErrTooManySessions, perIP, ipAddress)
	}

	out := make(chan shared.Message, m.bufferSize)
	mc := canvas.NewMessageCanvas(out, sessionID)
	it := turtle.NewInterpreter(mc)
	it.SetSessionID(sessionID)

	s := &Session{
		ID:          sessionID,
		Username:    username,
		IPAddress:   ipAddress,
		CreatedAt:   time.Now(),
		Interpreter: it,
		Output:      out,
		Canvas:      mc,
		limits:      m.limits,
	}
	s.touch()
	m.sessions[sessionID] = s

	logger.SessionInfo("session %s registered (user %s, ip %s)", sessionID, username, ipAddress)
	return s, nil
}

// UnregisterSession stops any running script and forgets the session.
func (m *SessionManager) UnregisterSession(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.Stop()
	logger.SessionInfo("session %s unregistered after %v (%d runs)",
		sessionID, time.Since(s.CreatedAt).Round(time.Second), s.Runs())
	return nil
}

// GetSession returns a registered session.
func (m *SessionManager) GetSession(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupInactiveSessions drops sessions idle for longer than maxIdle and
// returns how many were removed.
func (m *SessionManager) CleanupInactiveSessions(maxIdle time.Duration) int {
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.IdleFor() > maxIdle {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if m.UnregisterSession(id) == nil {
			removed++
		}
	}
	if removed > 0 {
		logger.SessionInfo("cleaned up %d inactive sessions", removed)
	}
	return removed
}

// StartPeriodicCleanup removes idle sessions until ctx is done.
func (m *SessionManager) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupInactiveSessions(m.idleTimeout)
			}
		}
	}()
}

// GetSessionStats summarises the live sessions.
func (m *SessionManager) GetSessionStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs int64
	ips := make(map[string]bool)
	users := make(map[string]bool)
	for _, s := range m.sessions {
		runs += s.Runs()
		ips[s.IPAddress] = true
		users[s.Username] = true
	}
	return map[string]interface{}{
		"total_sessions": len(m.sessions),
		"total_runs":     runs,
		"unique_ips":     len(ips),
		"unique_users":   len(users),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UnixNano()
	s.mu.Unlock()
}

// IdleFor returns the time since the last activity.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(time.Unix(0, s.lastActivity))
}

// Runs returns how many scripts the session has started.
func (s *Session) Runs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Run executes script on the session's interpreter. A fresh run resets
// all interpreter state first; otherwise the script continues on top of
// what earlier runs defined. A run still in progress is cancelled.
func (s *Session) Run(ctx context.Context, script string, fresh bool) error {
	if err := s.limits.Check(script); err != nil {
		return err
	}

	ctx, cancel := s.startRun(ctx)
	defer cancel()

	if fresh {
		return s.Interpreter.Execute(ctx, script)
	}
	return s.Interpreter.Continue(ctx, script)
}

// Invoke calls a method defined by an earlier run.
func (s *Session) Invoke(ctx context.Context, name string, args []float64) error {
	ctx, cancel := s.startRun(ctx)
	defer cancel()
	return s.Interpreter.Invoke(ctx, name, args...)
}

func (s *Session) startRun(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.cancelRun = cancel
	s.runs++
	s.lastActivity = time.Now().UnixNano()
	return ctx, cancel
}

// Stop cancels the running script, if any.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
}
