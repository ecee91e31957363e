package session

import (
	"sync"
	"time"

	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

// Turn is one exchange half within a session's recent context window
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Session holds the in-memory state of one user: the recent conversation
// window, the last math result and the rate limiter.
type Session struct {
	UserID string

	mu         sync.Mutex
	turns      []Turn
	maxTurns   int
	lastResult float64
	hasResult  bool
	limiter    *Limiter
	lastSeen   time.Time
}

// LastResult returns the last math result, if any
func (s *Session) LastResult() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.hasResult
}

// SetLastResult stores a math result for continuations
func (s *Session) SetLastResult(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = v
	s.hasResult = true
}

// AppendTurn adds a turn to the context window, dropping the oldest when
// the window is full.
func (s *Session) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, Turn{Role: role, Content: content})
	if len(s.turns) > s.maxTurns {
		s.turns = s.turns[len(s.turns)-s.maxTurns:]
	}
}

// Turns returns a copy of the current context window
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Allow checks the session's rate limit for a request at now
func (s *Session) Allow(now time.Time) bool {
	return s.limiter.Allow(now)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Config holds session manager configuration
type Config struct {
	MaxSessions   int
	Timeout       time.Duration
	SweepInterval time.Duration
	RateLimit     int
	RateWindow    time.Duration
	ContextTurns  int
}

// DefaultConfig returns the default session limits
func DefaultConfig() Config {
	return Config{
		MaxSessions:   1000,
		Timeout:       time.Hour,
		SweepInterval: 5 * time.Minute,
		RateLimit:     30,
		RateWindow:    time.Minute,
		ContextTurns:  6,
	}
}

// Manager owns all live sessions and expires idle ones in the background
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	logger   *logging.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager and starts the sweep loop
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = def.ContextTurns
	}

	m := &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logging.New("session-manager"),
		stop:     make(chan struct{}),
	}

	go m.sweepLoop()

	return m
}

// Get returns the user's session, creating one when none exists. At the
// session cap the stalest session is evicted first.
func (m *Manager) Get(userID string) *Session {
	now := time.Now()

	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		sess.touch(now)
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[userID]; ok {
		sess.touch(now)
		return sess
	}

	if len(m.sessions) >= m.cfg.MaxSessions {
		m.evictStalest()
	}

	sess = &Session{
		UserID:   userID,
		maxTurns: m.cfg.ContextTurns,
		limiter:  NewLimiter(m.cfg.RateLimit, m.cfg.RateWindow),
		lastSeen: now,
	}
	m.sessions[userID] = sess
	return sess
}

// evictStalest removes the least recently seen session. Caller holds the
// write lock.
func (m *Manager) evictStalest() {
	var stalest string
	var oldest time.Time
	for id, sess := range m.sessions {
		seen := sess.seen()
		if stalest == "" || seen.Before(oldest) {
			stalest = id
			oldest = seen
		}
	}
	if stalest != "" {
		delete(m.sessions, stalest)
		m.logger.Warn("Session cap reached, evicted stalest session", "user", stalest)
	}
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// sweepLoop periodically removes idle sessions
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.removeExpired(time.Now()); removed > 0 {
				m.logger.Info("Expired idle sessions", "count", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// removeExpired deletes sessions idle longer than the timeout and
// returns how many were removed.
func (m *Manager) removeExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.seen()) > m.cfg.Timeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Close stops the sweep loop
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}
