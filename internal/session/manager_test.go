package session

import (
	"fmt"
	"testing"
	"time"
)

func newTestManager(cfg Config) *Manager {
	m := NewManager(cfg)
	return m
}

func TestLimiterSlidingWindow(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow(now.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow(now.Add(3 * time.Second)) {
		t.Error("fourth request within the window should be denied")
	}

	// after the window slides past the first request, one slot opens
	if !l.Allow(now.Add(61 * time.Second)) {
		t.Error("request after window slide should be allowed")
	}
}

func TestLimiterRemaining(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	now := time.Now()

	if got := l.Remaining(now); got != 5 {
		t.Errorf("Remaining = %d, want 5", got)
	}
	l.Allow(now)
	l.Allow(now)
	if got := l.Remaining(now); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}
}

func TestSessionMathState(t *testing.T) {
	m := newTestManager(Config{})
	defer m.Close()

	sess := m.Get("alice")
	if _, ok := sess.LastResult(); ok {
		t.Error("new session should have no math result")
	}
	sess.SetLastResult(42)
	if v, ok := sess.LastResult(); !ok || v != 42 {
		t.Errorf("LastResult = (%v, %v), want (42, true)", v, ok)
	}
}

func TestSessionTurnWindow(t *testing.T) {
	m := newTestManager(Config{ContextTurns: 4})
	defer m.Close()

	sess := m.Get("alice")
	for i := 0; i < 6; i++ {
		sess.AppendTurn("user", fmt.Sprintf("turn-%d", i))
	}

	turns := sess.Turns()
	if len(turns) != 4 {
		t.Fatalf("len(turns) = %d, want 4", len(turns))
	}
	if turns[0].Content != "turn-2" || turns[3].Content != "turn-5" {
		t.Errorf("window = [%s .. %s], want [turn-2 .. turn-5]", turns[0].Content, turns[3].Content)
	}
}

func TestManagerReturnsSameSession(t *testing.T) {
	m := newTestManager(Config{})
	defer m.Close()

	a := m.Get("alice")
	b := m.Get("alice")
	if a != b {
		t.Error("Get should return the same session for one user")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestManagerEvictsAtCap(t *testing.T) {
	m := newTestManager(Config{MaxSessions: 2})
	defer m.Close()

	m.Get("alice")
	time.Sleep(5 * time.Millisecond)
	m.Get("bob")
	time.Sleep(5 * time.Millisecond)
	m.Get("alice") // refresh alice, bob is now stalest

	m.Get("carol")
	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}

	// bob must be gone; alice and carol survive
	alice := m.Get("alice")
	if alice.UserID != "alice" {
		t.Errorf("alice session missing")
	}
}

func TestManagerRemoveExpired(t *testing.T) {
	m := newTestManager(Config{Timeout: time.Hour})
	defer m.Close()

	m.Get("alice")
	m.Get("bob")

	removed := m.removeExpired(time.Now().Add(2 * time.Hour))
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
}
