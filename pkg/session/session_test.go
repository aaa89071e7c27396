package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager()
	out := &bytes.Buffer{}
	s := m.Create("alice", strings.NewReader(""), out)
	if s.ID == "" {
		t.Fatal("session has no id")
	}
	if s.Interp == nil {
		t.Fatal("session has no interpreter")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestGetUnknown(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	m := NewManager()
	s := m.Create("alice", strings.NewReader(""), &bytes.Buffer{})
	m.Remove(s.ID)
	if m.Count() != 0 {
		t.Errorf("Count after Remove = %d, want 0", m.Count())
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
	// Removing twice is harmless.
	m.Remove(s.ID)
}

func TestSweepIdle(t *testing.T) {
	m := NewManager()
	stale := m.Create("alice", strings.NewReader(""), &bytes.Buffer{})
	fresh := m.Create("bob", strings.NewReader(""), &bytes.Buffer{})

	stale.mu.Lock()
	stale.lastUsed = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	if n := m.SweepIdle(30 * time.Minute); n != 1 {
		t.Errorf("SweepIdle removed %d sessions, want 1", n)
	}
	if _, err := m.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Error("stale session survived the sweep")
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("fresh session was swept: %v", err)
	}
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	m := NewManager()
	s := m.Create("alice", strings.NewReader(""), &bytes.Buffer{})
	s.mu.Lock()
	s.lastUsed = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	// Get touches the session, so the sweep must not take it.
	if _, err := m.Get(s.ID); err != nil {
		t.Fatal(err)
	}
	if n := m.SweepIdle(30 * time.Minute); n != 0 {
		t.Errorf("SweepIdle removed %d sessions, want 0", n)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.StartSweeper()
	m.Stop()
	m.Stop()
}
