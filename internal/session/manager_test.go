package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "Ada")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Name != "Ada" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Get("nope"); err != ErrNotFound {
		t.Fatalf("Get() error = %v, want %v", err, ErrNotFound)
	}
}

func TestManagerTouchExtendsActivity(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "Ada")

	before, _ := m.Get(s.ID)
	time.Sleep(5 * time.Millisecond)
	if err := m.Touch(s.ID); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	after, _ := m.Get(s.ID)
	if !after.LastActivityAt.After(before.LastActivityAt) {
		t.Fatalf("LastActivityAt did not advance: before=%v after=%v", before.LastActivityAt, after.LastActivityAt)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("u1", "Ada")

	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) {
		select {
		case expired <- s.ID:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired session = %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for expiry hook")
	}

	// The expired session is either still visible as ended or already
	// reaped by a later janitor pass.
	got, err := m.Get(s.ID)
	if err == nil && got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
	if err != nil && err != ErrNotFound {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestManagerJanitorReapsEndedSessions(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "Ada")
	if _, err := m.End(s.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	m.expireInactive()

	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Fatalf("Get() after reap error = %v, want %v", err, ErrNotFound)
	}
}
