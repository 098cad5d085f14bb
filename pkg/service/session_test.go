package service

import (
	"testing"
	"time"
)

func TestSessionStore_AppendAndHistory(t *testing.T) {
	store := NewSessionStore(2, quietLogger())
	id := store.Create()

	for _, u := range []string{"one", "two", "three"} {
		store.Append(id, ConversationEntry{User: u})
	}

	history, ok := store.History(id)
	if !ok {
		t.Fatal("session missing")
	}
	if len(history) != 2 || history[0].User != "two" || history[1].User != "three" {
		t.Errorf("history = %+v", history)
	}
	if history[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be filled in")
	}

	history[0].User = "mutated"
	again, _ := store.History(id)
	if again[0].User != "two" {
		t.Error("History should return a copy")
	}
}

func TestSessionStore_ClientProvidedIDAndClear(t *testing.T) {
	store := NewSessionStore(0, quietLogger())
	store.Append("browser-tab-1", ConversationEntry{User: "hola"})

	if h, ok := store.History("browser-tab-1"); !ok || len(h) != 1 {
		t.Fatalf("history = %v, %v", h, ok)
	}
	if !store.Clear("browser-tab-1") {
		t.Fatal("Clear returned false")
	}
	if h, _ := store.History("browser-tab-1"); len(h) != 0 {
		t.Errorf("history after clear = %v", h)
	}
	if store.Clear("unknown") {
		t.Error("Clear of unknown session should report false")
	}
	if _, ok := store.History("unknown"); ok {
		t.Error("unknown session should not exist")
	}
}

func TestSessionStore_CleanupExpiredSessions(t *testing.T) {
	store := NewSessionStore(0, quietLogger())
	store.Create()
	store.Create()

	if n := store.CleanupExpiredSessions(time.Hour); n != 0 {
		t.Errorf("removed %d fresh sessions", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := store.CleanupExpiredSessions(time.Millisecond); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if len(store.Sessions()) != 0 {
		t.Error("sessions remain after cleanup")
	}
}
