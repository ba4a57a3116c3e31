package logger

import "testing"

func TestRedact(t *testing.T) {
	got := redact([]interface{}{"user", "alice", "Token", "abc.def.ghi", "password", "hunter2", "dangling"})

	want := []interface{}{"user", "alice", "Token", "[REDACTED]", "password", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d values, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		l.With("component", "test").Debug("hello", "token", "secret")
	}
	Nop().Info("discarded")
}
