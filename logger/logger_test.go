package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"viewer_id", "v1", "tab_token", "abc", "SESSION_SECRET", "s", "dangling"})
	want := []interface{}{"viewer_id", "v1", "tab_token", "[REDACTED]", "SESSION_SECRET", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("built")
	}
	Nop().Info("ignored", "k", "v")
}
