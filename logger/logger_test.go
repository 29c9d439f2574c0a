package logger

import "testing"

func TestNew(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		log, err := New(level)
		if err != nil {
			t.Errorf("New(%q) = %v", level, err)
			continue
		}
		log.Sync()
	}

	if _, err := New("shouting"); err == nil {
		t.Error("invalid level should error")
	}
}
