package logger

import "testing"

func TestExtractComponent(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected string
	}{
		{"bluetooth prefix", "[bluetooth] adapter found", "bluetooth"},
		{"api prefix", "[api] http server running", "api"},
		{"no prefix", "plain message", ""},
		{"empty", "", ""},
		{"unclosed bracket", "[bluetooth adapter found", ""},
		{"bracket not first", "x [bluetooth] msg", ""},
		{"empty component", "[] msg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractComponent(tt.msg); got != tt.expected {
				t.Errorf("extractComponent(%q) = %q, want %q", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestShouldLog(t *testing.T) {
	l := New(WARN)

	if l.shouldLog(INFO, "plain message") {
		t.Error("INFO should be filtered at WARN level")
	}
	if !l.shouldLog(ERROR, "plain message") {
		t.Error("ERROR should pass at WARN level")
	}
}

func TestShouldLogComponentOverride(t *testing.T) {
	l := New(WARN)
	l.componentLevels = map[string]Level{"bluetooth": DEBUG}

	if !l.shouldLog(DEBUG, "[bluetooth] device event") {
		t.Error("bluetooth DEBUG should pass with component override")
	}
	if l.shouldLog(DEBUG, "[api] request") {
		t.Error("api DEBUG should still be filtered at WARN level")
	}
}

func TestLevelNames(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR, FATAL} {
		if levelNames[level] == "" {
			t.Errorf("missing name for level %d", level)
		}
	}
}
