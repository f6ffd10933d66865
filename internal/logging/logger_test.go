package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/xyproto/env/v2"
)

// TestMain turns off the env cache so t.Setenv changes are seen.
func TestMain(m *testing.M) {
	env.Unload()
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"info", log.InfoLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv(envLevel, "warn")
	t.Setenv(envPrefix, "corpus-test")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	defer lg.Close()

	lg.Info("hidden")
	lg.Warn("shown", "arch", "x86")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "arch=x86") {
		t.Errorf("warn line missing: %q", out)
	}
	if !strings.Contains(out, "corpus-test") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestIsDebug(t *testing.T) {
	t.Setenv(envLevel, "")
	if IsDebug() {
		t.Error("IsDebug() = true with no level")
	}
	t.Setenv(envLevel, "debug")
	if !IsDebug() {
		t.Error("IsDebug() = false with debug level")
	}
	t.Setenv(envLevel, "info")
	if IsDebug() {
		t.Error("IsDebug() = true with info level")
	}
}

func TestDiscard(t *testing.T) {
	lg := Discard()
	lg.Error("dropped")
	if err := lg.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
