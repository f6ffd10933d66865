package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
)

func TestSetupAndRecover(t *testing.T) {
	var buf bytes.Buffer
	Setup(charmlog.New(&buf))
	if !Initialized() {
		t.Fatal("Setup did not install the handler")
	}
	slog.Info("routed", "k", "v")
	if !strings.Contains(buf.String(), "routed") {
		t.Errorf("slog output not routed: %q", buf.String())
	}

	cleaned := false
	func() {
		defer RecoverPanic("worker", func() { cleaned = true })
		panic("boom")
	}()
	if !cleaned {
		t.Error("cleanup did not run")
	}
	if !strings.Contains(buf.String(), "panic in worker") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestSetupNil(t *testing.T) {
	Setup(nil)
}
