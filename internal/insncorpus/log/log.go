// Package log routes the standard slog default through the command's
// charmbracelet logger and recovers top-level panics.
package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs lg as the slog default handler. Only the first call has
// an effect.
func Setup(lg *charmlog.Logger) {
	if lg == nil {
		return
	}
	initOnce.Do(func() {
		slog.SetDefault(slog.New(lg))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic logs a panic in name with its stack and runs cleanup. It
// must be called directly by a deferred statement.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
