// Package logging provides structured logging with file output support.
// It uses environment variables for configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xyproto/env/v2"
)

const (
	envLevel  = "INSNCORPUS_LOG_LEVEL"
	envPrefix = "INSNCORPUS_LOG_PREFIX"
	envToFile = "INSNCORPUS_LOG_TO_FILE"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(env.Str(envLevel)))

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(env.Str(envPrefix, "insncorpus ")),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// INSNCORPUS_LOG_LEVEL: debug, info, warn, error (default: info)
// INSNCORPUS_LOG_PREFIX: prefix for log messages (default: "insncorpus ")
// INSNCORPUS_LOG_TO_FILE: when true, logs to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)

	if env.Bool(envToFile) {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("insncorpus-%s.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// If file creation fails, fall back to stderr
	}

	return NewLoggerWithWriter(output)
}

// Discard returns a logger that drops everything.
func Discard() *LoggerCloser {
	return &LoggerCloser{Logger: log.New(io.Discard)}
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return ParseLevel(env.Str(envLevel)) == log.DebugLevel
}
