// Package logger configures structured JSON logging for the service.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	log   *slog.Logger
	level = new(slog.LevelVar)
)

func init() {
	level.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
}

// ParseLevel maps debug, info, warn(ing) and error to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the level of the default logger at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return level.Level() <= slog.LevelDebug
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// SetOutputForTest redirects log output to w and returns a restore func.
// Only for tests.
func SetOutputForTest(w io.Writer) func() {
	original := log
	log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return func() {
		log = original
		slog.SetDefault(log)
	}
}

// SetDebugForTest toggles debug level and returns a restore func.
// Only for tests.
func SetDebugForTest(enabled bool) func() {
	original := level.Level()
	if enabled {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	return func() { level.Set(original) }
}
