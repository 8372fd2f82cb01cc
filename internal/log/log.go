// Package log is the pipeline's structured logging facade over slog.
//
// Init installs the process-wide handler once; later calls only adjust the
// level. Output goes to stderr so stdout stays free for command output.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	level  slog.LevelVar
	logger *slog.Logger
	once   sync.Once
)

// Init sets the log level and, on first call, installs the handler.
// Levels are "debug", "info", "warn" and "error"; anything else means info.
// The handler emits JSON when GAZEMAP_ENV=production, text otherwise.
func Init(lvl string) {
	level.Set(parseLevel(lvl))
	once.Do(install)
}

func install() {
	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler
	if os.Getenv("GAZEMAP_ENV") == "production" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the process logger, installing the default handler at info
// level if Init was never called.
func L() *slog.Logger {
	once.Do(install)
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
