// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dotse/slug"
	slogmulti "github.com/samber/slog-multi"
)

// Level is a log verbosity as written in config files and on the command line.
type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// ParseLevel returns the Level named by s, ignoring case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case Debug, Info, Warn, Error:
		return l, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// ToSlogLevel maps our levels to the equivalent slog level. Unknown levels log at info.
func ToSlogLevel(level Level) slog.Level {
	switch level {
	case Debug:
		return slog.LevelDebug
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing human readable lines to console and, when logPath is set,
// JSON lines to that file. The returned closer releases the file.
func New(console io.Writer, level Level, logPath string) (*slog.Logger, func(), error) {
	var (
		closer   = func() {}
		opts     = slog.HandlerOptions{Level: ToSlogLevel(level)}
		handlers = []slog.Handler{slug.NewHandler(slug.HandlerOptions{HandlerOptions: opts}, console)}
	)

	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		closer = func() {
			if errClose := logFile.Close(); errClose != nil {
				fmt.Fprintf(os.Stderr, "close log file: %v\n", errClose)
			}
		}
		handlers = append(handlers, slog.NewJSONHandler(logFile, &opts))
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
