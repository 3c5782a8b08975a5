// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a logger writing to w, as JSON when asJSON is set and as
// logfmt-style text otherwise.
func New(w io.Writer, asJSON bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init creates a stderr logger and installs it as the slog default. Stdout
// is left to narration output.
func Init(asJSON bool, level slog.Level) *slog.Logger {
	l := New(os.Stderr, asJSON, level)
	slog.SetDefault(l)
	return l
}

// ParseLevel reads NARRATOR_LOG_LEVEL values. It accepts slog's level names
// in any case, with offsets such as "debug-2" for extra-verbose render
// tracing, and "warning" as an alias of warn. An empty value is info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
