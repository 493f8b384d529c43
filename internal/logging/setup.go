// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// parseLevel maps a level name to a slog level. "trace" is debug with caller
// reporting; unknown names fall back to info.
func parseLevel(logLevel string) (level slog.Level, trace bool) {
	switch strings.ToLower(logLevel) {
	case "trace":
		return slog.LevelDebug, true
	case "debug":
		return slog.LevelDebug, false
	case "warn", "warning":
		return slog.LevelWarn, false
	case "error":
		return slog.LevelError, false
	default:
		return slog.LevelInfo, false
	}
}

// SetupHandlerText returns a charmbracelet text handler. Timestamps are shown
// at debug and trace, callers only at trace. A nil writer means os.Stderr.
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	level, trace := parseLevel(logLevel)
	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: level <= slog.LevelDebug,
		ReportCaller:    trace,
		Level:           log.Level(level),
	})
}

// SetupHandlerJSON returns a JSON handler. A nil writer means os.Stderr.
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	level, trace := parseLevel(logLevel)
	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: trace,
	})
}

// NewHandler returns the handler for the given format ("text" when empty).
func NewHandler(logLevel, format string, writer io.Writer) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return SetupHandlerText(logLevel, writer), nil
	case FormatJSON:
		return SetupHandlerJSON(logLevel, writer), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// SetupLogger installs a new default logger and returns its handler.
func SetupLogger(logLevel, format string, writer io.Writer) (slog.Handler, error) {
	handler, err := NewHandler(logLevel, format, writer)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return handler, nil
}
