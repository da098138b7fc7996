package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Output formats accepted by New.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// ErrUnknownFormat is returned by New for an unsupported format.
var ErrUnknownFormat = errors.New("unknown log format")

// New returns a secure logger for the named format.
// verbose lowers the level from Warn to Debug.
func New(format string, w io.Writer, verbose bool) (*slog.Logger, error) {
	switch format {
	case FormatText, "":
		return NewSecureLogger(w, verbose), nil
	case FormatJSON:
		return NewSecureJSONLogger(w, verbose), nil
	case FormatPretty:
		return NewSecurePrettyLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger creates a sanitizing slog.Logger with text output.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(h))
}

// NewSecureJSONLogger creates a sanitizing slog.Logger with JSON output.
// Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(h))
}

// NewSecurePrettyLogger creates a sanitizing slog.Logger rendered by
// charmbracelet/log, for humans watching a crawl in a terminal.
func NewSecurePrettyLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl := charmlog.WarnLevel
	if verbose {
		lvl = charmlog.DebugLevel
	}
	h := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "drugindex",
	})
	return slog.New(NewSecureHandler(h))
}
