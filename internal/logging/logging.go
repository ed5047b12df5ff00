// Package logging builds the structured logger shared by the binaries.
package logging

import (
	"io"
	"log/slog"

	"github.com/pterm/pterm"
)

// New returns a slog.Logger rendered by pterm, writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	logger := pterm.DefaultLogger.WithLevel(ptermLevel(level)).WithWriter(w)
	return slog.New(pterm.NewSlogHandler(logger))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
