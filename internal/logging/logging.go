// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"

	"github.com/lepinkainen/humanlog"
)

// New returns a human-readable logger writing to w.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(humanlog.NewHandler(w, &humanlog.Options{
		Level: level,
	}))
}

// Init installs New(w, verbose) as the default logger and returns it.
// Logs go to stderr in the CLI so that stdout can carry the artifact.
func Init(w io.Writer, verbose bool) *slog.Logger {
	logger := New(w, verbose)
	slog.SetDefault(logger)
	return logger
}
