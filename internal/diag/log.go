// Package diag provides the shared diagnostic surface every persona (strip,
// copy, mcs, inspect) reports through: a structured logger fanning out to
// stderr and an optional JSON sink, plus colored terminal output for symbol
// and section dumps.
package diag

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the process-wide logger: a text handler on stderr at the
// requested level, fanned out to an optional JSON file sink when auditPath
// is non-empty. Callers own the returned logger; nothing here is global.
func NewLogger(verbose bool, auditPath string) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	closer := func() error { return nil }

	if auditPath != "" {
		f, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f.Close
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

// Discard is a logger that drops everything, for callers (tests, library
// use) that don't want persona-level diagnostics.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
