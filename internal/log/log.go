// Package log builds the loggers shared by all sage components.
//
// Loggers are injected, never global: each component receives a Logger via
// its constructor and may add context with logger.With().
//
// Usage:
//
//	logger := log.NewWithWriter(os.Stderr, log.Config{Level: slog.LevelDebug})
//	fetcher := provider.NewFetcher(client, logger.With("component", "fetcher"))
//
//	// In tests, silence output or capture it:
//	testLogger := log.NewNop()
//	var buf bytes.Buffer
//	testLogger = log.NewWithWriter(&buf, log.Config{})
package log

import (
	"io"
	"log/slog"
)

// Logger is a type alias for *slog.Logger.
// Using the standard library type directly keeps full compatibility with the
// slog ecosystem and avoids a custom interface.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool
}

// NewWithWriter creates a new logger that writes to the given writer,
// typically os.Stderr so stdout stays free for conversation output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop creates a logger that discards all output.
// Intended for tests only.
func NewNop() Logger {
	return slog.New(slog.DiscardHandler)
}
