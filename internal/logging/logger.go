// Package logging builds the structured logger handed to the converter.
//
// Nothing here touches the process-wide default logger: the returned
// *slog.Logger is passed explicitly to whoever needs it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects where and how log records are written.
type Options struct {
	// Level: "debug", "info", "warn", "error" (default: "info")
	Level string

	// Format: "text", "json" (default: "text")
	Format string

	// File is appended to in addition to Output when set.
	File string

	// Output is the primary destination. Default: os.Stderr
	Output io.Writer
}

// New builds a logger from opts. The returned closer releases the log file
// and must be called when logging is done; it is a no-op without a file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var handler slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel converts a string log level to slog.Level. Unknown values are
// treated as info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ValidLevel reports whether level is one ParseLevel recognizes.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether format names a supported handler.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", "text", "json":
		return true
	}
	return false
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
