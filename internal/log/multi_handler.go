package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// MultiHandler fans one log record out to multiple slog handlers.
// It is used to send the same record to the console and to a persistent
// log file, each with its own format and level.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any combination of underlying handlers (text, JSON, etc.)
//  3. Components only ever see a plain *slog.Logger
type MultiHandler struct {
	// handlers receive every record whose level they accept.
	handlers []slog.Handler
}

// NewMultiHandler creates a MultiHandler over the given handlers.
// Nil handlers are skipped.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	hs := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return &MultiHandler{handlers: hs}
}

// Enabled reports whether any underlying handler handles records at the
// given level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every underlying handler that accepts its
// level. A failing handler does not stop the others; errors are joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a new handler with the given attributes added to every
// underlying handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		hs[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

// WithGroup returns a new handler with the given group name applied to every
// underlying handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		hs[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}

// consoleLevel maps the verbose flag to the console log level.
func consoleLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a console logger writing human-readable text to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Info
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: consoleLevel(verbose),
	})
	return slog.New(handler)
}

// NewLoggerWithFile creates a logger that writes human-readable text to w
// and structured JSON to the file at path. The file is opened in append
// mode and always logs at Debug level so the persistent record stays
// complete regardless of the console verbosity. The caller owns the
// returned closer.
func NewLoggerWithFile(w io.Writer, path string, verbose bool) (*slog.Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) //nolint:gosec // User-provided log path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	console := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: consoleLevel(verbose),
	})
	persistent := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	return slog.New(NewMultiHandler(console, persistent)), file, nil
}
