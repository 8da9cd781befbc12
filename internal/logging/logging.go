// Package logging sets up structured logging via slog, with a
// text-or-json format switch and a filtering handler that hides every
// record logged from third-party packages, at any level, unless the
// configured level is itself DEBUG.
package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
)

// ParseLevel converts a case-insensitive level name into an
// slog.Level, defaulting to Info on an unrecognized value.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// modulePrefix identifies a log record's call site as belonging to this
// module rather than a dependency, by checking the calling function's
// fully-qualified name.
const modulePrefix = "github.com/kadirpekel/agentkernel"

// filteringHandler suppresses records from outside this module unless
// the configured level is DEBUG, and otherwise applies the configured
// level itself. It overrides Enabled to accept everything and makes
// the real decision in Handle, where the record's program counter is
// available to identify its call site.
type filteringHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *filteringHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.level.Level() {
		return nil
	}
	if h.level.Level() > slog.LevelDebug && !fromThisModule(r.PC) {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

// fromThisModule reports whether pc's function belongs to this module,
// treating an unknown pc (0) as belonging to it, so logging never
// silently drops a record it can't attribute.
func fromThisModule(pc uintptr) bool {
	if pc == 0 {
		return true
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return strings.Contains(frame.Function, modulePrefix)
}

// Format selects the slog handler's output shape.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New builds a root logger writing to w at level, in either text or
// json format. The underlying handler is always constructed at DEBUG
// so every record reaches filteringHandler.Handle, which applies the
// real level and source filtering.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(&filteringHandler{Handler: handler, level: level})
}

// ParseFormat converts a case-insensitive format name into a Format,
// defaulting to text on an unrecognized value.
func ParseFormat(name string) Format {
	if strings.EqualFold(strings.TrimSpace(name), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}
