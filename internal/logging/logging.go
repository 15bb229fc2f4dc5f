// Package logging wraps log/slog the way MacroPower-x's own "log" package
// does: a small Format/Level vocabulary plus a handler constructor, so the
// rest of the pipeline logs through one *slog.Logger instance instead of
// scattering fmt.Println diagnostics.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ErrUnknownLevel indicates an unrecognized log level string.
var ErrUnknownLevel = errors.New("unknown log level")

// New builds a text-handler *slog.Logger writing to w at levelName
// ("debug", "info", "warn", "error"). debug forces slog.LevelDebug
// regardless of levelName, matching the CLI's --debug flag.
func New(w io.Writer, levelName string, debug bool) (*slog.Logger, error) {
	lvl, err := level(levelName)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if debug {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func level(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// WarnOnce logs warn-level messages at most once per distinct key, used for
// "missing prefix" / "unknown predicate" diagnostics that would otherwise
// repeat once per row. A single instance is shared across every concurrent
// materialization worker, so seen is guarded by mu.
type WarnOnce struct {
	logger *slog.Logger
	mu     sync.Mutex
	seen   map[string]bool
}

// NewWarnOnce wraps logger with per-key deduplication.
func NewWarnOnce(logger *slog.Logger) *WarnOnce {
	return &WarnOnce{logger: logger, seen: make(map[string]bool)}
}

// Warn emits msg at most once for the given key.
func (w *WarnOnce) Warn(key, msg string, args ...any) {
	w.mu.Lock()
	if w.seen[key] {
		w.mu.Unlock()
		return
	}
	w.seen[key] = true
	w.mu.Unlock()
	w.logger.Warn(msg, args...)
}
