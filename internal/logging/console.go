// Package logging provides the daemon's slog handlers: the JSON handler for
// service deployments comes straight from the standard library, and this
// package adds a colored console handler for interactive use, plus the extra
// SUCCESS level sitting between INFO and WARN.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LevelSuccess marks operations that completed notably well (location fix,
// first actuation). It renders green on the console and as "SUCCESS" in JSON.
const LevelSuccess = slog.Level(2)

// ANSI escape sequences.
const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiWhite   = "\033[37m"
	ansiCyanHi  = "\033[96m"
	ansiGray    = "\033[90m"
	ansiMagenta = "\033[95m"
)

// ConsoleHandler renders records as "[HH:MM:SS] [LEVEL ] message key=value".
// It is safe for concurrent use.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	colors bool
	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler creates a handler writing to w. Colors can be disabled
// for dumb terminals and log files.
func NewConsoleHandler(w io.Writer, level slog.Leveler, colors bool) *ConsoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		mu:     &sync.Mutex{},
		w:      w,
		level:  level,
		colors: colors,
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(h.colorize(r.Time.Format("[15:04:05]"), ansiWhite))
	b.WriteByte(' ')
	b.WriteString(h.levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		h.appendAttr(&b, prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *ConsoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	b.WriteByte(' ')
	b.WriteString(h.colorize(key+"=", ansiGray))
	b.WriteString(fmt.Sprint(a.Value.Resolve().Any()))
}

func (h *ConsoleHandler) levelTag(level slog.Level) string {
	var tag, color string
	switch {
	case level >= slog.LevelError:
		tag, color = "[ ERROR ]", ansiRed
	case level >= slog.LevelWarn:
		tag, color = "[  WARN ]", ansiYellow
	case level >= LevelSuccess:
		tag, color = "[SUCCESS]", ansiGreen
	case level >= slog.LevelInfo:
		tag, color = "[ INFO  ]", ansiBlue
	default:
		tag, color = "[ DEBUG ]", ansiCyanHi
	}
	return h.colorize(tag, color+ansiBold)
}

func (h *ConsoleHandler) colorize(s, color string) string {
	if !h.colors {
		return s
	}
	return color + s + ansiReset
}

// LevelName returns the display name for a level, mapping LevelSuccess to
// "SUCCESS" instead of slog's default "INFO+2".
func LevelName(level slog.Level) string {
	if level == LevelSuccess {
		return "SUCCESS"
	}
	return level.String()
}

// ReplaceLevelAttr is a slog.HandlerOptions.ReplaceAttr function that makes
// the JSON handler print SUCCESS for the custom level.
func ReplaceLevelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// ParseLevel maps a config log_level string to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
