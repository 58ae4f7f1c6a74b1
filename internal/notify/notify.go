// Package notify surfaces noteworthy daemon events on the user's desktop.
// Notifications are optional, deduplicated with a cooldown window, and
// delivered through notify-send (or any compatible command).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pasikonik/sun-dimmer/internal/metrics"
)

// Kind categorizes an event for cooldown dedup and metrics.
type Kind string

const (
	KindManualChange    Kind = "manual_change"
	KindDeviceDown      Kind = "device_down"
	KindDeviceRecovered Kind = "device_recovered"
)

// Event is one user-facing notification.
type Event struct {
	Kind  Kind
	Title string
	Body  string
}

// Notifier delivers events.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// Noop discards every event. Used when notifications are disabled.
type Noop struct{}

func (Noop) Send(context.Context, Event) error { return nil }

// commandRunner matches device.Runner without importing the device package.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Command delivers events through an external notification command,
// defaulting to notify-send semantics: `cmd <title> <body>`.
type Command struct {
	Cmd    string
	Runner commandRunner
}

func (c Command) Send(ctx context.Context, event Event) error {
	cmd := c.Cmd
	if cmd == "" {
		cmd = "notify-send"
	}
	if _, err := c.Runner.Run(ctx, cmd, event.Title, event.Body); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Deduper wraps a notifier with a per-kind cooldown so a monitor flapping
// every tick does not spam the desktop.
type Deduper struct {
	inner    Notifier
	cooldown time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[Kind]time.Time
	now      func() time.Time
}

// NewDeduper creates a cooldown wrapper around inner.
func NewDeduper(inner Notifier, cooldown time.Duration, logger *slog.Logger) *Deduper {
	return &Deduper{
		inner:    inner,
		cooldown: cooldown,
		logger:   logger.With("component", "notify"),
		lastSent: make(map[Kind]time.Time),
		now:      time.Now,
	}
}

func (d *Deduper) Send(ctx context.Context, event Event) error {
	d.mu.Lock()
	if last, ok := d.lastSent[event.Kind]; ok && d.now().Sub(last) < d.cooldown {
		d.mu.Unlock()
		metrics.NotificationsSuppressed.WithLabelValues(string(event.Kind)).Inc()
		d.logger.Debug("notification suppressed by cooldown", "kind", event.Kind)
		return nil
	}
	d.lastSent[event.Kind] = d.now()
	d.mu.Unlock()

	if err := d.inner.Send(ctx, event); err != nil {
		d.logger.Warn("notification failed", "kind", event.Kind, "error", err)
		return err
	}
	metrics.NotificationsSent.WithLabelValues(string(event.Kind)).Inc()
	return nil
}
