// Package controller runs the brightness control loop: every tick it maps
// the sun's altitude through the configured curve, applies the user offset,
// detects manual brightness changes, and writes the result to all devices.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pasikonik/sun-dimmer/internal/curve"
	"github.com/pasikonik/sun-dimmer/internal/domain/model"
	"github.com/pasikonik/sun-dimmer/internal/location"
	"github.com/pasikonik/sun-dimmer/internal/logging"
	"github.com/pasikonik/sun-dimmer/internal/metrics"
	"github.com/pasikonik/sun-dimmer/internal/notify"
	"github.com/pasikonik/sun-dimmer/internal/solar"
	"github.com/pasikonik/sun-dimmer/internal/tracing"
)

// DeviceIO is the slice of the device manager the loop needs.
type DeviceIO interface {
	Names() []string
	ReadPrimary(ctx context.Context) (int, error)
	WriteAll(ctx context.Context, percent int) (int, error)
}

// StateStore is the slice of the state store the loop needs.
type StateStore interface {
	Offset() int
	SetOffset(offset int) error
	RecordBrightness(percent int) error
	Save() error
}

// AltitudeFunc computes the solar altitude for a position and instant.
type AltitudeFunc func(lat, lon float64, t time.Time) float64

// Config carries the loop's tuning knobs.
type Config struct {
	Curve        curve.Curve
	Tolerance    float64
	Interval     time.Duration
	ErrorBackoff time.Duration
	LookAhead    time.Duration
}

// Controller owns the tick loop. Create with New and drive with Run.
type Controller struct {
	cfg      Config
	resolver location.Resolver
	devices  DeviceIO
	store    StateStore
	notifier notify.Notifier
	logger   *slog.Logger

	// Injectable for tests.
	altitudeAt AltitudeFunc
	now        func() time.Time

	coords    model.Coordinates
	drift     driftDetector
	gate      materialityGate
	lastSet   int
	firstTick bool
}

func New(cfg Config, resolver location.Resolver, devices DeviceIO, store StateStore, notifier notify.Notifier, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:        cfg,
		resolver:   resolver,
		devices:    devices,
		store:      store,
		notifier:   notifier,
		logger:     logger.With("component", "controller"),
		altitudeAt: solar.Altitude,
		now:        time.Now,
		drift:      driftDetector{tolerance: cfg.Tolerance},
		firstTick:  true,
	}
}

// Run resolves the position, then ticks until ctx is cancelled. The first
// tick fires immediately; later ticks wait the configured interval, or the
// error backoff after a failed tick. On cancellation the current state is
// saved before returning.
func (c *Controller) Run(ctx context.Context) error {
	coords, err := c.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve location: %w", err)
	}
	c.coords = coords
	c.logger.Log(ctx, logging.LevelSuccess, "location fixed", "coords", coords.String())
	c.logger.Info("controlling devices", "devices", strings.Join(c.devices.Names(), ", "))

	// Baseline for manual-change detection: what is on the device right
	// now, or a mid-range default when it cannot be read.
	if current, err := c.devices.ReadPrimary(ctx); err == nil {
		c.lastSet = current
	} else {
		c.lastSet = 50
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("shutting down, saving state")
			if err := c.store.Save(); err != nil {
				metrics.StateSaveErrors.Inc()
				c.logger.Error("save state on shutdown", "error", err)
			}
			return ctx.Err()
		case <-timer.C:
		}

		if err := c.safeTick(ctx); err != nil {
			c.logger.Error("tick failed", "error", err, "retry_in", c.cfg.ErrorBackoff)
			timer.Reset(c.cfg.ErrorBackoff)
		} else {
			timer.Reset(c.cfg.Interval)
		}
	}
}

// safeTick wraps tick with panic recovery and tick metrics so one bad tick
// never takes the daemon down.
func (c *Controller) safeTick(ctx context.Context) (err error) {
	metrics.ControllerTicksTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.ControllerTickDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
		if err != nil {
			metrics.ControllerTickErrors.Inc()
		}
	}()
	return c.tick(ctx)
}

func (c *Controller) tick(ctx context.Context) error {
	ctx, span := tracing.Tracer("controller").Start(ctx, "controller.tick")
	defer span.End()

	now := c.now()
	altitude := c.altitudeAt(c.coords.Latitude, c.coords.Longitude, now)
	calculated := c.cfg.Curve.Target(altitude)
	metrics.SunAltitudeDegrees.Set(altitude)

	actual, readErr := c.devices.ReadPrimary(ctx)
	if readErr != nil {
		c.logger.Debug("brightness read failed, skipping manual-change check", "error", readErr)
	} else if !c.firstTick {
		if newOffset, drifted := c.drift.detect(actual, c.lastSet, calculated); drifted {
			c.logger.Warn("manual brightness change detected",
				"actual", actual,
				"expected", c.lastSet,
				"new_offset", fmt.Sprintf("%+d%%", newOffset),
			)
			metrics.ManualChangesDetected.Inc()
			if err := c.store.SetOffset(newOffset); err != nil {
				metrics.StateSaveErrors.Inc()
				c.logger.Error("persist offset", "error", err)
			}
			_ = c.notifier.Send(ctx, notify.Event{
				Kind:  notify.KindManualChange,
				Title: "Brightness offset updated",
				Body:  fmt.Sprintf("Manual change detected, new offset %+d%%", newOffset),
			})
		}
	}
	c.firstTick = false

	offset := c.store.Offset()
	final := calculated + float64(offset)
	metrics.UserOffset.Set(float64(offset))

	materiallyChanged := c.gate.changed(final)
	shouldLog := materiallyChanged && c.willChangeSoon(now)
	target := c.cfg.Curve.Quantize(final)

	span.SetAttributes(
		attribute.Float64("sun.altitude", altitude),
		attribute.Int("brightness.target", target),
		attribute.Int("brightness.offset", offset),
	)

	if shouldLog {
		args := []any{"value", fmt.Sprintf("%d%%", target), "altitude", fmt.Sprintf("%.1f°", altitude)}
		if offset != 0 {
			args = append(args, "offset", fmt.Sprintf("%+d%%", offset))
		}
		c.logger.Info("setting brightness", args...)
	}

	// Shutdown must not cut a write short; commands carry their own timeout.
	accepted, err := c.devices.WriteAll(context.WithoutCancel(ctx), target)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("no device accepted brightness", "target", target, "error", err)
		_ = c.notifier.Send(ctx, notify.Event{
			Kind:  notify.KindDeviceDown,
			Title: "Brightness control failing",
			Body:  "No display accepted the brightness change",
		})
		return nil
	}
	c.logger.Debug("brightness applied", "target", target, "devices", accepted)

	metrics.BrightnessTarget.Set(float64(target))
	c.lastSet = target
	if err := c.store.RecordBrightness(target); err != nil {
		metrics.StateSaveErrors.Inc()
		c.logger.Error("persist state", "error", err)
	}
	if materiallyChanged {
		c.gate.commit(final)
	}
	return nil
}
