package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pasikonik/sun-dimmer/internal/circuitbreaker"
	"github.com/pasikonik/sun-dimmer/internal/metrics"
	"github.com/pasikonik/sun-dimmer/internal/tracing"
)

// ErrNoDevices is returned by ReadPrimary when nothing is configured.
var ErrNoDevices = errors.New("no devices configured")

// ManagerConfig tunes the write fan-out.
type ManagerConfig struct {
	// WriteRPS limits how fast brightness writes hit each device.
	WriteRPS float64
	// WriteBurst is the limiter burst per device.
	WriteBurst int
	// BreakerTripAfter opens a device's breaker after this many
	// consecutive write failures.
	BreakerTripAfter int
	// BreakerProbeAfter is the open window before a recovery probe.
	BreakerProbeAfter time.Duration
	// OnBreakerChange observes per-device breaker transitions.
	OnBreakerChange func(device string, from, to circuitbreaker.State)
}

type managedDevice struct {
	controller Controller
	breaker    *circuitbreaker.Breaker
	limiter    *WriteLimiter
}

// Manager fans writes out to every configured device and reads back from
// the first one. Per-device failures are isolated: a dead monitor never
// blocks the laptop panel.
type Manager struct {
	devices []managedDevice
	logger  *slog.Logger
}

// NewManager wraps controllers with per-device breakers and write limiters.
func NewManager(controllers []Controller, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.WriteRPS <= 0 {
		cfg.WriteRPS = 2
	}
	if cfg.WriteBurst <= 0 {
		cfg.WriteBurst = 2
	}
	if cfg.BreakerTripAfter <= 0 {
		cfg.BreakerTripAfter = 3
	}
	if cfg.BreakerProbeAfter <= 0 {
		cfg.BreakerProbeAfter = 2 * time.Minute
	}

	m := &Manager{logger: logger.With("component", "devices")}
	for _, c := range controllers {
		name := c.Name()
		breaker := circuitbreaker.New(circuitbreaker.Config{
			TripAfter:  cfg.BreakerTripAfter,
			ProbeAfter: cfg.BreakerProbeAfter,
			OnStateChange: func(from, to circuitbreaker.State) {
				if to == circuitbreaker.StateOpen {
					metrics.DeviceBreakerOpen.WithLabelValues(name).Set(1)
				} else {
					metrics.DeviceBreakerOpen.WithLabelValues(name).Set(0)
				}
				if cfg.OnBreakerChange != nil {
					cfg.OnBreakerChange(name, from, to)
				}
			},
		})
		m.devices = append(m.devices, managedDevice{
			controller: c,
			breaker:    breaker,
			limiter:    NewWriteLimiter(cfg.WriteRPS, cfg.WriteBurst, name),
		})
	}
	return m
}

// Names returns the configured device names in order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.devices))
	for i, d := range m.devices {
		names[i] = d.controller.Name()
	}
	return names
}

// ReadPrimary returns the brightness reported by the first configured
// device. Its readback is the baseline for manual-change detection.
func (m *Manager) ReadPrimary(ctx context.Context) (int, error) {
	if len(m.devices) == 0 {
		return 0, fmt.Errorf("%w: %w", ErrUnreadable, ErrNoDevices)
	}
	primary := m.devices[0].controller
	v, err := primary.Read(ctx)
	if err != nil {
		metrics.DeviceReadErrors.WithLabelValues(primary.Name()).Inc()
		return 0, err
	}
	return v, nil
}

// WriteAll sends the clamped percentage to every device. Each device is
// attempted independently; the call succeeds when at least one device
// accepted the write. The returned count says how many did.
func (m *Manager) WriteAll(ctx context.Context, percent int) (int, error) {
	if len(m.devices) == 0 {
		return 0, ErrNoDevices
	}

	ctx, span := tracing.Tracer("device").Start(ctx, "device.write_all",
		trace.WithAttributes(attribute.Int("brightness.percent", percent)))
	defer span.End()

	accepted := 0
	var firstErr error
	for _, d := range m.devices {
		name := d.controller.Name()
		err := d.breaker.Do(func() error {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
			return d.controller.Write(ctx, percent)
		})
		if err != nil {
			metrics.DeviceWritesTotal.WithLabelValues(name, "error").Inc()
			if errors.Is(err, circuitbreaker.ErrOpen) {
				m.logger.Debug("device skipped, breaker open", "device", name)
			} else {
				m.logger.Error("brightness write failed", "device", name, "error", err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("device %q: %w", name, err)
			}
			continue
		}
		metrics.DeviceWritesTotal.WithLabelValues(name, "ok").Inc()
		accepted++
	}

	if accepted == 0 {
		span.RecordError(firstErr)
		return 0, firstErr
	}
	span.SetAttributes(attribute.Int("brightness.accepted", accepted))
	return accepted, nil
}
