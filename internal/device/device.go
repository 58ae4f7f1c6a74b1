// Package device reads and writes display brightness through the external
// tools the desktop already trusts: brightnessctl for internal panels,
// ddcutil for DDC/CI monitors.
package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pasikonik/sun-dimmer/internal/config"
	"github.com/pasikonik/sun-dimmer/internal/domain/model"
)

// ErrUnreadable is returned when a device's current brightness cannot be
// determined. Callers treat it as "skip drift detection this tick", not as
// a hard failure.
var ErrUnreadable = errors.New("brightness not readable")

// Controller drives one display.
type Controller interface {
	Name() string
	// Read returns the device's currently reported brightness percentage.
	Read(ctx context.Context) (int, error)
	// Write applies an already-clamped integer percentage.
	Write(ctx context.Context, percent int) error
}

var (
	brightnessctlPercent = regexp.MustCompile(`\((\d+)%\)`)
	ddcutilCurrentValue  = regexp.MustCompile(`current value =\s*(\d+)`)
)

// Laptop drives an internal panel via brightnessctl.
type Laptop struct {
	name   string
	runner Runner
}

func NewLaptop(name string, runner Runner) *Laptop {
	return &Laptop{name: name, runner: runner}
}

func (l *Laptop) Name() string { return l.name }

func (l *Laptop) Read(ctx context.Context) (int, error) {
	out, err := l.runner.Run(ctx, "brightnessctl", "info")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return parsePercent(brightnessctlPercent, out)
}

func (l *Laptop) Write(ctx context.Context, percent int) error {
	_, err := l.runner.Run(ctx, "brightnessctl", "set", fmt.Sprintf("%d%%", percent))
	if err != nil {
		return fmt.Errorf("set %q brightness: %w", l.name, err)
	}
	return nil
}

// Monitor drives an external display via ddcutil (VCP feature 0x10).
type Monitor struct {
	name    string
	display int
	runner  Runner
}

func NewMonitor(name string, display int, runner Runner) *Monitor {
	return &Monitor{name: name, display: display, runner: runner}
}

func (m *Monitor) Name() string { return m.name }

func (m *Monitor) Read(ctx context.Context) (int, error) {
	out, err := m.runner.Run(ctx, "ddcutil", "-d", strconv.Itoa(m.display), "getvcp", "10")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return parsePercent(ddcutilCurrentValue, out)
}

func (m *Monitor) Write(ctx context.Context, percent int) error {
	_, err := m.runner.Run(ctx, "ddcutil", "-d", strconv.Itoa(m.display), "setvcp", "10", strconv.Itoa(percent))
	if err != nil {
		return fmt.Errorf("set %q brightness: %w", m.name, err)
	}
	return nil
}

func parsePercent(re *regexp.Regexp, out string) (int, error) {
	match := re.FindStringSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("%w: no percentage in command output", ErrUnreadable)
	}
	v, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return v, nil
}

// FromConfig builds controllers for each configured device, preserving
// order: the first device stays authoritative for drift detection.
func FromConfig(devices []config.DeviceConfig, runner Runner) ([]Controller, error) {
	controllers := make([]Controller, 0, len(devices))
	for i, d := range devices {
		switch model.DeviceKind(d.Type) {
		case model.DeviceKindLaptop:
			controllers = append(controllers, NewLaptop(d.Name, runner))
		case model.DeviceKindMonitor:
			controllers = append(controllers, NewMonitor(d.Name, d.ID, runner))
		default:
			return nil, fmt.Errorf("devices[%d]: unknown type %q", i, d.Type)
		}
	}
	return controllers, nil
}
