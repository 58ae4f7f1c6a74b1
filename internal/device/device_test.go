package device

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasikonik/sun-dimmer/internal/config"
)

// fakeRunner records invocations and plays back canned output per command
// name.
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.errs[name]; err != nil {
		return "", err
	}
	return f.outputs[name], nil
}

func TestLaptop_ReadParsesBrightnessctl(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.outputs["brightnessctl"] = "Device 'intel_backlight' of class 'backlight':\n" +
		"\tCurrent brightness: 48000 (50%)\n\tMax brightness: 96000\n"

	l := NewLaptop("Laptop screen", r)
	v, err := l.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, v)
	assert.Equal(t, []string{"brightnessctl", "info"}, r.calls[0])
}

func TestLaptop_WriteFormatsPercent(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	l := NewLaptop("Laptop screen", r)
	require.NoError(t, l.Write(context.Background(), 73))
	assert.Equal(t, []string{"brightnessctl", "set", "73%"}, r.calls[0])
}

func TestMonitor_ReadParsesDdcutil(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.outputs["ddcutil"] = "VCP code 0x10 (Brightness                    ): current value =    62, max value =   100\n"

	m := NewMonitor("External monitor", 1, r)
	v, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 62, v)
	assert.Equal(t, []string{"ddcutil", "-d", "1", "getvcp", "10"}, r.calls[0])
}

func TestMonitor_WriteUsesDisplayNumber(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	m := NewMonitor("External monitor", 2, r)
	require.NoError(t, m.Write(context.Background(), 40))
	assert.Equal(t, []string{"ddcutil", "-d", "2", "setvcp", "10", "40"}, r.calls[0])
}

func TestRead_UnparsableOutputIsUnreadable(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.outputs["brightnessctl"] = "no percentage here"

	l := NewLaptop("Laptop screen", r)
	_, err := l.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestRead_CommandFailureIsUnreadable(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.errs["ddcutil"] = errors.New("Display not found")

	m := NewMonitor("External monitor", 1, r)
	_, err := m.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.True(t, strings.Contains(err.Error(), "Display not found"))
}

func TestFromConfig_BuildsControllersInOrder(t *testing.T) {
	t.Parallel()

	controllers, err := FromConfig([]config.DeviceConfig{
		{Type: "laptop", Name: "Panel"},
		{Type: "monitor", ID: 1, Name: "Dell"},
	}, newFakeRunner())
	require.NoError(t, err)
	require.Len(t, controllers, 2)
	assert.Equal(t, "Panel", controllers[0].Name())
	assert.Equal(t, "Dell", controllers[1].Name())
	assert.IsType(t, &Laptop{}, controllers[0])
	assert.IsType(t, &Monitor{}, controllers[1])
}

func TestFromConfig_RejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := FromConfig([]config.DeviceConfig{{Type: "crt", Name: "Old"}}, newFakeRunner())
	assert.ErrorContains(t, err, "unknown type")
}
