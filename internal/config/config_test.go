package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 52.3821038, cfg.Location.ManualLatitude, 1e-9)
	assert.Equal(t, 300, cfg.System.UpdateIntervalSec)
	assert.Equal(t, 15, cfg.System.LogBeforeChangeMinutes)
	assert.Len(t, cfg.Devices, 2)

	// The defaults must have been materialized for the user to edit.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
brightness:
  min_brightness: 10
  max_brightness: 90
  sun_down_alt: -4
  sun_high_alt: 25
  manual_change_tolerance: 3
system:
  update_interval: 120
devices:
  - type: laptop
    name: Panel
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Brightness.MinBrightness)
	assert.Equal(t, 90.0, cfg.Brightness.MaxBrightness)
	assert.Equal(t, 3.0, cfg.Brightness.ManualChangeTolerance)
	assert.Equal(t, 120, cfg.System.UpdateIntervalSec)
	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "Panel", cfg.Devices[0].Name)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.System.LogLevel)
}

func TestLoad_RejectsInvertedBrightnessBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
brightness:
  min_brightness: 80
  max_brightness: 20
  sun_down_alt: -6
  sun_high_alt: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "min_brightness")
}

func TestLoad_RejectsInvertedAltitudes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
brightness:
  min_brightness: 1
  max_brightness: 100
  sun_down_alt: 30
  sun_high_alt: -6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "sun_down_alt")
}

func TestLoad_RejectsUnknownDeviceType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
devices:
  - type: hologram
    name: Weird
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown type")
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{nope"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUN_DIMMER_UPDATE_INTERVAL", "45")
	t.Setenv("SUN_DIMMER_LATITUDE", "50.06")
	t.Setenv("SUN_DIMMER_TRACING_ENDPOINT", "localhost:4317")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.System.UpdateIntervalSec)
	assert.InDelta(t, 50.06, cfg.Location.ManualLatitude, 1e-9)
	assert.True(t, cfg.Tracing.Enabled, "setting an endpoint enables tracing")
}

func TestSystemConfig_ErrorBackoffCappedAtInterval(t *testing.T) {
	t.Parallel()

	s := SystemConfig{UpdateIntervalSec: 30, ErrorBackoffSec: 60}
	assert.Equal(t, s.UpdateInterval(), s.ErrorBackoff())

	s = SystemConfig{UpdateIntervalSec: 300, ErrorBackoffSec: 60}
	assert.Less(t, s.ErrorBackoff(), s.UpdateInterval())
}

func TestLoad_RejectsOutOfRangeCoordinates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
location:
  manual_latitude: 123.0
  manual_longitude: 10.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "out of range")
}
