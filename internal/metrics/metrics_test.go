package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"ControllerTicksTotal", ControllerTicksTotal},
		{"ControllerTickErrors", ControllerTickErrors},
		{"ControllerTickDuration", ControllerTickDuration},
		{"SunAltitudeDegrees", SunAltitudeDegrees},
		{"BrightnessTarget", BrightnessTarget},
		{"UserOffset", UserOffset},
		{"ManualChangesDetected", ManualChangesDetected},
		{"DeviceWritesTotal", DeviceWritesTotal},
		{"DeviceReadErrors", DeviceReadErrors},
		{"DeviceRateLimitWaits", DeviceRateLimitWaits},
		{"DeviceBreakerOpen", DeviceBreakerOpen},
		{"LocationLookups", LocationLookups},
		{"StateSaveErrors", StateSaveErrors},
		{"NotificationsSent", NotificationsSent},
		{"NotificationsSuppressed", NotificationsSuppressed},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_UpdatesNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { ControllerTicksTotal.Inc() })
	assert.NotPanics(t, func() { ControllerTickErrors.Inc() })
	assert.NotPanics(t, func() { ControllerTickDuration.Observe(0.02) })
	assert.NotPanics(t, func() { SunAltitudeDegrees.Set(-6.2) })
	assert.NotPanics(t, func() { BrightnessTarget.Set(51) })
	assert.NotPanics(t, func() { UserOffset.Set(-10) })
	assert.NotPanics(t, func() { ManualChangesDetected.Inc() })
	assert.NotPanics(t, func() { DeviceWritesTotal.WithLabelValues("test-device", "ok").Inc() })
	assert.NotPanics(t, func() { DeviceReadErrors.WithLabelValues("test-device").Inc() })
	assert.NotPanics(t, func() { DeviceRateLimitWaits.WithLabelValues("test-device").Inc() })
	assert.NotPanics(t, func() { DeviceBreakerOpen.WithLabelValues("test-device").Set(1) })
	assert.NotPanics(t, func() { LocationLookups.WithLabelValues("geoclue", "ok").Inc() })
	assert.NotPanics(t, func() { StateSaveErrors.Inc() })
	assert.NotPanics(t, func() { NotificationsSent.WithLabelValues("manual_change").Inc() })
	assert.NotPanics(t, func() { NotificationsSuppressed.WithLabelValues("manual_change").Inc() })
}
