package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Control-loop counters and gauges. Device-level metrics are partitioned by
// the configured device name.

var (
	// Controller
	ControllerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "ticks_total",
		Help:      "Total control loop ticks",
	})

	ControllerTickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "tick_errors_total",
		Help:      "Total ticks that ended in an unexpected error",
	})

	ControllerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "tick_duration_seconds",
		Help:      "Control loop tick processing duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	SunAltitudeDegrees = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "sun_altitude_degrees",
		Help:      "Sun altitude at the last tick",
	})

	BrightnessTarget = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "brightness_target_percent",
		Help:      "Quantized brightness last sent to devices",
	})

	UserOffset = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "user_offset_percent",
		Help:      "Current manual brightness offset",
	})

	ManualChangesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "controller",
		Name:      "manual_changes_detected_total",
		Help:      "Manual brightness changes absorbed into the offset",
	})

	// Devices
	DeviceWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "device",
		Name:      "writes_total",
		Help:      "Brightness write attempts by device and status",
	}, []string{"device", "status"})

	DeviceReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "device",
		Name:      "read_errors_total",
		Help:      "Failed brightness readbacks by device",
	}, []string{"device"})

	DeviceRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "device",
		Name:      "rate_limit_waits_total",
		Help:      "Writes delayed by the DDC/CI rate limiter",
	}, []string{"device"})

	DeviceBreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sundimmer",
		Subsystem: "device",
		Name:      "breaker_open",
		Help:      "1 when the device circuit breaker is open",
	}, []string{"device"})

	// Location
	LocationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "location",
		Name:      "lookups_total",
		Help:      "Location lookup attempts by provider and status",
	}, []string{"provider", "status"})

	// State persistence
	StateSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "state",
		Name:      "save_errors_total",
		Help:      "Failed state file writes",
	})

	// Notifications
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Desktop notifications sent by kind",
	}, []string{"kind"})

	NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sundimmer",
		Subsystem: "notify",
		Name:      "suppressed_total",
		Help:      "Notifications suppressed by the cooldown window",
	}, []string{"kind"})
)
