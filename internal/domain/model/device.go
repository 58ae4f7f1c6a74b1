package model

// DeviceKind identifies how a display's brightness is read and written.
type DeviceKind string

const (
	// DeviceKindLaptop is an internal panel controlled through brightnessctl.
	DeviceKindLaptop DeviceKind = "laptop"
	// DeviceKindMonitor is an external display controlled through ddcutil (DDC/CI).
	DeviceKindMonitor DeviceKind = "monitor"
)

func (k DeviceKind) String() string {
	return string(k)
}

// Valid reports whether the kind is one this daemon knows how to drive.
func (k DeviceKind) Valid() bool {
	return k == DeviceKindLaptop || k == DeviceKindMonitor
}

// Device describes one configured display. The first configured device is
// authoritative for manual-change detection; all devices receive writes.
type Device struct {
	Kind DeviceKind
	// DisplayNumber is the ddcutil display number for monitors. Unused for
	// laptop panels.
	DisplayNumber int
	Name          string
}
