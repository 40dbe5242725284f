package input

import "errors"

var (
	// ErrDeviceNotFound is returned when no keyboard-like device exists.
	ErrDeviceNotFound = errors.New("input: no keyboard device found")

	// ErrDeviceBusy is returned when another process holds an exclusive
	// grab on a device we need.
	ErrDeviceBusy = errors.New("input: device busy")

	// ErrPermissionDenied is returned when the process may not read or
	// grab a device (typically: not in the "input" group and not root).
	ErrPermissionDenied = errors.New("input: permission denied")

	// ErrNotGrabbed is returned by Start when no devices are held.
	ErrNotGrabbed = errors.New("input: no devices grabbed")
)
