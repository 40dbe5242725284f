package bluez

import "errors"

var (
	// ErrProfileConflict means another process already owns the HID
	// profile UUID, almost always bluetoothd's built-in input plugin.
	ErrProfileConflict = errors.New("bluez: HID profile already registered")

	// ErrAdapterUnavailable means no powered Bluetooth adapter was found
	// on the system bus.
	ErrAdapterUnavailable = errors.New("bluez: no bluetooth adapter found")
)

// ProfileConflictHint tells the operator how to free the HID UUID.
const ProfileConflictHint = "the HID profile UUID is in use (usually by BlueZ's input plugin); " +
	"restart bluetoothd with the input plugin disabled, e.g. ExecStart=/usr/libexec/bluetooth/bluetoothd -P input"
