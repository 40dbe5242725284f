package input

import (
	"fmt"
	"log/slog"

	evdev "github.com/gvalkov/golang-evdev"
)

// DeviceKind tags what a located device is used as.
type DeviceKind int

const (
	Keyboard DeviceKind = iota
	Pointer
)

func (k DeviceKind) String() string {
	if k == Pointer {
		return "pointer"
	}
	return "keyboard"
}

// Handle is an exclusively grabbable input device. The concrete
// implementation wraps an evdev device; tests substitute their own.
type Handle interface {
	Path() string
	Name() string
	Kind() DeviceKind
	// Fd returns the file descriptor used for the multiplexed wait.
	Fd() int
	Grab() error
	Release() error
	// ReadEvents drains currently-available events without blocking.
	ReadEvents() ([]RawEvent, error)
}

// A sample of alphanumeric/enter codes: a device exposing any of these
// is keyboard-like, per the classification rules.
var keyboardSampleCodes = []int{
	30, // KEY_A
	48, // KEY_B
	46, // KEY_C
	2,  // KEY_1
	3,  // KEY_2
	28, // KEY_ENTER
}

var pointerButtonCodes = []int{
	0x110, // BTN_LEFT
	0x111, // BTN_RIGHT
	0x112, // BTN_MIDDLE
}

// classify decides what a device is from the set of key codes it can
// emit. A device with pointer buttons is a pointer regardless of other
// keys; a device with sample keyboard keys and no pointer buttons is a
// keyboard; anything else is neither.
func classify(keyCodes map[int]bool) (DeviceKind, bool) {
	hasButtons := false
	for _, code := range pointerButtonCodes {
		if keyCodes[code] {
			hasButtons = true
			break
		}
	}
	if hasButtons {
		return Pointer, true
	}

	for _, code := range keyboardSampleCodes {
		if keyCodes[code] {
			return Keyboard, true
		}
	}
	return 0, false
}

// Locate enumerates input devices and returns the first keyboard-like
// and first pointer-like device in enumeration order. Devices whose
// capabilities cannot be read are skipped. A missing pointer is
// tolerated (keyboard-only session); a missing keyboard is
// ErrDeviceNotFound.
func Locate() ([]Handle, error) {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return nil, fmt.Errorf("input: enumerating devices: %w", err)
	}

	var keyboard, pointer Handle
	for _, dev := range devices {
		keyCodes := keyCapabilities(dev)
		kind, ok := classify(keyCodes)
		if !ok {
			dev.File.Close()
			continue
		}

		switch {
		case kind == Keyboard && keyboard == nil:
			keyboard = &evdevHandle{dev: dev, kind: Keyboard}
			slog.Info("[locate] found keyboard", "name", dev.Name, "path", dev.Fn)
		case kind == Pointer && pointer == nil:
			pointer = &evdevHandle{dev: dev, kind: Pointer}
			slog.Info("[locate] found pointer", "name", dev.Name, "path", dev.Fn)
		default:
			// Later matches of an already-filled class are ignored.
			dev.File.Close()
		}
	}

	if keyboard == nil {
		if pointer != nil {
			pointer.(*evdevHandle).dev.File.Close()
		}
		return nil, ErrDeviceNotFound
	}

	handles := []Handle{keyboard}
	if pointer != nil {
		handles = append(handles, pointer)
	} else {
		slog.Warn("[locate] no pointer device found, sharing keyboard only")
	}
	return handles, nil
}

// keyCapabilities extracts the set of EV_KEY codes a device reports.
func keyCapabilities(dev *evdev.InputDevice) map[int]bool {
	codes := make(map[int]bool)
	for capType, caps := range dev.Capabilities {
		if capType.Type != evKey {
			continue
		}
		for _, c := range caps {
			codes[c.Code] = true
		}
	}
	return codes
}
