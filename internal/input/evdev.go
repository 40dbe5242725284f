package input

import (
	"errors"
	"fmt"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

// evdevHandle adapts an evdev device to the Handle interface.
type evdevHandle struct {
	dev  *evdev.InputDevice
	kind DeviceKind
}

func (h *evdevHandle) Path() string     { return h.dev.Fn }
func (h *evdevHandle) Name() string     { return h.dev.Name }
func (h *evdevHandle) Kind() DeviceKind { return h.kind }
func (h *evdevHandle) Fd() int          { return int(h.dev.File.Fd()) }

// Grab takes exclusive delivery of the device's events and switches the
// descriptor to non-blocking mode for the multiplexed read loop.
func (h *evdevHandle) Grab() error {
	if err := h.dev.Grab(); err != nil {
		return classifyGrabError(err)
	}
	if err := unix.SetNonblock(h.Fd(), true); err != nil {
		h.dev.Release()
		return fmt.Errorf("input: set nonblock on %s: %w", h.Path(), err)
	}
	return nil
}

func (h *evdevHandle) Release() error {
	return h.dev.Release()
}

// ReadEvents drains available events. A would-block read yields an empty
// slice, not an error.
func (h *evdevHandle) ReadEvents() ([]RawEvent, error) {
	events, err := h.dev.Read()
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil, nil
		}
		return nil, err
	}

	raw := make([]RawEvent, 0, len(events))
	for _, ev := range events {
		raw = append(raw, RawEvent{Type: ev.Type, Code: ev.Code, Value: ev.Value})
	}
	return raw, nil
}

// classifyGrabError maps OS grab failures onto the package's sentinel
// errors while keeping the original cause in the chain.
func classifyGrabError(err error) error {
	switch {
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}
