// Package session orchestrates one input-sharing session: it registers
// the Bluetooth HID profile, grabs the local devices, and pumps captured
// events through the report encoder out to connected hosts.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/hidshare/internal/bluez"
	"github.com/chaz8081/hidshare/internal/config"
	"github.com/chaz8081/hidshare/internal/hid"
	"github.com/chaz8081/hidshare/internal/input"
)

// State is where the session currently is in its lifecycle.
type State int

const (
	Idle State = iota
	Registering
	Discoverable
	Active
	Stopping
	Error
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case Discoverable:
		return "discoverable"
	case Active:
		return "sharing"
	case Stopping:
		return "stopping"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Transport sends HID reports to Bluetooth hosts. bluez.Profile is the
// real implementation.
type Transport interface {
	Register() error
	Unregister() error
	SetDiscoverable(adapter string, on bool) error
	Send(report []byte)
	Peers() int
}

// Capture exclusively owns local input devices and emits normalized
// events. input.Engine is the real implementation.
type Capture interface {
	Grab(handles []input.Handle) error
	Release() error
	Start() error
	Stop() error
	Events() <-chan input.Event
	SetEscapeHook(fn func())
	HasPointer() bool
}

// Notifier receives session state changes for display. The detail string
// is operator-facing and may be empty.
type Notifier interface {
	SessionState(state State, detail string)
}

// Session drives start/stop of input sharing. Methods are safe to call
// from the UI goroutine and from the capture worker's escape hook.
type Session struct {
	cfg       *config.Config
	transport Transport
	capture   Capture
	locate    func() ([]input.Handle, error)
	notifier  Notifier
	enc       *hid.Encoder

	mu       sync.Mutex
	state    State
	stopPump chan struct{}
	pumpDone chan struct{}
}

// New wires a session from its parts. locate may be nil, in which case
// devices are found with input.Locate.
func New(cfg *config.Config, transport Transport, capture Capture, locate func() ([]input.Handle, error), notifier Notifier) *Session {
	if locate == nil {
		locate = input.Locate
	}
	s := &Session{
		cfg:       cfg,
		transport: transport,
		capture:   capture,
		locate:    locate,
		notifier:  notifier,
		enc:       hid.NewEncoder(),
	}
	capture.SetEscapeHook(func() {
		// Runs on the capture worker; stopping joins that worker, so
		// hop goroutines.
		go func() {
			if err := s.Stop(); err != nil {
				slog.Error("[session] stop after escape", "error", err)
			}
		}()
	})
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peers returns the number of connected hosts.
func (s *Session) Peers() int {
	return s.transport.Peers()
}

func (s *Session) setState(state State, detail string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	slog.Info("[session] state", "state", state.String(), "detail", detail)
	if s.notifier != nil {
		s.notifier.SessionState(state, detail)
	}
}

// Start brings the session up: register the HID profile, make the
// adapter discoverable, grab the local devices, and begin pumping
// events. Any failure unwinds what was already done and leaves the
// session in Error, from which Start may be retried. Starting an
// already-active session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != Idle && s.state != Error {
		s.mu.Unlock()
		return nil
	}
	s.state = Registering
	s.mu.Unlock()
	s.setState(Registering, "")

	s.enc.Reset()

	if err := s.transport.Register(); err != nil {
		detail := "profile registration failed"
		if errors.Is(err, bluez.ErrProfileConflict) {
			detail = "HID profile in use, disable the BlueZ input plugin"
		}
		s.setState(Error, detail)
		return err
	}

	// Discoverability is best-effort: pairing can be done out of band,
	// and already-paired hosts reconnect regardless.
	if err := s.transport.SetDiscoverable(s.cfg.Adapter, true); err != nil {
		slog.Warn("[session] could not make adapter discoverable", "error", err)
	}
	s.setState(Discoverable, "")

	handles, err := s.locate()
	if err != nil {
		s.unwind()
		s.setState(Error, "no usable input devices")
		return fmt.Errorf("session: locating devices: %w", err)
	}

	if err := s.capture.Grab(handles); err != nil {
		s.unwind()
		detail := "could not grab input devices"
		if errors.Is(err, input.ErrPermissionDenied) {
			detail = "permission denied on /dev/input, add the user to the input group"
		}
		s.setState(Error, detail)
		return fmt.Errorf("session: %w", err)
	}

	if err := s.capture.Start(); err != nil {
		s.capture.Release()
		s.unwind()
		s.setState(Error, "capture failed to start")
		return fmt.Errorf("session: %w", err)
	}

	s.mu.Lock()
	s.stopPump = make(chan struct{})
	s.pumpDone = make(chan struct{})
	go s.pump(s.capture.Events(), s.stopPump, s.pumpDone)
	s.mu.Unlock()

	s.setState(Active, "")
	return nil
}

// unwind reverts transport-side setup after a failed start.
func (s *Session) unwind() {
	if err := s.transport.SetDiscoverable(s.cfg.Adapter, false); err != nil {
		slog.Warn("[session] could not clear discoverable", "error", err)
	}
	if err := s.transport.Unregister(); err != nil {
		slog.Warn("[session] unregister during unwind", "error", err)
	}
}

// Stop tears the session down in reverse order of Start. Before letting
// go of the devices it sends all-zero reports so no key or button stays
// stuck down on the hosts. Errors are aggregated; the session always
// ends Idle. Stopping an idle session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return nil
	}
	s.state = Stopping
	stopPump, pumpDone := s.stopPump, s.pumpDone
	s.mu.Unlock()
	s.setState(Stopping, "")

	var errs []error

	if err := s.capture.Stop(); err != nil {
		errs = append(errs, err)
	}
	close(stopPump)
	<-pumpDone

	// All-clear reports: whatever was down when sharing ended must be
	// released on the hosts.
	s.enc.Reset()
	kb := s.enc.EncodeKeyboardState()
	s.transport.Send(kb[:])
	if s.capture.HasPointer() {
		ptr := s.enc.EncodePointerState()
		s.transport.Send(ptr[:])
	}

	if err := s.capture.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.transport.SetDiscoverable(s.cfg.Adapter, false); err != nil {
		slog.Warn("[session] could not clear discoverable", "error", err)
	}
	if err := s.transport.Unregister(); err != nil {
		errs = append(errs, err)
	}

	s.setState(Idle, "")
	return errors.Join(errs...)
}

// pump drains capture events into the encoder and sends the resulting
// reports. It owns the encoder while running.
func (s *Session) pump(events <-chan input.Event, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev input.Event) {
	switch ev.Kind {
	case input.KeyPress:
		report := s.enc.EncodeKey(hid.ScanCode(ev.Code), true)
		s.transport.Send(report[:])
	case input.KeyRelease:
		report := s.enc.EncodeKey(hid.ScanCode(ev.Code), false)
		s.transport.Send(report[:])
	case input.KeyRepeat:
		// Hosts synthesize their own auto-repeat from held keys.
	case input.ButtonPress:
		report := s.enc.EncodeButton(hid.ScanCode(ev.Code), true)
		s.transport.Send(report[:])
	case input.ButtonRelease:
		report := s.enc.EncodeButton(hid.ScanCode(ev.Code), false)
		s.transport.Send(report[:])
	case input.Motion:
		report := s.enc.EncodeMotion(motionAxis(ev.Axis), ev.Delta)
		s.transport.Send(report[:])
	}
}

func motionAxis(axis input.MotionAxis) hid.Axis {
	switch axis {
	case input.MotionY:
		return hid.AxisY
	case input.MotionWheel:
		return hid.AxisWheel
	default:
		return hid.AxisX
	}
}
