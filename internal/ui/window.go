// Package ui shows session status and the start/stop control. The
// graphical window is a thin shell over the session: all sharing logic
// lives behind the Controller interface.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"gioui.org/app"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/chaz8081/hidshare/internal/session"
)

// Controller is what the window drives. *session.Session satisfies it.
type Controller interface {
	Start() error
	Stop() error
	State() session.State
	Peers() int
}

// StatusWindow is the desktop status window: one button to start or
// stop sharing, the current state, and the escape-combination hint.
type StatusWindow struct {
	w    *app.Window
	th   *material.Theme
	hint string

	shareBtn widget.Clickable

	mu     sync.Mutex
	ctrl   Controller
	state  session.State
	detail string
}

// NewStatusWindow builds the window. hint describes the escape
// combination shown to the operator. Wire the controller with
// SetController before calling Run.
func NewStatusWindow(hint string) *StatusWindow {
	w := new(app.Window)
	w.Option(app.Title("HID Share"))
	w.Option(app.Size(unit.Dp(380), unit.Dp(220)))

	return &StatusWindow{
		w:    w,
		th:   material.NewTheme(),
		hint: hint,
	}
}

// SetController attaches the session the window drives. The window
// observes the session as its notifier, so the two are built in turn.
func (s *StatusWindow) SetController(ctrl Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
}

// SessionState implements session.Notifier. It may be called from any
// goroutine; it records the state and schedules a redraw.
func (s *StatusWindow) SessionState(state session.State, detail string) {
	s.mu.Lock()
	s.state = state
	s.detail = detail
	s.mu.Unlock()
	s.w.Invalidate()
}

// Run drives the window event loop until the window closes. Call from a
// dedicated goroutine, with app.Main() on the main one.
func (s *StatusWindow) Run() error {
	var ops op.Ops
	for {
		switch e := s.w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			s.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (s *StatusWindow) layout(gtx layout.Context) layout.Dimensions {
	s.mu.Lock()
	ctrl := s.ctrl
	state := s.state
	detail := s.detail
	s.mu.Unlock()

	if s.shareBtn.Clicked(gtx) && ctrl != nil {
		// Start and Stop block on device and bus work; keep the frame
		// loop responsive.
		if state == session.Active {
			go logControlError("stop", ctrl.Stop)
		} else if state == session.Idle || state == session.Error {
			go logControlError("start", ctrl.Start)
		}
	}

	btnLabel := "Start sharing"
	if state == session.Active {
		btnLabel = "Stop sharing"
	}

	peers := 0
	if ctrl != nil {
		peers = ctrl.Peers()
	}
	status := statusLine(state, peers)

	return layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(material.H6(s.th, "Keyboard & Mouse Sharing").Layout),
			layout.Rigid(layout.Spacer{Height: unit.Dp(12)}.Layout),
			layout.Rigid(material.Body1(s.th, status).Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if detail == "" {
					return layout.Dimensions{}
				}
				return material.Body2(s.th, detail).Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
			layout.Rigid(material.Button(s.th, &s.shareBtn, btnLabel).Layout),
			layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
			layout.Rigid(material.Caption(s.th, s.hint).Layout),
		)
	})
}

// logControlError runs a session control action and logs its error; the
// notifier carries the state change, the log carries the cause.
func logControlError(action string, fn func() error) {
	if err := fn(); err != nil {
		slog.Error("[ui] "+action+" failed", "error", err)
	}
}

func statusLine(state session.State, peers int) string {
	switch state {
	case session.Active:
		if peers == 1 {
			return "Sharing with 1 host"
		}
		return fmt.Sprintf("Sharing with %d hosts", peers)
	case session.Registering:
		return "Registering Bluetooth HID profile..."
	case session.Discoverable:
		return "Discoverable, waiting for devices..."
	case session.Stopping:
		return "Stopping..."
	case session.Error:
		return "Could not start sharing"
	default:
		return "Not sharing"
	}
}
