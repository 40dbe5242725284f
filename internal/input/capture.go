package input

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Options tunes the capture engine.
type Options struct {
	PollInterval time.Duration // multiplexed wait quantum
	StopTimeout  time.Duration // worker join timeout
	QueueSize    int           // buffered event channel size
	EscapeKeys   []uint16      // scan codes that, all held, stop sharing
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval: 100 * time.Millisecond,
		StopTimeout:  2 * time.Second,
		QueueSize:    256,
		EscapeKeys:   []uint16{42, 57, 54}, // leftshift, space, rightshift
	}
}

// Engine exclusively holds a set of input devices and runs one worker
// that multiplexes over them, emitting normalized events on a buffered
// channel. The worker observes a stop request within one poll quantum.
type Engine struct {
	opts   Options
	escape map[uint16]struct{}

	mu      sync.Mutex
	handles []Handle
	grabbed bool
	running bool
	stop    chan struct{}
	done    chan struct{}

	events     chan Event
	escapeHook func()

	// Worker-owned; tracks down keys for escape detection only.
	down map[uint16]struct{}
}

// NewEngine creates an Engine. Zero option fields fall back to defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = def.StopTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if len(opts.EscapeKeys) == 0 {
		opts.EscapeKeys = def.EscapeKeys
	}

	escape := make(map[uint16]struct{}, len(opts.EscapeKeys))
	for _, code := range opts.EscapeKeys {
		escape[code] = struct{}{}
	}

	return &Engine{
		opts:   opts,
		escape: escape,
		events: make(chan Event, opts.QueueSize),
		down:   make(map[uint16]struct{}),
	}
}

// Events returns the channel carrying normalized events.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// SetEscapeHook registers the function invoked from the worker the
// instant the escape combination is fully held. The hook must not block;
// it typically kicks off a stop on another goroutine.
func (e *Engine) SetEscapeHook(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.escapeHook = fn
}

// HasPointer reports whether a pointer device is among the grabbed set.
func (e *Engine) HasPointer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.handles {
		if h.Kind() == Pointer {
			return true
		}
	}
	return false
}

// Grab takes exclusive ownership of all given devices, or none: if any
// grab fails, every grab already taken is released before returning.
func (e *Engine) Grab(handles []Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.grabbed {
		return fmt.Errorf("input: devices already grabbed")
	}

	var taken []Handle
	for _, h := range handles {
		if err := h.Grab(); err != nil {
			for _, t := range taken {
				if rerr := t.Release(); rerr != nil {
					slog.Warn("[capture] rollback release failed", "path", t.Path(), "error", rerr)
				}
			}
			return fmt.Errorf("input: grabbing %s (%s): %w", h.Path(), h.Kind(), err)
		}
		taken = append(taken, h)
		slog.Info("[capture] grabbed device", "name", h.Name(), "path", h.Path(), "kind", h.Kind().String())
	}

	e.handles = taken
	e.grabbed = true
	return nil
}

// Release ungrabs all held devices. Each handle is released exactly
// once; release errors are logged and aggregated, never fatal.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.grabbed {
		return nil
	}

	var firstErr error
	for _, h := range e.handles {
		if err := h.Release(); err != nil {
			slog.Warn("[capture] release failed", "path", h.Path(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			slog.Info("[capture] released device", "path", h.Path())
		}
	}
	e.handles = nil
	e.grabbed = false
	return firstErr
}

// Start spawns the capture worker. Devices must be grabbed first.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	if !e.grabbed {
		return ErrNotGrabbed
	}

	if e.done != nil {
		select {
		case <-e.done:
		default:
			// A previous worker missed its join timeout and is still
			// winding down; it may yet touch the key-state map.
			return fmt.Errorf("input: previous capture worker has not exited")
		}
	}

	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.running = true
	clear(e.down)

	// The worker gets its own copy of the handle slice: it drops dead
	// devices from its working set, while Release must still see every
	// grabbed handle exactly once.
	go e.loop(append([]Handle(nil), e.handles...), e.stop, e.done)
	slog.Info("[capture] started", "devices", len(e.handles))
	return nil
}

// Stop asks the worker to exit and waits for it up to the configured
// join timeout. A timed-out join is logged, not fatal.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
		slog.Info("[capture] stopped")
	case <-time.After(e.opts.StopTimeout):
		slog.Warn("[capture] worker did not stop within timeout", "timeout", e.opts.StopTimeout)
	}
	return nil
}

// loop is the worker: a bounded multiplexed wait over all grabbed
// descriptors, so a stop request is seen within one quantum without
// busy-polling.
func (e *Engine) loop(handles []Handle, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timeout := unix.NsecToTimeval(e.opts.PollInterval.Nanoseconds())

	for {
		select {
		case <-stop:
			return
		default:
		}

		var fds unix.FdSet
		maxFd := 0
		for _, h := range handles {
			fd := h.Fd()
			fds.Set(fd)
			if fd > maxFd {
				maxFd = fd
			}
		}

		tv := timeout
		n, err := unix.Select(maxFd+1, &fds, nil, nil, &tv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			slog.Error("[capture] select failed", "error", err)
			return
		}
		if n == 0 {
			continue // quantum elapsed with no events; re-check stop
		}

		for _, h := range handles {
			if !fds.IsSet(h.Fd()) {
				continue
			}
			raws, err := h.ReadEvents()
			if err != nil {
				// Device unplugged or read error: drop it from the set
				// rather than spinning on a dead descriptor.
				slog.Warn("[capture] device read failed", "path", h.Path(), "error", err)
				handles = e.dropHandle(handles, h)
				if len(handles) == 0 {
					slog.Error("[capture] all devices lost, capture ends")
					return
				}
				continue
			}
			for _, raw := range raws {
				e.handleRaw(raw)
			}
		}
	}
}

// handleRaw normalizes one raw event, runs escape detection, and
// forwards the event. The event completing the escape combination is
// suppressed: the hook fires and nothing is forwarded downstream.
func (e *Engine) handleRaw(raw RawEvent) {
	ev, ok := normalize(raw)
	if !ok {
		return
	}

	switch ev.Kind {
	case KeyPress:
		e.down[ev.Code] = struct{}{}
		if e.escapeSatisfied() {
			slog.Info("[capture] escape combination detected")
			e.mu.Lock()
			hook := e.escapeHook
			e.mu.Unlock()
			if hook != nil {
				hook()
			}
			return
		}
	case KeyRelease:
		delete(e.down, ev.Code)
	}

	select {
	case e.events <- ev:
	default:
		slog.Warn("[capture] event queue full, dropping event")
	}
}

// escapeSatisfied reports whether every escape key is currently down.
// It is a pure predicate over the worker's key set.
func (e *Engine) escapeSatisfied() bool {
	for code := range e.escape {
		if _, ok := e.down[code]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) dropHandle(handles []Handle, dead Handle) []Handle {
	out := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if h != dead {
			out = append(out, h)
		}
	}
	return out
}
