package input

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// HotplugKind says whether a device node appeared or went away.
type HotplugKind int

const (
	DeviceAdded HotplugKind = iota
	DeviceRemoved
)

// HotplugEvent reports a change to a /dev/input event node.
type HotplugEvent struct {
	Kind HotplugKind
	Path string
}

// Monitor watches the input device directory and reports event-node
// hotplug. It is best-effort: sessions use it only to surface status
// when a grabbed device disappears.
type Monitor struct {
	watcher *fsnotify.Watcher
	events  chan HotplugEvent
	done    chan struct{}
}

// NewMonitor starts watching dir (normally /dev/input).
func NewMonitor(dir string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("input: creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("input: watching %s: %w", dir, err)
	}

	m := &Monitor{
		watcher: watcher,
		events:  make(chan HotplugEvent, 16),
		done:    make(chan struct{}),
	}
	go m.loop()
	return m, nil
}

// Events returns the hotplug event channel. It is closed by Close.
func (m *Monitor) Events() <-chan HotplugEvent {
	return m.events
}

func (m *Monitor) loop() {
	defer close(m.events)

	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			var kind HotplugKind
			switch {
			case ev.Op.Has(fsnotify.Create):
				kind = DeviceAdded
			case ev.Op.Has(fsnotify.Remove):
				kind = DeviceRemoved
			default:
				continue
			}
			select {
			case m.events <- HotplugEvent{Kind: kind, Path: ev.Name}:
			default:
				// A missed hotplug notification is harmless.
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[monitor] watch error", "error", err)
		}
	}
}

// Close stops the monitor.
func (m *Monitor) Close() error {
	close(m.done)
	return m.watcher.Close()
}
