package input

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitHotplug(t *testing.T, ch <-chan HotplugEvent) HotplugEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hotplug event")
		return HotplugEvent{}
	}
}

func TestMonitorReportsEventNodes(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMonitor(dir)
	require.NoError(t, err)
	defer m.Close()

	path := filepath.Join(dir, "event7")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ev := waitHotplug(t, m.Events())
	assert.Equal(t, DeviceAdded, ev.Kind)
	assert.Equal(t, path, ev.Path)

	require.NoError(t, os.Remove(path))
	ev = waitHotplug(t, m.Events())
	assert.Equal(t, DeviceRemoved, ev.Kind)
	assert.Equal(t, path, ev.Path)
}

func TestMonitorIgnoresOtherNodes(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMonitor(dir)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mouse0"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mice"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "event3"), nil, 0o644))

	// Only the event node shows up.
	ev := waitHotplug(t, m.Events())
	assert.Equal(t, DeviceAdded, ev.Kind)
	assert.Equal(t, filepath.Join(dir, "event3"), ev.Path)
}

func TestMonitorMissingDir(t *testing.T) {
	_, err := NewMonitor(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
