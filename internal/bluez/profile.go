package bluez

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService        = "org.bluez"
	bluezRootPath       = dbus.ObjectPath("/org/bluez")
	profileManagerIface = "org.bluez.ProfileManager1"
	profileIface        = "org.bluez.Profile1"
	adapterIface        = "org.bluez.Adapter1"
	objectManagerIface  = "org.freedesktop.DBus.ObjectManager"
	propertiesIface     = "org.freedesktop.DBus.Properties"

	errNotPermitted = "org.bluez.Error.NotPermitted"

	// HIDP header prepended to every report on the wire:
	// DATA transaction (0xa0) | input report type (0x01).
	hidpDataInput = 0xa1
)

// bus is the slice of a D-Bus connection the profile needs. The concrete
// implementation wraps the system bus; tests substitute their own.
type bus interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	Call(dest string, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call
	Close() error
}

type systemBus struct {
	conn *dbus.Conn
}

func (b *systemBus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	return b.conn.Export(v, path, iface)
}

func (b *systemBus) Call(dest string, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	return b.conn.Object(dest, path).Call(method, 0, args...)
}

func (b *systemBus) Close() error {
	return b.conn.Close()
}

// peer is one connected host. The socket comes in from BlueZ as a unix
// fd on NewConnection and is closed exactly once.
type peer struct {
	sock io.WriteCloser
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() {
		if err := p.sock.Close(); err != nil {
			slog.Warn("[BT] closing peer socket", "error", err)
		}
	})
}

// Profile serves the BlueZ HID profile: it exports the Profile1 object,
// registers it with ProfileManager1, tracks connected hosts, and fans
// reports out to them.
type Profile struct {
	bus      bus
	name     string
	provider string
	path     dbus.ObjectPath

	mu         sync.Mutex
	peers      map[string]*peer
	registered bool
}

// Connect opens the system bus and builds an unregistered Profile. The
// service name and provider end up in the SDP record shown to hosts;
// path is the D-Bus object path the profile is exported at.
func Connect(name, provider, path string) (*Profile, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connecting system bus: %w", err)
	}
	return newProfile(&systemBus{conn: conn}, name, provider, dbus.ObjectPath(path)), nil
}

func newProfile(b bus, name, provider string, path dbus.ObjectPath) *Profile {
	return &Profile{
		bus:      b,
		name:     name,
		provider: provider,
		path:     path,
		peers:    make(map[string]*peer),
	}
}

// profileHandler is the object exported on the bus. Only the three
// Profile1 methods are visible to BlueZ.
type profileHandler struct {
	p *Profile
}

// NewConnection receives the L2CAP socket for a freshly connected host.
func (h *profileHandler) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	sock := os.NewFile(uintptr(fd), string(device))
	if sock == nil {
		return dbus.MakeFailedError(fmt.Errorf("invalid fd for %s", device))
	}
	h.p.addPeer(string(device), sock)
	return nil
}

// RequestDisconnection drops a host. Unknown devices are a no-op.
func (h *profileHandler) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	h.p.removePeer(string(device))
	return nil
}

// Release is BlueZ telling us the profile is being torn down.
func (h *profileHandler) Release() *dbus.Error {
	slog.Info("[BT] profile released by bluetoothd")
	h.p.closePeers()
	return nil
}

// Register exports the Profile1 object and registers it under the HID
// UUID with the SDP record attached. A UUID conflict comes back as
// ErrProfileConflict.
func (p *Profile) Register() error {
	if err := p.bus.Export(&profileHandler{p: p}, p.path, profileIface); err != nil {
		return fmt.Errorf("bluez: exporting profile object: %w", err)
	}

	opts := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant("HID"),
		"Service":               dbus.MakeVariant(ProfileUUID),
		"Role":                  dbus.MakeVariant("server"),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
		"AutoConnect":           dbus.MakeVariant(true),
		"ServiceRecord":         dbus.MakeVariant(serviceRecord(p.name, p.provider)),
	}

	call := p.bus.Call(bluezService, bluezRootPath,
		profileManagerIface+".RegisterProfile", p.path, ProfileUUID, opts)
	if call.Err != nil {
		return classifyRegisterError(call.Err)
	}

	p.mu.Lock()
	p.registered = true
	p.mu.Unlock()
	slog.Info("[BT] HID profile registered", "path", p.path)
	return nil
}

func classifyRegisterError(err error) error {
	var dbusErr dbus.Error
	errors.As(err, &dbusErr)
	if dbusErr.Name == errNotPermitted || strings.Contains(strings.ToLower(err.Error()), "already registered") {
		return fmt.Errorf("%w: %s (%v)", ErrProfileConflict, ProfileConflictHint, err)
	}
	return fmt.Errorf("bluez: registering profile: %w", err)
}

// Send fans one report out to every connected host with the HIDP data
// header prepended. A write failure drops that peer and the fan-out
// continues; with no peers connected it is a no-op.
func (p *Profile) Send(report []byte) {
	frame := make([]byte, 0, len(report)+1)
	frame = append(frame, hidpDataInput)
	frame = append(frame, report...)

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pr := range p.peers {
		if _, err := pr.sock.Write(frame); err != nil {
			slog.Warn("[BT] write to host failed, dropping", "device", id, "error", err)
			pr.close()
			delete(p.peers, id)
		}
	}
}

// Peers returns the number of connected hosts.
func (p *Profile) Peers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}

func (p *Profile) addPeer(id string, sock io.WriteCloser) {
	p.mu.Lock()
	if old, ok := p.peers[id]; ok {
		old.close()
	}
	p.peers[id] = &peer{sock: sock}
	n := len(p.peers)
	p.mu.Unlock()
	slog.Info("[BT] host connected", "device", id, "peers", n)
}

func (p *Profile) removePeer(id string) {
	p.mu.Lock()
	pr, ok := p.peers[id]
	if ok {
		delete(p.peers, id)
	}
	n := len(p.peers)
	p.mu.Unlock()
	if !ok {
		return
	}
	pr.close()
	slog.Info("[BT] host disconnected", "device", id, "peers", n)
}

func (p *Profile) closePeers() {
	p.mu.Lock()
	peers := p.peers
	p.peers = make(map[string]*peer)
	p.mu.Unlock()
	for _, pr := range peers {
		pr.close()
	}
}

// Unregister removes the profile registration and disconnects all
// hosts. The bus connection stays open so the profile can be registered
// again. Safe to call when Register was never called or failed.
func (p *Profile) Unregister() error {
	p.mu.Lock()
	registered := p.registered
	p.registered = false
	p.mu.Unlock()

	p.closePeers()
	if !registered {
		return nil
	}

	call := p.bus.Call(bluezService, bluezRootPath,
		profileManagerIface+".UnregisterProfile", p.path)
	if call.Err != nil {
		return fmt.Errorf("bluez: unregistering profile: %w", call.Err)
	}
	slog.Info("[BT] HID profile unregistered")
	return nil
}

// Close unregisters if needed and closes the bus connection.
func (p *Profile) Close() error {
	if err := p.Unregister(); err != nil {
		slog.Warn("[BT] unregister on close", "error", err)
	}
	return p.bus.Close()
}
