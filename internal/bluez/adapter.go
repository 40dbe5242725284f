package bluez

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

// findAdapter walks the BlueZ object tree for an Adapter1 object. With
// an empty hint the first adapter wins; otherwise the hint must match
// the trailing path component (e.g. "hci0").
func (p *Profile) findAdapter(hint string) (dbus.ObjectPath, error) {
	call := p.bus.Call(bluezService, "/", objectManagerIface+".GetManagedObjects")
	if call.Err != nil {
		return "", fmt.Errorf("bluez: listing objects: %w", call.Err)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := call.Store(&objects); err != nil {
		return "", fmt.Errorf("bluez: decoding object tree: %w", err)
	}

	for path, ifaces := range objects {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if hint == "" || strings.HasSuffix(string(path), "/"+hint) {
			return path, nil
		}
	}
	if hint != "" {
		return "", fmt.Errorf("%w: no adapter matching %q", ErrAdapterUnavailable, hint)
	}
	return "", ErrAdapterUnavailable
}

// SetDiscoverable flips the adapter's Discoverable property, and makes
// it Pairable when turning discoverability on. Hosts can only initiate
// a fresh connection while the adapter is discoverable.
func (p *Profile) SetDiscoverable(adapterHint string, on bool) error {
	path, err := p.findAdapter(adapterHint)
	if err != nil {
		return err
	}

	if err := p.setAdapterProp(path, "Discoverable", on); err != nil {
		return fmt.Errorf("bluez: setting Discoverable on %s: %w", path, err)
	}
	if on {
		if err := p.setAdapterProp(path, "Pairable", true); err != nil {
			return fmt.Errorf("bluez: setting Pairable on %s: %w", path, err)
		}
	}

	slog.Info("[BT] adapter discoverable", "adapter", path, "discoverable", on)
	return nil
}

func (p *Profile) setAdapterProp(path dbus.ObjectPath, prop string, value bool) error {
	call := p.bus.Call(bluezService, path,
		propertiesIface+".Set", adapterIface, prop, dbus.MakeVariant(value))
	return call.Err
}
