package bluetooth

import (
	"context"
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/nroccia/go-bluez-api/logger"
)

func (p *bluezPlatform) adapter() dbus.BusObject {
	return p.conn.Object(BLUETOOTH_PREFIX, p.adapterPath)
}

func (p *bluezPlatform) device(addr Address) dbus.BusObject {
	return p.conn.Object(BLUETOOTH_PREFIX, p.devicePath(addr))
}

// devicePath maps an address to the BlueZ device object path
// (AA:BB:CC:DD:EE:FF -> <adapter>/dev_AA_BB_CC_DD_EE_FF).
func (p *bluezPlatform) devicePath(addr Address) dbus.ObjectPath {
	return dbus.ObjectPath(string(p.adapterPath) + "/dev_" + strings.ReplaceAll(string(addr), ":", "_"))
}

// addressFromPath is the inverse of devicePath. ok is false for paths
// outside this adapter's device namespace.
func (p *bluezPlatform) addressFromPath(objPath dbus.ObjectPath) (Address, bool) {
	prefix := string(p.adapterPath) + "/dev_"
	raw, found := strings.CutPrefix(string(objPath), prefix)
	if !found || raw == "" || strings.ContainsRune(raw, '/') {
		return "", false
	}
	return Address(strings.ReplaceAll(raw, "_", ":")), true
}

func (p *bluezPlatform) ownsDevice(objPath dbus.ObjectPath) bool {
	_, ok := p.addressFromPath(objPath)
	return ok
}

// callWithTimeout bounds a D-Bus call with the configured timeout so a stuck
// bluetoothd cannot wedge the coordinator.
func (p *bluezPlatform) callWithTimeout(obj dbus.BusObject, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	call := obj.CallWithContext(ctx, method, 0, args...)
	if errors.Is(call.Err, context.DeadlineExceeded) {
		call.Err = &dbusTimeoutError{}
	}
	return call
}

func (p *bluezPlatform) getProperty(obj dbus.BusObject, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	call := p.callWithTimeout(obj, DBUS_PROP_GET, iface, prop)
	if call.Err != nil {
		return dbus.Variant{}, call.Err
	}
	if err := call.Store(&v); err != nil {
		return dbus.Variant{}, err
	}
	return v, nil
}

func (p *bluezPlatform) setProperty(obj dbus.BusObject, iface, prop string, value interface{}) error {
	return p.callWithTimeout(obj, DBUS_PROP_SET, iface, prop, dbus.MakeVariant(value)).Err
}

func (p *bluezPlatform) getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	objManager := p.conn.Object(BLUETOOTH_PREFIX, "/")
	var managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := p.callWithTimeout(objManager, MANAGED_OBJECTS); call.Err != nil {
		return nil, call.Err
	} else if err := call.Store(&managedObjects); err != nil {
		return nil, err
	}
	return managedObjects, nil
}

func extractString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func extractBool(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// dispatch translates raw bus signals into typed adapter events and routed
// per-device updates. It is the only reader of the raw signal channel.
func (p *bluezPlatform) dispatch() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			p.handleSignal(sig)
		}
	}
}

func (p *bluezPlatform) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case DBUS_PROP_CHANGED_SIGNAL:
		p.handlePropertiesChanged(sig)
	case INTERFACES_ADDED_SIGNAL:
		p.handleInterfacesAdded(sig)
	case INTERFACES_REMOVED_SIGNAL:
		p.handleInterfacesRemoved(sig)
	}
}

func (p *bluezPlatform) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	switch iface {
	case BLUETOOTH_ADAPTER:
		if sig.Path != p.adapterPath {
			return
		}
		if v, ok := changed[BT_PROP_POWERED]; ok {
			if powered, ok := v.Value().(bool); ok {
				p.emitAdapterEvent(AdapterEvent{Kind: AdapterPowered, Powered: powered})
			}
		}

	case BLUETOOTH_DEVICE:
		addr, ok := p.addressFromPath(sig.Path)
		if !ok {
			return
		}
		if v, ok := changed[BT_PROP_CONNECTED]; ok {
			if connected, ok := v.Value().(bool); ok {
				p.routeDeviceUpdate(addr, ConnectedUpdate(connected))
			}
		}
		if v, ok := changed[BT_PROP_PAIRED]; ok {
			if paired, ok := v.Value().(bool); ok {
				p.routeDeviceUpdate(addr, PairedUpdate(paired))
			}
		}

	case BLUETOOTH_BATTERY:
		addr, ok := p.addressFromPath(sig.Path)
		if !ok {
			return
		}
		if v, ok := changed[BT_PROP_PERCENTAGE]; ok {
			if pct, ok := v.Value().(byte); ok {
				p.routeDeviceUpdate(addr, BatteryUpdate(pct))
			}
		}
	}
}

func (p *bluezPlatform) handleInterfacesAdded(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	objPath, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	if _, isDevice := ifaces[BLUETOOTH_DEVICE]; !isDevice {
		return
	}
	if addr, ok := p.addressFromPath(objPath); ok {
		p.emitAdapterEvent(AdapterEvent{Kind: AdapterDeviceAdded, Addr: addr})
	}
}

func (p *bluezPlatform) handleInterfacesRemoved(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	objPath, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].([]string)
	if !ok {
		return
	}
	for _, iface := range ifaces {
		if iface == BLUETOOTH_DEVICE {
			if addr, ok := p.addressFromPath(objPath); ok {
				p.emitAdapterEvent(AdapterEvent{Kind: AdapterDeviceRemoved, Addr: addr})
			}
			return
		}
	}
}

// emitAdapterEvent forwards to the steady-state stream and, when a discovery
// session is active, mirrors device add/remove onto its channel as well. The
// coordinator handles the duplicates idempotently.
func (p *bluezPlatform) emitAdapterEvent(event AdapterEvent) {
	select {
	case p.adapterEvents <- event:
	default:
		logger.Warn("[bluetooth] adapter event channel full, dropping event")
	}

	if event.Kind == AdapterPowered {
		return
	}

	// The non-blocking send happens under the lock so the unsubscribe path
	// cannot close the channel mid-send.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discovery != nil {
		select {
		case p.discovery <- event:
		default:
			logger.Warn("[bluetooth] discovery channel full, dropping event")
		}
	}
}

func (p *bluezPlatform) routeDeviceUpdate(addr Address, update DeviceUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := p.subscribers[addr]
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
		logger.Warn("[bluetooth] update channel for %s full, dropping %s update", addr, update.Kind)
	}
}
