package bluetooth

import (
	"sort"
	"sync"

	"github.com/nroccia/go-bluez-api/cache"
	"github.com/nroccia/go-bluez-api/events"
)

// View is the HTTP read model: a passive mirror of the coordinator's
// outbound events, so snapshot reads never touch coordinator state.
type View struct {
	devices *cache.Cache[Device]

	mu      sync.RWMutex
	powered bool
}

func NewView() *View {
	return &View{
		devices: cache.New[Device](0),
	}
}

// Apply folds one outbound event into the read model.
func (v *View) Apply(e events.Event) {
	switch e.Type {
	case events.TypeReady:
		if payload, ok := e.Data.(ReadyPayload); ok {
			v.setPowered(payload.Powered)
		}

	case events.TypeEnabled:
		if payload, ok := e.Data.(EnabledPayload); ok {
			v.setPowered(payload.Enabled)
		}

	case events.TypeDeviceMap:
		if devices, ok := e.Data.(map[Address]Device); ok {
			v.devices.Clear()
			for addr, device := range devices {
				v.devices.Set(string(addr), device)
			}
		}

	case events.TypeDeviceAdded:
		if device, ok := e.Data.(Device); ok {
			v.devices.Set(string(device.Address), device)
		}

	case events.TypeDeviceRemoved:
		if payload, ok := e.Data.(AddressPayload); ok {
			v.devices.Delete(string(payload.Address))
		}

	case events.TypeDeviceUpdate:
		if payload, ok := e.Data.(DeviceUpdatePayload); ok {
			if device, ok := v.devices.Get(string(payload.Address)); ok {
				device.Apply(payload.Update)
				v.devices.Set(string(payload.Address), device)
			}
		}
	}
}

// Devices returns the cached records sorted by name for stable output.
func (v *View) Devices() []Device {
	items := v.devices.Items()
	devices := make([]Device, 0, len(items))
	for _, device := range items {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].Address < devices[j].Address
	})
	return devices
}

func (v *View) Status() AdapterStatus {
	v.mu.RLock()
	powered := v.powered
	v.mu.RUnlock()

	return AdapterStatus{
		Powered: powered,
		Devices: v.devices.Len(),
	}
}

func (v *View) setPowered(powered bool) {
	v.mu.Lock()
	v.powered = powered
	v.mu.Unlock()
}
