package bluetooth

// ConnectionStatus is the connection state machine of a device record.
// Disconnected is both the initial and the terminal state.
type ConnectionStatus string

const (
	StatusDisconnected  ConnectionStatus = "disconnected"
	StatusConnecting    ConnectionStatus = "connecting"
	StatusConnected     ConnectionStatus = "connected"
	StatusDisconnecting ConnectionStatus = "disconnecting"
)

const DefaultDeviceIcon = "bluetooth"

// deviceTypeToIcon maps the BlueZ device type string to an icon class.
// Unknown types fall back to the generic bluetooth icon.
func deviceTypeToIcon(deviceType string) string {
	switch deviceType {
	case "computer":
		return "laptop"
	case "phone":
		return "smartphone"
	case "network-wireless":
		return "network-wireless"
	case "audio-headset":
		return "audio-headset"
	case "audio-headphones":
		return "audio-headphones"
	case "camera-video":
		return "camera-video"
	case "audio-card":
		return "audio-card"
	case "input-gaming":
		return "input-gaming"
	case "input-keyboard":
		return "input-keyboard"
	case "input-tablet":
		return "input-tablet"
	case "input-mouse":
		return "input-mouse"
	case "printer":
		return "printer-network"
	case "camera-photo":
		return "camera-photo"
	default:
		return DefaultDeviceIcon
	}
}

// DeviceProperties is the raw property set of a peripheral as reported by
// the platform service. Name and Icon may be empty when BlueZ has not
// resolved them yet.
type DeviceProperties struct {
	Name      string
	Icon      string
	Paired    bool
	Connected bool
	Battery   *uint8
}

// Device is the cached record of one known peripheral. The coordinator is
// its only writer.
type Device struct {
	Address     Address          `json:"address"`
	Name        string           `json:"name"`
	Icon        string           `json:"icon"`
	Status      ConnectionStatus `json:"status"`
	Battery     *uint8           `json:"battery,omitempty"`
	Paired      bool             `json:"paired"`
	DisplayCode string           `json:"displayCode,omitempty"`
}

// NewDevice builds a device record from the platform's property set.
// A missing name falls back to the stringified address; the icon class is
// derived once, here, and never changes afterwards.
func NewDevice(addr Address, props DeviceProperties) Device {
	name := props.Name
	if name == "" {
		name = string(addr)
	}

	status := StatusDisconnected
	if props.Connected {
		status = StatusConnected
	}

	return Device{
		Address: addr,
		Name:    name,
		Icon:    deviceTypeToIcon(props.Icon),
		Status:  status,
		Battery: props.Battery,
		Paired:  props.Paired,
	}
}

// Apply mutates the record with one update event.
func (d *Device) Apply(update DeviceUpdate) {
	switch update.Kind {
	case UpdateBattery:
		battery := update.Battery
		d.Battery = &battery
	case UpdatePaired:
		d.Paired = update.Flag
	case UpdateConnected:
		if update.Flag {
			d.Status = StatusConnected
		} else {
			d.Status = StatusDisconnected
		}
	case UpdateStatus:
		d.Status = update.Status
	case UpdateCode:
		d.DisplayCode = update.Code
	}
}
