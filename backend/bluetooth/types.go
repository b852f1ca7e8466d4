package bluetooth

// Address is the stable hardware address of a peripheral ("XX:XX:XX:XX:XX:XX").
type Address string

// RequestKind discriminates inbound coordinator requests.
type RequestKind int

const (
	RequestSetDiscovery RequestKind = iota
	RequestConnectDevice
	RequestDisconnectDevice
	RequestCancelConnect
	RequestSetEnabled
	RequestConfirmCode
)

// Request is one inbound command for the coordinator. Addr is set for the
// per-device kinds, Flag carries the bool of SetDiscovery, SetEnabled and
// ConfirmCode (accept).
type Request struct {
	Kind RequestKind
	Addr Address
	Flag bool
}

// UpdateKind discriminates per-device update events.
type UpdateKind string

const (
	UpdateBattery   UpdateKind = "battery"
	UpdatePaired    UpdateKind = "paired"
	UpdateConnected UpdateKind = "connected"
	// UpdateStatus and UpdateCode are emitted by the coordinator only,
	// never by a device listener.
	UpdateStatus UpdateKind = "status"
	UpdateCode   UpdateKind = "code"
)

// DeviceUpdate is one typed change to a device record.
type DeviceUpdate struct {
	Kind    UpdateKind       `json:"kind"`
	Battery uint8            `json:"battery,omitempty"`
	Flag    bool             `json:"flag,omitempty"`
	Status  ConnectionStatus `json:"status,omitempty"`
	Code    string           `json:"code,omitempty"`
}

func BatteryUpdate(percent uint8) DeviceUpdate {
	return DeviceUpdate{Kind: UpdateBattery, Battery: percent}
}

func PairedUpdate(paired bool) DeviceUpdate {
	return DeviceUpdate{Kind: UpdatePaired, Flag: paired}
}

func ConnectedUpdate(connected bool) DeviceUpdate {
	return DeviceUpdate{Kind: UpdateConnected, Flag: connected}
}

func statusUpdate(status ConnectionStatus) DeviceUpdate {
	return DeviceUpdate{Kind: UpdateStatus, Status: status}
}

func codeUpdate(code string) DeviceUpdate {
	return DeviceUpdate{Kind: UpdateCode, Code: code}
}

// deviceSignal is a listener-forwarded update tagged with its origin.
type deviceSignal struct {
	Addr   Address
	Update DeviceUpdate
}

// ConfirmRequest is a pairing confirmation challenge surfaced by the agent.
// Reply is single-use: exactly one send (or close, read as reject) decides it.
type ConfirmRequest struct {
	Addr  Address
	Code  string
	Reply chan bool
}

// Outbound event payloads.

type ReadyPayload struct {
	Powered bool `json:"powered"`
}

type AddressPayload struct {
	Address Address `json:"address"`
}

type DeviceUpdatePayload struct {
	Address Address      `json:"address"`
	Update  DeviceUpdate `json:"update"`
}

type EnabledPayload struct {
	Enabled bool `json:"enabled"`
}

type ConfirmCodePayload struct {
	Address Address `json:"address"`
	Code    string  `json:"code"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type AdapterStatus struct {
	Powered bool `json:"powered"`
	Devices int  `json:"devices"`
}

type dbusTimeoutError struct{}

func (e *dbusTimeoutError) Error() string {
	return "D-Bus call timeout"
}

type adapterNotFoundError struct{}

func (e *adapterNotFoundError) Error() string {
	return "no bluetooth adapter found"
}
