package bluetooth

import "context"

// AdapterEventKind discriminates adapter-level notifications.
type AdapterEventKind int

const (
	AdapterPowered AdapterEventKind = iota
	AdapterDeviceAdded
	AdapterDeviceRemoved
)

// AdapterEvent is one adapter-level notification from the platform service.
// Addr is set for the device kinds, Powered for AdapterPowered.
type AdapterEvent struct {
	Kind    AdapterEventKind
	Addr    Address
	Powered bool
}

// Platform is the boundary to the radio-management service. The coordinator
// is written against this interface; bluezPlatform implements it over the
// D-Bus system bus and tests substitute a fake.
type Platform interface {
	// AdapterName returns the kernel-visible adapter name (e.g. "hci0"),
	// used to resolve the rfkill index during the power fallback.
	AdapterName() string

	Powered() (bool, error)
	SetPowered(enabled bool) error

	DeviceAddresses() ([]Address, error)
	DeviceProperties(addr Address) (DeviceProperties, error)

	// Connect blocks until the device connects, the call fails, or ctx is
	// cancelled. One call is one attempt; retries belong to the caller.
	Connect(ctx context.Context, addr Address) error
	Disconnect(addr Address) error

	// AdapterEvents is the steady-state adapter notification stream.
	AdapterEvents() <-chan AdapterEvent

	// DeviceEvents subscribes to one device's property changes. The stream
	// ends when ctx is cancelled or the underlying source closes.
	DeviceEvents(ctx context.Context, addr Address) (<-chan DeviceUpdate, error)

	// Discover starts a discovery session. Device add/remove notifications
	// flow on the returned channel until ctx is cancelled, which stops the
	// session.
	Discover(ctx context.Context) (<-chan AdapterEvent, error)

	// ConfirmRequests delivers pairing confirmation challenges from the
	// registered authorization agent.
	ConfirmRequests() <-chan ConfirmRequest
}
