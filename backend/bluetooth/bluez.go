package bluetooth

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/nroccia/go-bluez-api/config"
	"github.com/nroccia/go-bluez-api/logger"
)

// bluezPlatform implements Platform over the BlueZ D-Bus API. It owns the
// system bus connection, the registered pairing agent, and the raw signal
// dispatch; the coordinator never touches godbus types directly.
type bluezPlatform struct {
	conn        *dbus.Conn
	ctx         context.Context
	cfg         *config.BluetoothConfig
	adapterPath dbus.ObjectPath
	adapterName string

	signals       chan *dbus.Signal
	adapterEvents chan AdapterEvent
	confirms      chan ConfirmRequest

	mu          sync.Mutex
	subscribers map[Address]chan DeviceUpdate
	discovery   chan AdapterEvent

	// discoveryOp serializes StartDiscovery/StopDiscovery calls so a new
	// session can never race a previous session's teardown on the bus.
	discoveryOp sync.Mutex
}

func newBluezPlatform(ctx context.Context, cfg *config.BluetoothConfig) (*bluezPlatform, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	p := &bluezPlatform{
		conn:          conn,
		ctx:           ctx,
		cfg:           cfg,
		signals:       make(chan *dbus.Signal, 32),
		adapterEvents: make(chan AdapterEvent, 32),
		confirms:      make(chan ConfirmRequest, 4),
		subscribers:   make(map[Address]chan DeviceUpdate),
	}

	if err := p.findAdapter(); err != nil {
		p.Close()
		return nil, err
	}

	if err := registerAgent(conn, p.confirms); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to register pairing agent: %w", err)
	}

	if err := p.addMatchRules(); err != nil {
		p.Close()
		return nil, err
	}

	conn.Signal(p.signals)
	go p.dispatch()

	logger.Info("[bluetooth] using adapter %s", p.adapterPath)
	return p, nil
}

// findAdapter resolves the adapter object path, either from configuration or
// as the first Adapter1 object reported by the BlueZ ObjectManager.
func (p *bluezPlatform) findAdapter() error {
	managedObjects, err := p.getManagedObjects()
	if err != nil {
		return err
	}

	if p.cfg.Adapter != "" {
		configured := dbus.ObjectPath(p.cfg.Adapter)
		if _, ok := managedObjects[configured][BLUETOOTH_ADAPTER]; !ok {
			return fmt.Errorf("configured adapter %s not present on the bus", configured)
		}
		p.adapterPath = configured
		p.adapterName = path.Base(string(configured))
		return nil
	}

	for objPath, ifaces := range managedObjects {
		if _, ok := ifaces[BLUETOOTH_ADAPTER]; ok {
			p.adapterPath = objPath
			p.adapterName = path.Base(string(objPath))
			return nil
		}
	}

	return &adapterNotFoundError{}
}

func (p *bluezPlatform) addMatchRules() error {
	if err := p.conn.AddMatchSignal(
		dbus.WithMatchInterface(DBUS_PROP_IFACE),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchPathNamespace(dbus.ObjectPath(BLUEZ_PATH)),
	); err != nil {
		return fmt.Errorf("failed to match PropertiesChanged: %w", err)
	}

	if err := p.conn.AddMatchSignal(
		dbus.WithMatchSender(BLUETOOTH_PREFIX),
		dbus.WithMatchInterface(OBJECT_MANAGER_IFACE),
	); err != nil {
		return fmt.Errorf("failed to match ObjectManager signals: %w", err)
	}

	return nil
}

func (p *bluezPlatform) AdapterName() string {
	return p.adapterName
}

func (p *bluezPlatform) Powered() (bool, error) {
	v, err := p.getProperty(p.adapter(), BLUETOOTH_ADAPTER, BT_PROP_POWERED)
	if err != nil {
		return false, err
	}
	powered, _ := v.Value().(bool)
	return powered, nil
}

func (p *bluezPlatform) SetPowered(enabled bool) error {
	return p.setProperty(p.adapter(), BLUETOOTH_ADAPTER, BT_PROP_POWERED, enabled)
}

func (p *bluezPlatform) DeviceAddresses() ([]Address, error) {
	managedObjects, err := p.getManagedObjects()
	if err != nil {
		return nil, err
	}

	var addrs []Address
	for objPath, ifaces := range managedObjects {
		dev, ok := ifaces[BLUETOOTH_DEVICE]
		if !ok || !p.ownsDevice(objPath) {
			continue
		}
		if addr := extractString(dev, BT_PROP_ADDRESS); addr != "" {
			addrs = append(addrs, Address(addr))
		}
	}
	return addrs, nil
}

func (p *bluezPlatform) DeviceProperties(addr Address) (DeviceProperties, error) {
	obj := p.device(addr)

	var props map[string]dbus.Variant
	call := p.callWithTimeout(obj, DBUS_PROP_GET_ALL, BLUETOOTH_DEVICE)
	if call.Err != nil {
		return DeviceProperties{}, call.Err
	}
	if err := call.Store(&props); err != nil {
		return DeviceProperties{}, err
	}

	result := DeviceProperties{
		Name:      extractString(props, BT_PROP_NAME),
		Icon:      extractString(props, BT_PROP_ICON),
		Paired:    extractBool(props, BT_PROP_PAIRED),
		Connected: extractBool(props, BT_PROP_CONNECTED),
	}

	// Battery1 is a separate interface and absent for most devices.
	if v, err := p.getProperty(obj, BLUETOOTH_BATTERY, BT_PROP_PERCENTAGE); err == nil {
		if pct, ok := v.Value().(byte); ok {
			result.Battery = &pct
		}
	}

	return result, nil
}

func (p *bluezPlatform) Connect(ctx context.Context, addr Address) error {
	// Connect can legitimately take several seconds; the caller's context
	// bounds it instead of the short property-call timeout.
	return p.device(addr).CallWithContext(ctx, DEVICE_CONNECT_METHOD, 0).Err
}

func (p *bluezPlatform) Disconnect(addr Address) error {
	return p.callWithTimeout(p.device(addr), DEVICE_DISCONNECT_METHOD).Err
}

func (p *bluezPlatform) AdapterEvents() <-chan AdapterEvent {
	return p.adapterEvents
}

func (p *bluezPlatform) DeviceEvents(ctx context.Context, addr Address) (<-chan DeviceUpdate, error) {
	ch := make(chan DeviceUpdate, 10)

	p.mu.Lock()
	// A previous subscription may still be tearing down (its context-driven
	// cleanup runs asynchronously). Newest wins: close the stale stream here
	// so an immediate resubscribe never fails.
	if old, exists := p.subscribers[addr]; exists {
		close(old)
	}
	p.subscribers[addr] = ch
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		if p.subscribers[addr] == ch {
			delete(p.subscribers, addr)
			close(ch)
		}
		p.mu.Unlock()
	}()

	return ch, nil
}

func (p *bluezPlatform) Discover(ctx context.Context) (<-chan AdapterEvent, error) {
	// BlueZ answers a second StartDiscovery from the same client with
	// InProgress, so a session may only start once its predecessor's
	// StopDiscovery has completed on the bus. Whoever wins the lock tears
	// the old session down; the loser sees it already detached.
	p.discoveryOp.Lock()
	defer p.discoveryOp.Unlock()

	if p.detachDiscovery(nil) {
		if call := p.callWithTimeout(p.adapter(), STOP_DISCOVERY_METHOD); call.Err != nil {
			logger.Warn("[bluetooth] failed to stop previous discovery: %v", call.Err)
		}
	}

	if call := p.callWithTimeout(p.adapter(), START_DISCOVERY_METHOD); call.Err != nil {
		return nil, call.Err
	}

	ch := make(chan AdapterEvent, 10)
	p.mu.Lock()
	p.discovery = ch
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.discoveryOp.Lock()
		defer p.discoveryOp.Unlock()
		// A newer session may have detached and stopped this one already.
		if !p.detachDiscovery(ch) {
			return
		}
		if call := p.callWithTimeout(p.adapter(), STOP_DISCOVERY_METHOD); call.Err != nil {
			logger.Warn("[bluetooth] failed to stop discovery: %v", call.Err)
		}
	}()

	return ch, nil
}

// detachDiscovery deregisters and closes the current discovery stream.
// A non-nil ch only matches that specific session, so a stale handle can
// never tear down its replacement. Reports whether a session was detached;
// the caller owns the matching StopDiscovery call.
func (p *bluezPlatform) detachDiscovery(ch chan AdapterEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.discovery == nil || (ch != nil && p.discovery != ch) {
		return false
	}
	close(p.discovery)
	p.discovery = nil
	return true
}

func (p *bluezPlatform) ConfirmRequests() <-chan ConfirmRequest {
	return p.confirms
}

func (p *bluezPlatform) Close() {
	if p.conn == nil {
		return
	}
	unregisterAgent(p.conn)
	p.conn.RemoveSignal(p.signals)
	if err := p.conn.Close(); err != nil {
		logger.Info("[bluetooth] failed to close D-Bus connection: %v", err)
	}
	p.conn = nil
}
