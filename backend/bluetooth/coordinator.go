package bluetooth

import (
	"context"
	"fmt"
	"time"

	"github.com/nroccia/go-bluez-api/config"
	"github.com/nroccia/go-bluez-api/events"
	"github.com/nroccia/go-bluez-api/logger"
)

// Coordinator owns all mutable adapter/device state. Its event loop is the
// only goroutine that touches the device cache, the listener table and the
// pending-confirmation table, so none of them need locks. Blocking work
// (connect retries, disconnects) runs in spawned tasks that report back
// through channels the loop consumes.
type Coordinator struct {
	ctx      context.Context
	platform Platform
	retry    config.ConnectConfig
	rfkill   rfkill
	out      chan<- events.Event

	requests      chan Request
	deviceSignals chan deviceSignal
	connectDone   chan connectResult

	// discovery is nil while discovery is off; a nil channel never
	// produces a ready item in the select.
	discovery       <-chan AdapterEvent
	discoveryCancel context.CancelFunc

	devices        map[Address]*Device
	listeners      map[Address]*deviceListener
	pending        map[Address]chan bool
	connectCancels map[Address]context.CancelFunc
}

// connectResult is the outcome report of a spawned connect task.
type connectResult struct {
	addr     Address
	err      error
	canceled bool
}

func NewCoordinator(ctx context.Context, platform Platform, cfg *config.BluetoothConfig, out chan<- events.Event) *Coordinator {
	return &Coordinator{
		ctx:            ctx,
		platform:       platform,
		retry:          cfg.Connect,
		rfkill:         newRfkill(cfg.Rfkill),
		out:            out,
		requests:       make(chan Request, 16),
		deviceSignals:  make(chan deviceSignal, 32),
		connectDone:    make(chan connectResult, 8),
		devices:        make(map[Address]*Device),
		listeners:      make(map[Address]*deviceListener),
		pending:        make(map[Address]chan bool),
		connectCancels: make(map[Address]context.CancelFunc),
	}
}

// Requests returns the inbound command sink handed out in the Ready event.
func (c *Coordinator) Requests() chan<- Request {
	return c.requests
}

// Start performs the initial enumeration and launches the event loop.
// Any error here is a setup failure: the loop is never entered and the
// caller is expected to treat it as fatal.
func (c *Coordinator) Start() error {
	powered, err := c.platform.Powered()
	if err != nil {
		return fmt.Errorf("failed to read adapter powered state: %w", err)
	}

	if err := c.buildDeviceMap(); err != nil {
		return fmt.Errorf("initial device enumeration failed: %w", err)
	}

	c.emit(events.TypeReady, ReadyPayload{Powered: powered})
	c.emit(events.TypeDeviceMap, c.snapshot())

	go c.run()
	return nil
}

func (c *Coordinator) run() {
	for {
		if err := c.iterate(); err != nil {
			if c.ctx.Err() != nil {
				c.teardown()
				return
			}
			logger.Error("[bluetooth] coordinator loop failed: %v", err)
			c.emit(events.TypeError, ErrorPayload{Message: err.Error()})
			c.teardown()
			return
		}
	}
}

// iterate waits across the ready-sources and handles exactly one item.
// No source is prioritized; each handler runs to completion before the
// next wait.
func (c *Coordinator) iterate() error {
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()

	case r := <-c.requests:
		if err := c.handleRequest(r); err != nil {
			return fmt.Errorf("could not handle request %v: %w", r.Kind, err)
		}

	case e := <-c.platform.AdapterEvents():
		if err := c.handleAdapterEvent(e); err != nil {
			return fmt.Errorf("could not handle adapter event: %w", err)
		}

	case e, ok := <-c.discovery:
		if !ok {
			c.discovery = nil
			return nil
		}
		if err := c.handleAdapterEvent(e); err != nil {
			return fmt.Errorf("could not handle discovery event: %w", err)
		}

	case s := <-c.deviceSignals:
		c.handleDeviceSignal(s)

	case cr := <-c.platform.ConfirmRequests():
		c.handleConfirmRequest(cr)

	case res := <-c.connectDone:
		c.handleConnectResult(res)
	}

	return nil
}

func (c *Coordinator) handleAdapterEvent(event AdapterEvent) error {
	switch event.Kind {
	case AdapterPowered:
		c.emit(events.TypeEnabled, EnabledPayload{Enabled: event.Powered})

	case AdapterDeviceAdded:
		return c.handleDeviceAdded(event.Addr)

	case AdapterDeviceRemoved:
		return c.handleDeviceRemoved(event.Addr)
	}
	return nil
}

func (c *Coordinator) handleDeviceAdded(addr Address) error {
	// Duplicate notification (steady-state and discovery streams overlap).
	if _, exists := c.listeners[addr]; exists {
		return nil
	}

	props, err := c.platform.DeviceProperties(addr)
	if err != nil {
		return fmt.Errorf("failed to query device %s: %w", addr, err)
	}

	// No resolvable name means this is not a real peripheral yet.
	if props.Name == "" {
		return nil
	}

	listener, err := spawnDeviceListener(c.ctx, c.platform, addr, c.deviceSignals)
	if err != nil {
		return fmt.Errorf("failed to start listener for %s: %w", addr, err)
	}

	device := NewDevice(addr, props)
	c.devices[addr] = &device
	c.listeners[addr] = listener
	c.emit(events.TypeDeviceAdded, device)
	return nil
}

// handleDeviceRemoved disambiguates the two meanings of a removal
// notification: the platform fires it both when a device merely
// disconnected and when it was actually forgotten. Only an address absent
// from the platform's device list counts as a real removal.
func (c *Coordinator) handleDeviceRemoved(addr Address) error {
	addrs, err := c.platform.DeviceAddresses()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	for _, a := range addrs {
		if a == addr {
			// Still known: just a disconnect, the listener already
			// forwards the connected-flag change.
			return nil
		}
	}

	listener, exists := c.listeners[addr]
	if !exists {
		return nil
	}
	listener.abort()
	delete(c.listeners, addr)
	delete(c.devices, addr)
	c.cancelConnectTask(addr)

	// A pending confirmation for a vanished device is answered with a
	// rejection instead of being leaked.
	if reply, ok := c.pending[addr]; ok {
		delete(c.pending, addr)
		reply <- false
	}

	c.emit(events.TypeDeviceRemoved, AddressPayload{Address: addr})
	return nil
}

func (c *Coordinator) handleRequest(request Request) error {
	switch request.Kind {
	case RequestSetDiscovery:
		return c.setDiscovery(request.Flag)
	case RequestConnectDevice:
		c.connectDevice(request.Addr)
	case RequestDisconnectDevice:
		c.disconnectDevice(request.Addr)
	case RequestCancelConnect:
		c.cancelConnect(request.Addr)
	case RequestSetEnabled:
		c.setEnabled(request.Flag)
	case RequestConfirmCode:
		c.confirmCode(request.Addr, request.Flag)
	}
	return nil
}

func (c *Coordinator) setDiscovery(enable bool) error {
	if c.discoveryCancel != nil {
		c.discoveryCancel()
		c.discoveryCancel = nil
		c.discovery = nil
	}

	if !enable {
		logger.Info("[bluetooth] stopped device discovery")
		return nil
	}

	powered, err := c.platform.Powered()
	if err != nil {
		return fmt.Errorf("failed to read powered state: %w", err)
	}
	if !powered {
		logger.Debug("[bluetooth] discovery requested while powered off, ignoring")
		return nil
	}

	ctx, cancel := context.WithCancel(c.ctx)
	stream, err := c.platform.Discover(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	c.discovery = stream
	c.discoveryCancel = cancel
	logger.Info("[bluetooth] started device discovery")
	return nil
}

func (c *Coordinator) connectDevice(addr Address) {
	device, ok := c.devices[addr]
	if !ok {
		logger.Warn("[bluetooth] connect request for unknown device %s, dropping", addr)
		return
	}

	if _, running := c.connectCancels[addr]; running {
		logger.Debug("[bluetooth] connect already in progress for %s", addr)
		return
	}

	c.applyUpdate(device, statusUpdate(StatusConnecting))

	taskCtx, cancel := context.WithCancel(c.ctx)
	c.connectCancels[addr] = cancel

	go func() {
		err := connectWithRetry(taskCtx, c.platform, addr, c.retry)
		result := connectResult{
			addr:     addr,
			err:      err,
			canceled: taskCtx.Err() != nil,
		}
		select {
		case c.connectDone <- result:
		case <-c.ctx.Done():
		}
	}()
}

func (c *Coordinator) handleConnectResult(result connectResult) {
	// A cancelled task's handle was already removed by cancelConnect, and
	// cancellation forced the state and reported the failure there. Any
	// entry present now belongs to a newer attempt and must survive this
	// late report.
	if result.canceled {
		return
	}

	if cancel, ok := c.connectCancels[result.addr]; ok {
		cancel()
		delete(c.connectCancels, result.addr)
	}

	if result.err == nil {
		// Success settles through the listener's connected-flag update.
		return
	}

	logger.Error("[bluetooth] device %s failed to connect: %v", result.addr, result.err)
	if device, ok := c.devices[result.addr]; ok {
		c.applyUpdate(device, statusUpdate(StatusDisconnected))
	}
	c.emit(events.TypeConnectFailed, AddressPayload{Address: result.addr})
}

func (c *Coordinator) disconnectDevice(addr Address) {
	device, ok := c.devices[addr]
	if !ok {
		logger.Warn("[bluetooth] disconnect request for unknown device %s, dropping", addr)
		return
	}

	c.applyUpdate(device, statusUpdate(StatusDisconnecting))

	go func() {
		if err := c.platform.Disconnect(addr); err != nil {
			logger.Warn("[bluetooth] device %s failed to disconnect: %v", addr, err)
		}
	}()
}

// cancelConnect aborts an in-flight connect attempt. Cancellation is
// reported exactly like a failed connect; there is no distinct signal.
func (c *Coordinator) cancelConnect(addr Address) {
	device, ok := c.devices[addr]
	if !ok {
		logger.Warn("[bluetooth] cancel request for unknown device %s, dropping", addr)
		return
	}

	c.cancelConnectTask(addr)

	go func() {
		if err := c.platform.Disconnect(addr); err != nil {
			logger.Warn("[bluetooth] device %s failed to disconnect: %v", addr, err)
		}
	}()

	c.applyUpdate(device, statusUpdate(StatusDisconnected))
	c.emit(events.TypeConnectFailed, AddressPayload{Address: addr})
}

func (c *Coordinator) cancelConnectTask(addr Address) {
	if cancel, ok := c.connectCancels[addr]; ok {
		cancel()
		delete(c.connectCancels, addr)
	}
}

// setEnabled first tries the BlueZ powered switch and falls back to the raw
// rfkill protocol when that fails. A fallback resolution failure is the
// result of this request only, never fatal to the loop.
func (c *Coordinator) setEnabled(enable bool) {
	logger.Info("[bluetooth] setting bluetooth enabled to %v", enable)

	err := c.platform.SetPowered(enable)
	if err == nil {
		return
	}
	logger.Warn("[bluetooth] set powered failed, falling back to rfkill: %v", err)

	idx, err := c.rfkill.findAdapterIndex(c.platform.AdapterName())
	if err != nil {
		c.reportEnableFailure(enable, err)
		return
	}
	if err := c.rfkill.setEnabled(idx, enable); err != nil {
		c.reportEnableFailure(enable, err)
		return
	}

	if enable {
		// No events were flowing while powered off: rebuild everything.
		c.abortAllListeners()
		if err := c.buildDeviceMap(); err != nil {
			logger.Error("[bluetooth] re-enumeration after enable failed: %v", err)
			return
		}
		c.emit(events.TypeDeviceMap, c.snapshot())
	} else {
		// Device records stay cached (stale until next enable); only the
		// listener tasks are torn down.
		c.abortAllListeners()
	}
}

// reportEnableFailure surfaces an rfkill failure to the caller by
// re-announcing the actual powered state, so a stale toggle snaps back.
func (c *Coordinator) reportEnableFailure(requested bool, err error) {
	logger.Error("[bluetooth] failed to set enabled=%v via rfkill: %v", requested, err)
	powered, perr := c.platform.Powered()
	if perr != nil {
		powered = !requested
	}
	c.emit(events.TypeEnabled, EnabledPayload{Enabled: powered})
}

func (c *Coordinator) confirmCode(addr Address, accept bool) {
	reply, ok := c.pending[addr]
	if !ok {
		// Already answered or device gone.
		logger.Debug("[bluetooth] no pending confirmation for %s, ignoring answer", addr)
		return
	}
	delete(c.pending, addr)
	reply <- accept

	if device, ok := c.devices[addr]; ok {
		c.applyUpdate(device, codeUpdate(""))
	}
}

func (c *Coordinator) handleConfirmRequest(request ConfirmRequest) {
	logger.Info("[bluetooth] confirmation requested for %s", request.Addr)
	c.pending[request.Addr] = request.Reply

	if device, ok := c.devices[request.Addr]; ok {
		c.applyUpdate(device, codeUpdate(request.Code))
	}

	c.emit(events.TypeConfirmCode, ConfirmCodePayload{Address: request.Addr, Code: request.Code})
}

func (c *Coordinator) handleDeviceSignal(signal deviceSignal) {
	device, ok := c.devices[signal.Addr]
	if !ok {
		logger.Warn("[bluetooth] update for unknown device %s, dropping", signal.Addr)
		return
	}
	c.applyUpdate(device, signal.Update)
}

// applyUpdate is the single funnel for cache mutations: every change is
// applied to the record and mirrored out as a DeviceUpdate event.
func (c *Coordinator) applyUpdate(device *Device, update DeviceUpdate) {
	device.Apply(update)
	c.emit(events.TypeDeviceUpdate, DeviceUpdatePayload{Address: device.Address, Update: update})
}

// buildDeviceMap enumerates the platform's device list from scratch,
// replacing the cache and spawning one listener per kept device. Devices
// without a resolvable name and without a recognizable type are skipped.
func (c *Coordinator) buildDeviceMap() error {
	addrs, err := c.platform.DeviceAddresses()
	if err != nil {
		return err
	}

	c.devices = make(map[Address]*Device, len(addrs))
	c.listeners = make(map[Address]*deviceListener, len(addrs))

	for _, addr := range addrs {
		props, err := c.platform.DeviceProperties(addr)
		if err != nil {
			return fmt.Errorf("failed to query device %s: %w", addr, err)
		}

		device := NewDevice(addr, props)
		if props.Name == "" && device.Icon == DefaultDeviceIcon {
			continue
		}

		listener, err := spawnDeviceListener(c.ctx, c.platform, addr, c.deviceSignals)
		if err != nil {
			return fmt.Errorf("failed to start listener for %s: %w", addr, err)
		}

		c.devices[addr] = &device
		c.listeners[addr] = listener
	}

	return nil
}

func (c *Coordinator) abortAllListeners() {
	for addr, listener := range c.listeners {
		listener.abort()
		delete(c.listeners, addr)
	}
}

func (c *Coordinator) snapshot() map[Address]Device {
	snapshot := make(map[Address]Device, len(c.devices))
	for addr, device := range c.devices {
		snapshot[addr] = *device
	}
	return snapshot
}

func (c *Coordinator) teardown() {
	if c.discoveryCancel != nil {
		c.discoveryCancel()
		c.discoveryCancel = nil
	}
	c.abortAllListeners()
	for addr, cancel := range c.connectCancels {
		cancel()
		delete(c.connectCancels, addr)
	}
	for addr, reply := range c.pending {
		delete(c.pending, addr)
		close(reply)
	}
}

func (c *Coordinator) emit(eventType string, data any) {
	select {
	case <-c.ctx.Done():
	case c.out <- events.Event{Type: eventType, Data: data}:
	}
}

// connectWithRetry runs the connect attempts with exponential backoff,
// doubling after each failure up to the configured cap. It returns nil on
// the first success, ctx.Err() on cancellation, and the last connect error
// once the attempts are exhausted.
func connectWithRetry(ctx context.Context, platform Platform, addr Address, cfg config.ConnectConfig) error {
	backoff := cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = platform.Connect(ctx, addr)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = nextBackoff(backoff, cfg.MaxBackoff)
	}

	return lastErr
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
