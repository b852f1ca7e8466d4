package bluetooth

import (
	"context"
	"testing"
)

// Re-enabling the adapter rebuilds the device map right after aborting all
// listeners, so a resubscription for the same address can land before the
// previous subscription's context-driven cleanup has run. It must succeed.
func TestDeviceEventsResubscribeAfterCancel(t *testing.T) {
	p := &bluezPlatform{subscribers: make(map[Address]chan DeviceUpdate)}
	addr := Address("AA:BB:CC:DD:EE:FF")

	for i := 0; i < 1000; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		if _, err := p.DeviceEvents(ctx, addr); err != nil {
			t.Fatalf("iteration %d: subscribe: %v", i, err)
		}
		cancel()

		ctx, cancel = context.WithCancel(context.Background())
		if _, err := p.DeviceEvents(ctx, addr); err != nil {
			t.Fatalf("iteration %d: immediate resubscribe: %v", i, err)
		}
		cancel()
	}
}

func TestDeviceEventsReplacementClosesStaleStream(t *testing.T) {
	p := &bluezPlatform{subscribers: make(map[Address]chan DeviceUpdate)}
	addr := Address("AA:BB:CC:DD:EE:FF")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stale, err := p.DeviceEvents(ctx, addr)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	fresh, err := p.DeviceEvents(ctx, addr)
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}

	if _, ok := <-stale; ok {
		t.Error("replaced subscription should be closed")
	}

	p.routeDeviceUpdate(addr, BatteryUpdate(42))
	select {
	case update := <-fresh:
		if update.Kind != UpdateBattery || update.Battery != 42 {
			t.Errorf("unexpected update: %+v", update)
		}
	default:
		t.Error("updates should be routed to the replacement subscription")
	}
}

func TestDetachDiscovery(t *testing.T) {
	p := &bluezPlatform{}

	if p.detachDiscovery(nil) {
		t.Error("nothing to detach on a fresh platform")
	}

	ch := make(chan AdapterEvent, 1)
	p.discovery = ch
	if !p.detachDiscovery(nil) {
		t.Fatal("active session should detach")
	}
	if p.discovery != nil {
		t.Error("detached session still registered")
	}
	if _, ok := <-ch; ok {
		t.Error("detached stream should be closed")
	}

	// A stale session handle must never tear down its replacement.
	stale := make(chan AdapterEvent, 1)
	fresh := make(chan AdapterEvent, 1)
	p.discovery = fresh
	if p.detachDiscovery(stale) {
		t.Error("stale handle detached the newer session")
	}
	if p.discovery != fresh {
		t.Error("newer session lost")
	}

	if !p.detachDiscovery(fresh) {
		t.Error("matching handle should detach its own session")
	}
}
