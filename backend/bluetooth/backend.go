package bluetooth

import (
	"context"

	"github.com/nroccia/go-bluez-api/config"
	"github.com/nroccia/go-bluez-api/events"
)

// BluetoothBackend wires the BlueZ platform, the coordinator and the HTTP
// read model together. The coordinator's outbound stream is tapped once to
// keep the read model current, then forwarded to the broadcaster.
type BluetoothBackend struct {
	ctx      context.Context
	cfg      *config.BluetoothConfig
	platform *bluezPlatform
	coord    *Coordinator
	raw      chan events.Event
	out      chan events.Event
	view     *View
}

// New connects to the system bus and resolves the adapter. A nil config
// disables the backend entirely.
func New(ctx context.Context, cfg *config.BluetoothConfig) (*BluetoothBackend, error) {
	if cfg == nil {
		return nil, nil
	}

	platform, err := newBluezPlatform(ctx, cfg)
	if err != nil {
		return nil, err
	}

	raw := make(chan events.Event, 64)
	return &BluetoothBackend{
		ctx:      ctx,
		cfg:      cfg,
		platform: platform,
		coord:    NewCoordinator(ctx, platform, cfg, raw),
		raw:      raw,
		out:      make(chan events.Event, 64),
		view:     NewView(),
	}, nil
}

func (b *BluetoothBackend) Start() error {
	go b.forward()
	return b.coord.Start()
}

// forward taps every coordinator event into the read model before handing
// it to downstream subscribers.
func (b *BluetoothBackend) forward() {
	defer close(b.out)
	for {
		select {
		case <-b.ctx.Done():
			return
		case e, ok := <-b.raw:
			if !ok {
				return
			}
			b.view.Apply(e)
			select {
			case b.out <- e:
			case <-b.ctx.Done():
				return
			}
		}
	}
}

// Events is the outbound event stream consumed by the broadcaster.
func (b *BluetoothBackend) Events() <-chan events.Event {
	return b.out
}

// Requests is the inbound command sink used by the API handlers.
func (b *BluetoothBackend) Requests() chan<- Request {
	return b.coord.Requests()
}

// Devices returns the read model's current device snapshot.
func (b *BluetoothBackend) Devices() []Device {
	return b.view.Devices()
}

// Status reports the adapter as seen by the read model.
func (b *BluetoothBackend) Status() AdapterStatus {
	return b.view.Status()
}

func (b *BluetoothBackend) Close() {
	if b.platform != nil {
		b.platform.Close()
	}
}
