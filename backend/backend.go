package backend

import (
	"context"

	"github.com/nroccia/go-bluez-api/backend/bluetooth"
	"github.com/nroccia/go-bluez-api/backend/zeroconf"
	"github.com/nroccia/go-bluez-api/config"
)

type Backend struct {
	ctx       context.Context
	Bluetooth *bluetooth.BluetoothBackend
	Zeroconf  *zeroconf.ZeroConfBackend
}

func New(ctx context.Context, btcfg *config.BluetoothConfig, zerocfg *config.ZeroConfig) (*Backend, error) {
	var backend Backend
	backend.ctx = ctx

	bt, err := bluetooth.New(ctx, btcfg)
	if err != nil {
		return nil, err
	}
	backend.Bluetooth = bt

	z, err := zeroconf.New(ctx, zerocfg)
	if err != nil {
		return nil, err
	}
	backend.Zeroconf = z

	return &backend, nil
}

func (b *Backend) Start() error {
	if b.Bluetooth != nil {
		if err := b.Bluetooth.Start(); err != nil {
			return err
		}
	}

	if b.Zeroconf != nil {
		if err := b.Zeroconf.Start(); err != nil {
			return err
		}
	}

	return nil
}

func (b *Backend) Close() {
	if b.Zeroconf != nil {
		b.Zeroconf.Shutdown()
	}
	if b.Bluetooth != nil {
		b.Bluetooth.Close()
	}
}

// NewBroadcaster wires all enabled sub-backend event channels into a single
// Broadcaster.
func (b *Backend) NewBroadcaster(ctx context.Context) *Broadcaster {
	return newBroadcasterFromBackend(ctx, b)
}
