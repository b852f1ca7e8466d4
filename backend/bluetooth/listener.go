package bluetooth

import (
	"context"
)

// deviceListener is the handle for one device's running listener task.
// The coordinator is its sole owner and may abort it at any time.
type deviceListener struct {
	addr   Address
	cancel context.CancelFunc
}

// spawnDeviceListener subscribes to one device's property changes and
// forwards each update, tagged with its address, onto the coordinator's
// shared ordered channel. The task holds no state beyond its subscription
// and ends when the source closes or the handle is aborted.
func spawnDeviceListener(ctx context.Context, platform Platform, addr Address, out chan<- deviceSignal) (*deviceListener, error) {
	listenerCtx, cancel := context.WithCancel(ctx)

	updates, err := platform.DeviceEvents(listenerCtx, addr)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-listenerCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out <- deviceSignal{Addr: addr, Update: update}:
				case <-listenerCtx.Done():
					return
				}
			}
		}
	}()

	return &deviceListener{addr: addr, cancel: cancel}, nil
}

// abort terminates the listener task. Safe to call more than once.
func (l *deviceListener) abort() {
	l.cancel()
}
