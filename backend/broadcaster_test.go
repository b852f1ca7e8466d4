package backend

import (
	"context"
	"testing"
	"time"

	"github.com/nroccia/go-bluez-api/events"
)

func receiveEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return events.Event{}
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := make(chan events.Event, 8)
	b := NewBroadcaster(ctx, upstream)

	first := b.Subscribe()
	second := b.Subscribe()

	upstream <- events.Event{Type: events.TypeEnabled}

	if e := receiveEvent(t, first); e.Type != events.TypeEnabled {
		t.Errorf("first subscriber got %s", e.Type)
	}
	if e := receiveEvent(t, second); e.Type != events.TypeEnabled {
		t.Errorf("second subscriber got %s", e.Type)
	}
}

func TestBroadcasterFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := make(chan events.Event, 8)
	b := NewBroadcaster(ctx, upstream)

	filtered := b.SubscribeFunc(events.NewFilter([]string{events.TypeDeviceUpdate}, nil))

	upstream <- events.Event{Type: events.TypeEnabled}
	upstream <- events.Event{Type: events.TypeDeviceUpdate}

	if e := receiveEvent(t, filtered); e.Type != events.TypeDeviceUpdate {
		t.Errorf("filtered subscriber got %s, want %s", e.Type, events.TypeDeviceUpdate)
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := make(chan events.Event, 8)
	b := NewBroadcaster(ctx, upstream)

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}

	// Broadcasting after the unsubscription must not panic.
	upstream <- events.Event{Type: events.TypeEnabled}
	time.Sleep(20 * time.Millisecond)
}

func TestBroadcasterStopsOnUpstreamClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := make(chan events.Event)
	b := NewBroadcaster(ctx, upstream)
	ch := b.Subscribe()

	close(upstream)

	time.Sleep(20 * time.Millisecond)
	select {
	case e := <-ch:
		t.Errorf("unexpected event after upstream close: %+v", e)
	default:
	}
}

func TestFanIn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := make(chan events.Event, 1)
	b := make(chan events.Event, 1)
	merged := fanIn(ctx, a, nil, b)

	a <- events.Event{Type: events.TypeReady}
	b <- events.Event{Type: events.TypeEnabled}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[receiveEvent(t, merged).Type] = true
	}
	if !seen[events.TypeReady] || !seen[events.TypeEnabled] {
		t.Errorf("merged stream missed a source: %v", seen)
	}

	close(a)
	close(b)
	if _, ok := <-merged; ok {
		t.Error("merged channel should close once all sources end")
	}
}
