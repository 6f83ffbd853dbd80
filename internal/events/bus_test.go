package events

import (
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []ChannelStateChangedEvent
	unsub := bus.Subscribe(func(e ChannelStateChangedEvent) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	defer unsub()

	bus.Publish(ChannelStateChangedEvent{Channel: "cam", State: "running"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0].Channel != "cam" || got[0].State != "running" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestBusTypeIsolation(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var logs, exits int
	defer bus.Subscribe(func(ChannelLogEvent) {
		mu.Lock()
		logs++
		mu.Unlock()
	})()
	defer bus.Subscribe(func(ChannelExitedEvent) {
		mu.Lock()
		exits++
		mu.Unlock()
	})()

	bus.Publish(ChannelLogEvent{Channel: "cam", Line: "frame=1"})
	bus.Publish(ChannelLogEvent{Channel: "cam", Line: "frame=2"})
	bus.Publish(ChannelExitedEvent{Channel: "cam", ExitCode: 0})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return logs == 2 && exits == 1
	})
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	count := 0
	unsub := bus.Subscribe(func(ChannelLogEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(ChannelLogEvent{Line: "one"})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	unsub()
	bus.Publish(ChannelLogEvent{Line: "two"})

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("handler invoked after unsubscribe, count = %d", count)
	}
}

func TestBusUnknownHandlerType(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(s string) {})
	// Must return a callable no-op rather than panic.
	unsub()
}
