package event_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/event"
)

func newTestBus() *event.Bus {
	return event.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBusDeliversToMatchingSubscribers(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	ticks, cancelTicks := bus.Subscribe(func(ev event.Event) bool {
		_, ok := ev.(event.PeriodicTick)
		return ok
	})
	defer cancelTicks()

	all, cancelAll := bus.Subscribe(event.Any)
	defer cancelAll()

	bus.Publish(event.NewPeriodicTick("test"))
	bus.Publish(event.NewNewTurn(uuid.New(), uuid.New(), "user"))

	select {
	case ev := <-ticks:
		require.IsType(t, event.PeriodicTick{}, ev)
	case <-time.After(time.Second):
		t.Fatal("tick subscriber got nothing")
	}

	// The filtered subscriber must not see the turn event.
	select {
	case ev := <-ticks:
		t.Fatalf("unexpected event %T", ev)
	default:
	}

	require.IsType(t, event.PeriodicTick{}, <-all)
	require.IsType(t, event.NewTurn{}, <-all)
}

func TestBusPerPublisherOrdering(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	events, cancel := bus.Subscribe(event.Any)
	defer cancel()

	session := uuid.New()
	for i := 0; i < 100; i++ {
		bus.Publish(event.NewTokensExceeded(session, i))
	}

	for i := 0; i < 100; i++ {
		ev := (<-events).(event.TokensExceeded)
		require.Equal(t, i, ev.Tokens)
	}
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	events, cancel := bus.Subscribe(event.Any)
	defer cancel()

	const publishers, perPublisher = 8, 16

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				bus.Publish(event.NewPeriodicTick("concurrent"))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < publishers*perPublisher; i++ {
		select {
		case <-events:
		case <-time.After(time.Second):
			t.Fatalf("only %d events delivered", i)
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	events, cancel := bus.Subscribe(event.Any)
	cancel()
	// Unsubscribe is idempotent.
	cancel()

	_, open := <-events
	require.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(event.NewPeriodicTick("after"))
}

func TestBusClose(t *testing.T) {
	bus := newTestBus()

	events, cancel := bus.Subscribe(event.Any)
	defer cancel()

	bus.Close()
	bus.Close()

	_, open := <-events
	require.False(t, open)

	// Publish and Subscribe on a closed bus are harmless.
	bus.Publish(event.NewPeriodicTick("late"))
	late, _ := bus.Subscribe(event.Any)
	_, open = <-late
	require.False(t, open)
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	events, cancel := bus.Subscribe(event.Any)
	defer cancel()

	// Overfill the subscriber buffer; the surplus is dropped, not blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			bus.Publish(event.NewPeriodicTick("flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	received := 0
	for {
		select {
		case <-events:
			received++
		default:
			require.LessOrEqual(t, received, 256)
			return
		}
	}
}
