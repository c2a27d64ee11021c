package event

import (
	"log/slog"
	"sync"
)

// Predicate selects the events a subscription receives.
type Predicate func(Event) bool

// Any matches every event.
func Any(Event) bool { return true }

const subscriberBuffer = 256

type subscription struct {
	pred Predicate
	ch   chan Event
}

// Bus is a process-wide publish/subscribe channel. Publish never blocks the
// caller: each subscriber owns a buffered channel, and an event that finds a
// full buffer is dropped for that subscriber and logged (the periodic tick is
// the safety net for missed maintenance work). Events published by one
// goroutine are delivered to each subscriber in publish order.
//
// The bus is constructor-injected, never a package-level singleton; Close
// tears down all subscriptions.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	closed bool
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
	}
}

// Publish fans the event out to every matching subscriber. Safe for
// concurrent use.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.pred(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("event bus subscriber buffer full, dropping event",
				slog.Any("event", ev))
		}
	}
}

// Subscribe registers a predicate and returns the delivery channel plus an
// unsubscribe function. The channel is closed on unsubscribe or bus Close.
func (b *Bus) Subscribe(pred Predicate) (<-chan Event, func()) {
	if pred == nil {
		pred = Any
	}

	sub := &subscription{
		pred: pred,
		ch:   make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	b.subs = append(b.subs, sub)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.remove(sub)
		})
	}
	return sub.ch, cancel
}

// Close stops delivery and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// remove requires b.mu held.
func (b *Bus) remove(target *subscription) {
	for i, sub := range b.subs {
		if sub == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}
