package bus

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// TickBusMemory is a single-process TickBus backed by Go channels: every
// Subscribe call registers a new fan-out target, matching the fanout
// tick_exchange semantics of original_source/service_clockML.py. It is the
// default wiring for tests and single-binary deployments.
type TickBusMemory struct {
	mu   sync.Mutex
	subs []chan Tick
}

// NewTickBusMemory creates an empty in-process tick bus.
func NewTickBusMemory() *TickBusMemory {
	return &TickBusMemory{}
}

// Subscribe registers a new tick subscriber. Dispatchers should subscribe
// exactly once, matching "exactly one subscriber queue per dispatcher
// instance".
func (b *TickBusMemory) Subscribe(ctx context.Context) (<-chan Tick, <-chan error, error) {
	ch := make(chan Tick, subscriberBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	errCh := make(chan error, 1)
	return ch, errCh, nil
}

// Publish fans a tick out to every current subscriber.
func (b *TickBusMemory) Publish(ctx context.Context, tick Tick) error {
	b.mu.Lock()
	subs := append([]chan Tick(nil), b.subs...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- tick:
		default:
			// slow subscriber; ticks are not replayed, matching the
			// at-most-once auto-acked fanout contract.
		}
	}
	return nil
}

// Close is a no-op for the in-process bus; subscriber channels are left for
// garbage collection once their dispatcher stops reading.
func (b *TickBusMemory) Close() error { return nil }

// SlotBusMemory is a single-process SlotBus backed by Go channels, one set
// of subscribers per routing key slot.<t>.
type SlotBusMemory struct {
	mu   sync.Mutex
	subs map[int][]chan SlotEntry
}

// NewSlotBusMemory creates an empty in-process slot bus.
func NewSlotBusMemory() *SlotBusMemory {
	return &SlotBusMemory{subs: make(map[int][]chan SlotEntry)}
}

// Subscribe registers a new subscriber for routing key slot.<slot>.
func (b *SlotBusMemory) Subscribe(ctx context.Context, slot int) (<-chan SlotEntry, <-chan error, error) {
	ch := make(chan SlotEntry, subscriberBuffer)
	b.mu.Lock()
	b.subs[slot] = append(b.subs[slot], ch)
	b.mu.Unlock()
	errCh := make(chan error, 1)
	return ch, errCh, nil
}

// Publish fans a slot entry out to subscribers of routing key slot.<slot>
// only; publishing to one slot never affects another's subscribers.
func (b *SlotBusMemory) Publish(ctx context.Context, slot int, entry SlotEntry) error {
	b.mu.Lock()
	subs := append([]chan SlotEntry(nil), b.subs[slot]...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- entry:
		default:
		}
	}
	return nil
}

// Close is a no-op for the in-process bus.
func (b *SlotBusMemory) Close() error { return nil }
