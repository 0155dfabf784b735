// Package bus models the two external messaging primitives spec.md §6
// describes: the tick bus (a fan-out exchange delivering {"tick": N}
// messages, one subscriber queue per dispatcher instance, auto-acked) and
// the slot dispatch bus (a topic exchange addressed by routing key
// slot.<t>).
//
// original_source/service_clockML.py builds both over RabbitMQ (pika): a
// fanout tick_exchange and a topic slot_exchange bound per slot to routing
// key "slot.<t>". This package keeps that shape as two small interfaces so
// the dispatcher (C6) never depends on a specific transport, with two
// implementations: InMemory (buffered channels, used in tests and
// single-process deployments) and Redis (redis/go-redis/v9 pub/sub, for
// multi-process deployments that share one Redis instance).
package bus

import (
	"context"
	"fmt"
)

// Tick is one pulse of the external clock.
type Tick struct {
	Tick int `json:"tick"`
}

// SlotEntry is the JSON entry published to routing key slot.<t>: the
// opaque payload M, the chosen strategy, the callback URL C, and the
// echoed deadline D — exactly the wire shape spec.md §6 specifies.
type SlotEntry struct {
	M        interface{} `json:"M"`
	Strategy string      `json:"strategy"`
	C        string      `json:"C"`
	D        int         `json:"D"`
}

// TickBus delivers tick events to exactly one subscriber queue per
// dispatcher instance. Disconnects are fatal (ErrBusDisconnect) per
// spec.md §7.
type TickBus interface {
	// Subscribe returns a channel of ticks and an error channel that
	// receives at most one error (a disconnect); no ticks arrive after it.
	Subscribe(ctx context.Context) (<-chan Tick, <-chan error, error)
	// Publish emits a tick; used by external tick sources and by tests.
	Publish(ctx context.Context, tick Tick) error
	Close() error
}

// SlotBus publishes and drains per-slot entries addressed by routing key
// slot.<t>.
type SlotBus interface {
	Publish(ctx context.Context, slot int, entry SlotEntry) error
	// Subscribe returns a channel of entries published to slot, and an
	// error channel carrying at most one disconnect error.
	Subscribe(ctx context.Context, slot int) (<-chan SlotEntry, <-chan error, error)
	Close() error
}

// RoutingKey formats the slot.<t> routing key used by SlotBus
// implementations and logged for observability.
func RoutingKey(slot int) string {
	return fmt.Sprintf("slot.%d", slot)
}
