package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/redis/go-redis/v9"
)

// tickChannel is the single pub/sub channel every TickBusRedis subscriber
// fans out from, the Redis analogue of the fanout tick_exchange in
// original_source/service_clockML.py.
const tickChannel = "carbonshift.tick"

// TickBusRedis is a TickBus backed by redis/go-redis/v9 pub/sub, for
// deployments where ingress, the solver, and the dispatcher run as
// separate processes sharing one Redis instance.
type TickBusRedis struct {
	client *redis.Client
}

// NewTickBusRedis wraps an existing Redis client.
func NewTickBusRedis(client *redis.Client) *TickBusRedis {
	return &TickBusRedis{client: client}
}

// Subscribe opens a Redis pub/sub subscription to the tick channel. A
// receive error (connection loss) is surfaced once on the error channel
// and wraps ErrBusDisconnect, per spec.md §7 ("Disconnects are treated as
// fatal").
func (b *TickBusRedis) Subscribe(ctx context.Context) (<-chan Tick, <-chan error, error) {
	pubsub := b.client.Subscribe(ctx, tickChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: subscribing to tick channel: %v", apierrors.ErrBusDisconnect, err)
	}

	out := make(chan Tick, subscriberBuffer)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					errCh <- fmt.Errorf("%w: tick channel closed", apierrors.ErrBusDisconnect)
					return
				}
				var t Tick
				if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
					continue
				}
				out <- t
			}
		}
	}()
	return out, errCh, nil
}

// Publish emits a tick to the Redis fanout channel.
func (b *TickBusRedis) Publish(ctx context.Context, tick Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("marshaling tick: %w", err)
	}
	if err := b.client.Publish(ctx, tickChannel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publishing tick: %v", apierrors.ErrBusDisconnect, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (b *TickBusRedis) Close() error {
	return b.client.Close()
}

// SlotBusRedis is a SlotBus backed by redis/go-redis/v9 pub/sub, one
// channel per routing key slot.<t>.
type SlotBusRedis struct {
	client *redis.Client
}

// NewSlotBusRedis wraps an existing Redis client.
func NewSlotBusRedis(client *redis.Client) *SlotBusRedis {
	return &SlotBusRedis{client: client}
}

func channelFor(slot int) string {
	return "carbonshift." + RoutingKey(slot)
}

// Subscribe opens a Redis pub/sub subscription to routing key slot.<slot>.
func (b *SlotBusRedis) Subscribe(ctx context.Context, slot int) (<-chan SlotEntry, <-chan error, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(slot))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: subscribing to %s: %v", apierrors.ErrBusDisconnect, RoutingKey(slot), err)
	}

	out := make(chan SlotEntry, subscriberBuffer)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					errCh <- fmt.Errorf("%w: slot channel closed", apierrors.ErrBusDisconnect)
					return
				}
				var entry SlotEntry
				if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
					continue
				}
				out <- entry
			}
		}
	}()
	return out, errCh, nil
}

// Publish emits entry to routing key slot.<slot>'s channel only.
func (b *SlotBusRedis) Publish(ctx context.Context, slot int, entry SlotEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling slot entry: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(slot), payload).Err(); err != nil {
		return fmt.Errorf("%w: publishing to %s: %v", apierrors.ErrBusDisconnect, RoutingKey(slot), err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (b *SlotBusRedis) Close() error {
	return b.client.Close()
}
