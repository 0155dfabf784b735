package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "slot.0", RoutingKey(0))
	assert.Equal(t, "slot.42", RoutingKey(42))
}

func TestTickBusMemory_FansOutToAllSubscribers(t *testing.T) {
	b := NewTickBusMemory()
	ctx := context.Background()

	ch1, _, err := b.Subscribe(ctx)
	require.NoError(t, err)
	ch2, _, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, Tick{Tick: 5}))

	select {
	case tick := <-ch1:
		assert.Equal(t, 5, tick.Tick)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch1")
	}
	select {
	case tick := <-ch2:
		assert.Equal(t, 5, tick.Tick)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch2")
	}
}

func TestSlotBusMemory_OnlyTargetSlotReceives(t *testing.T) {
	b := NewSlotBusMemory()
	ctx := context.Background()

	slot0, _, err := b.Subscribe(ctx, 0)
	require.NoError(t, err)
	slot1, _, err := b.Subscribe(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, 0, SlotEntry{Strategy: "Low"}))

	select {
	case entry := <-slot0:
		assert.Equal(t, "Low", entry.Strategy)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for slot0")
	}

	select {
	case <-slot1:
		t.Fatal("slot1 should not have received an entry published to slot 0")
	case <-time.After(50 * time.Millisecond):
	}
}
