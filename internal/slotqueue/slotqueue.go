// Package slotqueue implements the per-slot FIFO queues (C5) that hold
// (request, chosen-strategy) entries awaiting their execution slot.
//
// Grounded on pkg/scheduler/task_queue.go's channel-backed FIFO and its
// metrics snapshot pattern, collapsed to one channel per slot since this
// system has no priority dimension — only a slot dimension.
package slotqueue

import (
	"fmt"

	"github.com/federicogiustii/carbonshift/internal/domain"
)

// defaultCapacity bounds each slot's buffered channel. A slot queue does
// not need to outlive one scheduling cycle's worth of entries between
// dispatches, so this is generous rather than tuned.
const defaultCapacity = 4096

// Queues is an array of Δ FIFO queues, one per slot.
type Queues struct {
	horizon int
	slots   []chan domain.SlotQueueEntry
}

// New creates Δ empty slot queues.
func New(horizon int) *Queues {
	q := &Queues{horizon: horizon, slots: make([]chan domain.SlotQueueEntry, horizon)}
	for t := range q.slots {
		q.slots[t] = make(chan domain.SlotQueueEntry, defaultCapacity)
	}
	return q
}

// Enqueue appends entry to slot t's queue. Returns an error if t is outside
// [0, Δ) or the slot's queue is full (back-pressure is an operator concern
// per spec.md §5; this only guards against programmer error).
func (q *Queues) Enqueue(t int, entry domain.SlotQueueEntry) error {
	if t < 0 || t >= q.horizon {
		return fmt.Errorf("slot %d outside horizon [0, %d)", t, q.horizon)
	}
	select {
	case q.slots[t] <- entry:
		return nil
	default:
		return fmt.Errorf("slot %d queue is full", t)
	}
}

// DrainSlot atomically removes and returns slot t's queue contents in FIFO
// order, leaving it empty. Non-blocking: it never waits for more entries to
// arrive.
func (q *Queues) DrainSlot(t int) []domain.SlotQueueEntry {
	var out []domain.SlotQueueEntry
	for {
		select {
		case entry := <-q.slots[t]:
			out = append(out, entry)
		default:
			return out
		}
	}
}

// SizeAt returns the number of entries currently buffered in slot t
// (observability only).
func (q *Queues) SizeAt(t int) int {
	return len(q.slots[t])
}

// Horizon returns Δ.
func (q *Queues) Horizon() int {
	return q.horizon
}
